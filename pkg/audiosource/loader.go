// Package audiosource 把音频文件路径变成播放引擎可用的字节流，
// 并负责旧格式的转码兜底与元数据读取。
package audiosource

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Kind 标记字节流的来源，在加载边界一次性判定，之后统一消费
type Kind string

const (
	KindNative     Kind = "native"     // 播放引擎可直接解码的原始文件
	KindTranscoded Kind = "transcoded" // 旧格式经 FFmpeg 转码后的 PCM WAV
	KindRaw        Kind = "raw"        // 转码不可用时的原始字节，能否播放未经验证
)

// Source 一次音频加载的结果
type Source struct {
	Kind Kind
	MIME string
	Data []byte
}

// 转码输出的固定 PCM 参数：双声道 44.1kHz 16-bit
const (
	pcmChannels   = "2"
	pcmSampleRate = "44100"
	pcmCodec      = "pcm_s16le"
)

// legacyExtensions 需要转码的旧容器格式
var legacyExtensions = map[string]bool{
	".wma": true,
}

// mimeTypes 扩展名到 MIME 类型的静态映射
var mimeTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".flac": "audio/flac",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".ape":  "audio/x-ape",
	".wv":   "audio/x-wavpack",
	".wma":  "audio/x-ms-wma",
}

// CommandRunner 执行外部命令并返回标准输出，便于测试替换
type CommandRunner interface {
	Run(name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}

// Loader 按扩展名分派音频加载：旧格式尝试 FFmpeg 转码，
// 失败时退化为原始字节；其余格式直接读取。
type Loader struct {
	ffmpegPath  string
	ffprobePath string
	runner      CommandRunner
	logger      *log.Logger
}

// NewLoader 创建一个新的 Loader 实例
func NewLoader(ffmpegPath, ffprobePath string, logger *log.Logger) *Loader {
	return &Loader{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath, runner: execRunner{}, logger: logger}
}

// NewLoaderWithRunner 供测试注入命令执行器
func NewLoaderWithRunner(ffmpegPath, ffprobePath string, runner CommandRunner, logger *log.Logger) *Loader {
	return &Loader{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath, runner: runner, logger: logger}
}

// Load 加载音频文件。文件不可读时返回错误，由调用方提示并停止播放；
// 转码失败不阻断播放，只是降级为 KindRaw。
func (l *Loader) Load(path string) (*Source, error) {
	ext := strings.ToLower(filepath.Ext(path))

	if legacyExtensions[ext] {
		if data, err := l.transcode(path); err == nil {
			l.logger.Printf("  -> Transcoded %s to PCM WAV (%d bytes).", filepath.Base(path), len(data))
			return &Source{Kind: KindTranscoded, MIME: "audio/wav", Data: data}, nil
		} else {
			l.logger.Printf("  -> WARN: Transcode failed for %s, falling back to raw bytes: %v", filepath.Base(path), err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read audio file %s: %w", path, err)
		}
		return &Source{Kind: KindRaw, MIME: mimeFor(ext), Data: data}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio file %s: %w", path, err)
	}
	return &Source{Kind: KindNative, MIME: mimeFor(ext), Data: data}, nil
}

// transcode 调用 FFmpeg 把旧格式转为 PCM WAV 输出到标准输出
func (l *Loader) transcode(path string) ([]byte, error) {
	args := []string{
		"-v", "error",
		"-i", path,
		"-ac", pcmChannels,
		"-ar", pcmSampleRate,
		"-acodec", pcmCodec,
		"-f", "wav",
		"pipe:1",
	}
	out, err := l.runner.Run(l.ffmpegPath, args...)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg execution failed: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("ffmpeg produced no output")
	}
	return out, nil
}

// mimeFor 查静态 MIME 表，未知扩展名用通用类型兜底
func mimeFor(ext string) string {
	if mime, ok := mimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}
