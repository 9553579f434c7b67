// Package player 把歌词管线与音频加载串联到当前曲目的会话上。
package player

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/yleoer/melody/pkg/audiosource"
	"github.com/yleoer/melody/pkg/converter"
	"github.com/yleoer/melody/pkg/database"
	"github.com/yleoer/melody/pkg/lyric"
	"github.com/yleoer/melody/pkg/session"
	"github.com/yleoer/melody/pkg/textenc"
)

// ErrNoLyricLoaded 当前曲目没有已加载的歌词文件
var ErrNoLyricLoaded = errors.New("no lyric file loaded for current track")

// Track 当前活动曲目的状态
type Track struct {
	AudioPath string
	LyricPath string
	Encoding  string // 歌词实际采用的编码
	Source    *audiosource.Source
	Info      *audiosource.TrackInfo
}

// Player 是当前曲目会话的唯一所有者。切歌通过递增会话代数取代
// （而不是合并）旧的加载：任何异步完成都要先核对自己捕获的代数，
// 过期结果直接丢弃，避免慢加载覆盖新曲目的状态。
type Player struct {
	mu      sync.Mutex
	current Track

	detector  *textenc.Detector
	resolver  *lyric.Resolver
	converter converter.TextConverter
	prefs     database.PreferenceStore
	loader    *audiosource.Loader
	sess      *session.Session
	persister *OffsetPersister
	logger    *log.Logger
}

// NewPlayer 创建一个新的 Player 实例
func NewPlayer(
	detector *textenc.Detector,
	resolver *lyric.Resolver,
	textConverter converter.TextConverter,
	prefs database.PreferenceStore,
	loader *audiosource.Loader,
	sess *session.Session,
	logger *log.Logger,
) *Player {
	return &Player{
		detector:  detector,
		resolver:  resolver,
		converter: textConverter,
		prefs:     prefs,
		loader:    loader,
		sess:      sess,
		persister: NewOffsetPersister(logger),
		logger:    logger,
	}
}

// Session 返回播放会话
func (p *Player) Session() *session.Session {
	return p.sess
}

// Current 返回当前曲目状态的副本
func (p *Player) Current() Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// SetActiveTrack 切换活动曲目：递增会话代数、释放旧的音频流，
// 然后并发加载歌词与音频。两路加载互相独立。
func (p *Player) SetActiveTrack(audioPath string, lyricCandidates []string) {
	gen := p.sess.NextGeneration()

	p.mu.Lock()
	// 先释放上一首的可播放流，保证任何时刻只有一个活的流句柄
	p.current = Track{AudioPath: audioPath}
	p.mu.Unlock()

	p.logger.Printf("Active track changed to %s (generation %d).", filepath.Base(audioPath), gen)

	go p.loadLyrics(gen, audioPath, lyricCandidates)
	go p.loadAudio(gen, audioPath)
}

// loadLyrics 依次尝试歌词候选：解析出至少一行即采用；
// 解析为零行视同无歌词，换下一个候选。每轮都核对代数，
// 曲目已切换时立即停止发起后续读取。
func (p *Player) loadLyrics(gen uint64, audioPath string, candidates []string) {
	hint := p.encodingHint(audioPath)
	remaining := candidates

	for {
		if p.sess.Generation() != gen {
			p.logger.Printf("  -> Lyric load for %s superseded, aborting.", filepath.Base(audioPath))
			return
		}
		lyricPath := p.resolver.Resolve(audioPath, remaining)
		if lyricPath == "" {
			p.logger.Printf("  -> No lyric file found for %s.", filepath.Base(audioPath))
			return
		}

		lines, encodingName, err := p.loadLyricFile(lyricPath, hint)
		if err != nil {
			// 候选不可读视同不存在，静默换下一个
			p.logger.Printf("  -> Cannot read lyric candidate %s: %v", filepath.Base(lyricPath), err)
			remaining = without(remaining, lyricPath)
			continue
		}
		if len(lines) == 0 {
			p.logger.Printf("  -> Lyric candidate %s parsed to zero lines, trying next.", filepath.Base(lyricPath))
			remaining = without(remaining, lyricPath)
			continue
		}

		if !p.sess.SetLines(gen, lines) {
			return
		}
		p.mu.Lock()
		if p.current.AudioPath == audioPath {
			p.current.LyricPath = lyricPath
			p.current.Encoding = encodingName
		}
		p.mu.Unlock()
		p.logger.Printf("  -> Loaded %d lyric lines from %s (encoding %s).", len(lines), filepath.Base(lyricPath), encodingName)

		if err := p.prefs.SetEncoding(audioPath, encodingName); err != nil {
			p.logger.Printf("  -> WARN: Failed to persist encoding preference: %v", err)
		}
		return
	}
}

// loadLyricFile 读取并解码一个歌词文件
func (p *Player) loadLyricFile(lyricPath, hint string) ([]lyric.Line, string, error) {
	data, err := os.ReadFile(lyricPath)
	if err != nil {
		return nil, "", err
	}
	text, encodingName := p.detector.Decode(data, hint)
	text = p.converter.TradToSim(text)
	return lyric.Parse(text), encodingName, nil
}

// loadAudio 加载音频字节流，迟到的结果被丢弃
func (p *Player) loadAudio(gen uint64, audioPath string) {
	src, err := p.loader.Load(audioPath)
	if err != nil {
		p.logger.Printf("ERROR: Cannot read or decode audio file %s: %v", filepath.Base(audioPath), err)
		return
	}

	info, err := audiosource.ReadTrackInfo(audioPath)
	if err != nil {
		info = &audiosource.TrackInfo{}
	}
	// 标签格式不携带时长，用 ffprobe 补齐
	if info.Duration <= 0 {
		if d, err := p.loader.ProbeDuration(audioPath); err == nil {
			info.Duration = d
		} else {
			p.logger.Printf("  -> WARN: Failed to probe duration for %s: %v", filepath.Base(audioPath), err)
		}
	}

	if p.sess.Generation() != gen {
		p.logger.Printf("  -> Audio load for %s superseded, discarding.", filepath.Base(audioPath))
		return
	}
	p.mu.Lock()
	if p.current.AudioPath == audioPath {
		p.current.Source = src
		p.current.Info = info
	}
	p.mu.Unlock()
	p.logger.Printf("  -> Audio source ready for %s: kind=%s mime=%s (%d bytes).",
		filepath.Base(audioPath), src.Kind, src.MIME, len(src.Data))
}

// encodingHint 读取曲目的编码偏好，读取失败时退回自动探测
func (p *Player) encodingHint(audioPath string) string {
	hint, err := p.prefs.EncodingFor(audioPath)
	if err != nil {
		p.logger.Printf("  -> WARN: Failed to read encoding preference for %s: %v", filepath.Base(audioPath), err)
		return textenc.EncodingAuto
	}
	if hint == "" {
		return textenc.EncodingAuto
	}
	return hint
}

// SaveOffset 把当前歌词偏移写回歌词文件。成功后重新解析写入的内容
// 安装到会话并把偏移归零；失败时会话状态原样保留，用户可以重试。
func (p *Player) SaveOffset() error {
	p.mu.Lock()
	lyricPath := p.current.LyricPath
	p.mu.Unlock()
	if lyricPath == "" {
		return ErrNoLyricLoaded
	}

	gen := p.sess.Generation()
	lines := p.sess.Lines()
	offset := p.sess.Offset()

	content, err := p.persister.SaveShift(lyricPath, lines, offset)
	if err != nil {
		return fmt.Errorf("failed to save lyric offset: %w", err)
	}

	// 往返校验：以写入的内容为准重建会话状态
	if !p.sess.SetLines(gen, lyric.Parse(content)) {
		return nil
	}
	p.sess.ResetOffset()
	p.logger.Printf("Lyric offset %.1fs baked into %s.", offset, filepath.Base(lyricPath))
	return nil
}

// without 返回去掉指定元素后的新切片
func without(paths []string, drop string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p != drop {
			out = append(out, p)
		}
	}
	return out
}
