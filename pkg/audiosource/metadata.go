package audiosource

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dhowden/tag"
)

// TrackInfo 音频文件内嵌的标签元数据
type TrackInfo struct {
	Title    string
	Artist   string
	Album    string
	Year     int
	Duration float64 // 秒，标签里没有时由 ffprobe 补齐
}

// ReadTrackInfo 从音频文件读取内嵌标签。读不到标签时返回错误，
// 调用方可以退回用文件名展示。标签格式不携带时长，
// Duration 留空由调用方用 ProbeDuration 补齐。
func ReadTrackInfo(path string) (*TrackInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file %s: %w", path, err)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read tags from %s: %w", path, err)
	}
	return &TrackInfo{
		Title:  strings.TrimSpace(m.Title()),
		Artist: strings.TrimSpace(m.Artist()),
		Album:  strings.TrimSpace(m.Album()),
		Year:   m.Year(),
	}, nil
}

// ProbeDuration 用 ffprobe 读取音频时长（秒），标签里没有时长时使用
func (l *Loader) ProbeDuration(path string) (float64, error) {
	out, err := l.runner.Run(l.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("ffprobe error: %w", err)
	}
	raw := strings.TrimSpace(string(out))
	if raw == "" {
		return 0, fmt.Errorf("empty duration output from ffprobe")
	}
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration: %w (raw=%q)", err, raw)
	}
	return seconds, nil
}
