package player

import (
	"log"
	"os"

	"github.com/yleoer/melody/pkg/lyric"
)

// OffsetPersister 把调好的歌词偏移固化回 LRC 文件。
// 存储时间按 -offsetSeconds 平移：正的播放偏移意味着歌词出现得晚，
// 写盘时要从时间戳里减去它，让存储的行在下次播放时提前触发。
type OffsetPersister struct {
	logger *log.Logger
}

// NewOffsetPersister 创建一个新的 OffsetPersister 实例
func NewOffsetPersister(logger *log.Logger) *OffsetPersister {
	return &OffsetPersister{logger: logger}
}

// SaveShift 计算平移后的行序列，序列化为 LRC 文本并覆盖写入文件。
// 返回写入的内容供调用方做往返校验；写失败时文件与内存状态都不变。
func (op *OffsetPersister) SaveShift(lyricPath string, lines []lyric.Line, offsetSeconds float64) (string, error) {
	shifted := lyric.Shift(lines, -offsetSeconds)
	content := lyric.Serialize(shifted)
	if err := os.WriteFile(lyricPath, []byte(content), 0644); err != nil {
		return "", err
	}
	op.logger.Printf("  -> Wrote %d shifted lines to %s.", len(shifted), lyricPath)
	return content, nil
}
