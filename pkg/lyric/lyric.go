// Package lyric 实现 LRC 歌词的解析、序列化与歌词文件匹配。
package lyric

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Line 一行带时间戳的歌词
type Line struct {
	Time float64 // 秒
	Text string
}

// timestampRegex 匹配行内的时间标签，如 [00:12]、[00:12.34]。
// 一个物理行可以携带多个标签（多个时间共享同一句歌词的 LRC 惯例）。
var timestampRegex = regexp.MustCompile(`\[(\d{1,3}):(\d{1,2}(?:\.\d+)?)\]`)

// Parse 将解码后的歌词文本解析为按时间升序的歌词行序列。
// 行上的每个时间标签各生成一个 Line，共享去掉标签后的文本；
// 没有时间标签的行被丢弃。排序是稳定的：相同时间保持原有相对顺序。
func Parse(text string) []Line {
	text = strings.TrimPrefix(text, "\ufeff")

	var lines []Line
	for _, raw := range strings.Split(text, "\n") {
		raw = strings.TrimSuffix(raw, "\r")
		matches := timestampRegex.FindAllStringSubmatch(raw, -1)
		if len(matches) == 0 {
			continue
		}
		content := strings.TrimSpace(timestampRegex.ReplaceAllString(raw, ""))
		for _, m := range matches {
			minutes, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			seconds, err := strconv.ParseFloat(m[2], 64)
			if err != nil {
				continue
			}
			lines = append(lines, Line{
				Time: float64(minutes)*60 + seconds,
				Text: content,
			})
		}
	}

	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].Time < lines[j].Time
	})
	return lines
}

// Serialize 将歌词行序列还原为 LRC 文本，每行形如 [mm:ss.fff]text，
// 毫秒固定三位，分钟补零到两位，以 \n 连接。
// 与 Parse 构成毫秒精度内的往返：Parse(Serialize(lines)) 等价于 lines。
func Serialize(lines []Line) string {
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		parts = append(parts, formatLine(line))
	}
	return strings.Join(parts, "\n")
}

// formatLine 格式化单行，先取整到毫秒避免 59.9995 这类进位问题
func formatLine(line Line) string {
	ms := int64(math.Round(line.Time * 1000))
	if ms < 0 {
		ms = 0
	}
	return fmt.Sprintf("[%02d:%02d.%03d]%s", ms/60000, ms%60000/1000, ms%1000, line.Text)
}

// Shift 返回整体平移 delta 秒后的新序列，时间下限为 0，原序列不变
func Shift(lines []Line, delta float64) []Line {
	shifted := make([]Line, len(lines))
	for i, line := range lines {
		shifted[i] = Line{Time: math.Max(0, line.Time+delta), Text: line.Text}
	}
	return shifted
}
