// Package display 把当前歌词写到文本输出，供悬浮窗等外部组件消费。
package display

import (
	"log"
	"os"
	"strings"
)

// Display 维护一个滚动的 n 行文本输出
type Display struct {
	numLines   int
	lines      []string
	outputPath string
	logger     *log.Logger
}

// NewDisplay 创建一个新的 Display，numLines 最小为 1
func NewDisplay(numLines int, outputPath string, logger *log.Logger) *Display {
	if numLines < 1 {
		numLines = 1
	}
	return &Display{
		numLines:   numLines,
		lines:      make([]string, 0, numLines),
		outputPath: outputPath,
		logger:     logger,
	}
}

// Clear 清空输出
func (d *Display) Clear() {
	d.lines = d.lines[:0]
	d.flush()
}

// PushLine 追加一行，超出容量时滚动丢弃最早的一行
func (d *Display) PushLine(line string) {
	if len(d.lines) >= d.numLines {
		d.lines = d.lines[1:]
	}
	d.lines = append(d.lines, line)
	d.flush()
}

// ShowCurrent 显示当前行与下一行，覆盖之前的内容
func (d *Display) ShowCurrent(current, next string) {
	d.lines = d.lines[:0]
	d.lines = append(d.lines, current)
	if next != "" {
		d.lines = append(d.lines, next)
	}
	d.flush()
}

// SingleLine 只显示一行文本
func (d *Display) SingleLine(line string) {
	d.lines = d.lines[:0]
	d.lines = append(d.lines, line)
	d.flush()
}

func (d *Display) flush() {
	content := strings.Join(d.lines, "\n") + "\n"
	if err := os.WriteFile(d.outputPath, []byte(content), 0644); err != nil {
		d.logger.Printf("Error writing to display output %s: %v", d.outputPath, err)
	}
}
