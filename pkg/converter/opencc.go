package converter

import (
	"fmt"
	"log"

	"github.com/liuzl/gocc"
)

// openCCConverter 是 TextConverter 的 OpenCC 实现，
// 用于把繁体歌词按需转换为简体后再展示
type openCCConverter struct {
	converter *gocc.OpenCC
	logger    *log.Logger
}

// NewOpenCCConverter 初始化并返回一个 OpenCC 转换器实例
func NewOpenCCConverter(logger *log.Logger) (TextConverter, error) {
	// t2s.json 代表 Traditional Chinese to Simplified Chinese
	cc, err := gocc.New("t2s")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenCC converter: %w", err)
	}
	logger.Println("OpenCC converter (t2s) initialized.")
	return &openCCConverter{converter: cc, logger: logger}, nil
}

// TradToSim 将繁体中文转换为简体，转换失败时返回原文
func (c *openCCConverter) TradToSim(text string) string {
	out, err := c.converter.Convert(text)
	if err != nil {
		c.logger.Printf("WARN: Failed to convert text from Traditional to Simplified: %v", err)
		return text
	}
	return out
}
