// Package converter 提供歌词文本的繁简转换。
package converter

// TextConverter 定义文本转换器接口
type TextConverter interface {
	TradToSim(text string) string // 将繁体中文转换为简体
}

// noopConverter 不做任何转换，繁简转换被禁用时使用
type noopConverter struct{}

// NewNoopConverter 返回一个原样返回文本的转换器
func NewNoopConverter() TextConverter {
	return noopConverter{}
}

func (noopConverter) TradToSim(text string) string { return text }
