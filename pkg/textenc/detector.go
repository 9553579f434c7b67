package textenc

import (
	"bytes"
	"log"
	"regexp"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// 支持的编码名称，"auto" 表示自动探测
const (
	EncodingAuto     = "auto"
	EncodingUTF8     = "utf-8"
	EncodingGB18030  = "gb18030"
	EncodingGBK      = "gbk"
	EncodingBig5     = "big5"
	EncodingShiftJIS = "shift_jis"
	EncodingEUCKR    = "euc-kr"
	EncodingUTF16LE  = "utf-16le"
	EncodingUTF16BE  = "utf-16be"
)

// 各种 BOM 前缀
var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// lrcTagRegex 匹配 LRC 时间标签，如 [00:12] 或 [00:12.34]
var lrcTagRegex = regexp.MustCompile(`\[\d{1,3}:\d{1,2}(?:\.\d+)?\]`)

// 评分权重。带 LRC 标签的候选优先级远高于其他信号：
// 一个解码即使 CJK 密度很高，只要把时间标签解坏了就不可用。
const (
	scoreLRCTag       = 1000.0
	scorePerCJKRune   = 0.1
	penaltyPerBadRune = 40.0
	penaltyPerNUL     = 3.0
)

// candidate 自动探测时依次尝试的候选编码，顺序固定
type candidate struct {
	name string
	enc  encoding.Encoding
}

var candidates = []candidate{
	{EncodingUTF8, unicode.UTF8},
	{EncodingGB18030, simplifiedchinese.GB18030},
	{EncodingGBK, simplifiedchinese.GBK},
	{EncodingBig5, traditionalchinese.Big5},
	{EncodingShiftJIS, japanese.ShiftJIS},
	{EncodingEUCKR, korean.EUCKR},
	{EncodingUTF16LE, unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)},
}

// byName 编码提示名称到具体编码的映射
var byName = map[string]encoding.Encoding{
	EncodingUTF8:     unicode.UTF8,
	EncodingGB18030:  simplifiedchinese.GB18030,
	EncodingGBK:      simplifiedchinese.GBK,
	EncodingBig5:     traditionalchinese.Big5,
	EncodingShiftJIS: japanese.ShiftJIS,
	EncodingEUCKR:    korean.EUCKR,
	EncodingUTF16LE:  unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	EncodingUTF16BE:  unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
}

// Detector 将任意编码的字节解码为 UTF-8 字符串。
// 永远不会返回错误：最坏情况下退化为带替换字符的 UTF-8 解码。
type Detector struct {
	logger *log.Logger
}

// NewDetector 创建一个新的 Detector 实例
func NewDetector(logger *log.Logger) *Detector {
	return &Detector{logger: logger}
}

// Decode 解码字节为 UTF-8 字符串，返回文本和实际采用的编码名称。
// hint 为具体编码名称时直接按该编码解码；为 "auto" 或空时自动探测：
// 先检查 BOM，没有 BOM 则对固定候选列表逐一解码并打分。
func (d *Detector) Decode(data []byte, hint string) (string, string) {
	if len(data) == 0 {
		return "", EncodingUTF8
	}

	hint = strings.ToLower(hint)
	if hint != "" && hint != EncodingAuto {
		if text, ok := d.decodeHinted(data, hint); ok {
			return text, hint
		}
		d.logger.Printf("WARN: Unknown encoding hint %q, falling back to auto detection.", hint)
	}

	// 1. BOM 优先，命中则无条件采用对应编码
	if name, text, ok := decodeBOM(data); ok {
		return text, name
	}

	// 2. 无 BOM：对候选编码逐一打分
	bestScore, bestText, bestName := 0.0, "", ""
	taggedScore, taggedText, taggedName := 0.0, "", ""
	for _, c := range candidates {
		text, err := decodeWith(c.enc, data)
		if err != nil {
			continue
		}
		score, hasTag := scoreText(text)
		if bestName == "" || score > bestScore {
			bestScore, bestText, bestName = score, text, c.name
		}
		if hasTag && (taggedName == "" || score > taggedScore) {
			taggedScore, taggedText, taggedName = score, text, c.name
		}
	}

	// 带时间标签的候选胜过纯分数更高的候选
	if taggedName != "" {
		return taggedText, taggedName
	}
	if bestName != "" {
		return bestText, bestName
	}

	// 3. 全部候选失败时退化为朴素 UTF-8
	return strings.ToValidUTF8(string(data), "�"), EncodingUTF8
}

// decodeHinted 按指定编码解码，hint 已由 Decode 统一转为小写。
// UTF-16 变体需要额外剥离可能存在的 BOM，没有 BOM 时按裸字节解码。
func (d *Detector) decodeHinted(data []byte, hint string) (string, bool) {
	enc, ok := byName[hint]
	if !ok {
		return "", false
	}
	switch hint {
	case EncodingUTF16LE:
		data = bytes.TrimPrefix(data, bomUTF16LE)
	case EncodingUTF16BE:
		data = bytes.TrimPrefix(data, bomUTF16BE)
	case EncodingUTF8:
		data = bytes.TrimPrefix(data, bomUTF8)
	}
	text, err := decodeWith(enc, data)
	if err != nil {
		// x/text 的解码器默认用替换字符兜底，理论上不会到这里
		return strings.ToValidUTF8(string(data), "�"), true
	}
	return text, true
}

// decodeBOM 检查开头的 BOM 并用对应编码解码剩余字节
func decodeBOM(data []byte) (string, string, bool) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return EncodingUTF8, string(bytes.TrimPrefix(data, bomUTF8)), true
	case bytes.HasPrefix(data, bomUTF16LE):
		text, err := decodeWith(byName[EncodingUTF16LE], bytes.TrimPrefix(data, bomUTF16LE))
		if err != nil {
			return "", "", false
		}
		return EncodingUTF16LE, text, true
	case bytes.HasPrefix(data, bomUTF16BE):
		text, err := decodeWith(byName[EncodingUTF16BE], bytes.TrimPrefix(data, bomUTF16BE))
		if err != nil {
			return "", "", false
		}
		return EncodingUTF16BE, text, true
	}
	return "", "", false
}

// decodeWith 用指定编码解码全部字节
func decodeWith(enc encoding.Encoding, data []byte) (string, error) {
	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// scoreText 对解码结果打分，并报告其中是否含有 LRC 时间标签
func scoreText(text string) (float64, bool) {
	hasTag := lrcTagRegex.MatchString(text)
	score := 0.0
	if hasTag {
		score += scoreLRCTag
	}
	for _, r := range text {
		switch {
		case isCJK(r):
			score += scorePerCJKRune
		case r == '�':
			score -= penaltyPerBadRune
		case r == 0:
			score -= penaltyPerNUL
		}
	}
	return score, hasTag
}

// isCJK 判断码点是否落在常见中日韩文字区间
func isCJK(r rune) bool {
	switch {
	case r >= 0x4E00 && r <= 0x9FFF: // CJK 统一表意文字
		return true
	case r >= 0x3400 && r <= 0x4DBF: // 扩展 A
		return true
	case r >= 0x3040 && r <= 0x30FF: // 平假名、片假名
		return true
	case r >= 0xAC00 && r <= 0xD7A3: // 谚文音节
		return true
	case r >= 0x3000 && r <= 0x303F: // CJK 标点
		return true
	case r >= 0xFF00 && r <= 0xFFEF: // 全角字符
		return true
	}
	return false
}

// KnownEncodings 返回所有可作为编码提示的名称（不含 auto）
func KnownEncodings() []string {
	return []string{
		EncodingUTF8, EncodingGB18030, EncodingGBK, EncodingBig5,
		EncodingShiftJIS, EncodingEUCKR, EncodingUTF16LE, EncodingUTF16BE,
	}
}
