package textenc

import (
	"bytes"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

func newTestDetector() *Detector {
	return NewDetector(log.New(os.Stderr, "", 0))
}

func encodeWith(t *testing.T, enc transform.Transformer, text string) []byte {
	t.Helper()
	out, _, err := transform.Bytes(enc, []byte(text))
	require.NoError(t, err)
	return out
}

func TestDecodeUTF8BOM(t *testing.T) {
	d := newTestDetector()
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("你好")...)

	text, name := d.Decode(data, EncodingAuto)

	assert.Equal(t, "你好", text)
	assert.Equal(t, EncodingUTF8, name)
}

func TestDecodeUTF16BOM(t *testing.T) {
	d := newTestDetector()
	le := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder()
	data := append([]byte{0xFF, 0xFE}, encodeWith(t, le, "[00:01.00]你好")...)

	text, name := d.Decode(data, EncodingAuto)

	assert.Equal(t, "[00:01.00]你好", text)
	assert.Equal(t, EncodingUTF16LE, name)

	be := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder()
	data = append([]byte{0xFE, 0xFF}, encodeWith(t, be, "[00:01.00]你好")...)

	text, name = d.Decode(data, EncodingAuto)

	assert.Equal(t, "[00:01.00]你好", text)
	assert.Equal(t, EncodingUTF16BE, name)
}

func TestDecodeGBKAuto(t *testing.T) {
	d := newTestDetector()
	original := "[00:01.00]你好世界\n[00:02.50]再见"
	data := encodeWith(t, simplifiedchinese.GBK.NewEncoder(), original)

	text, name := d.Decode(data, EncodingAuto)

	assert.Equal(t, original, text)
	// GB18030 是 GBK 的超集，候选顺序在前，解码结果相同
	assert.Contains(t, []string{EncodingGB18030, EncodingGBK}, name)
}

// 纯假名的 Shift_JIS 字节在 GB18030 下往往也能解出同样多的 CJK 字符，
// 自动探测分不出高下，这正是编码偏好存储存在的意义：用提示直接解。
func TestDecodeShiftJISHinted(t *testing.T) {
	d := newTestDetector()
	original := "[00:01.00]こんにちは\n[00:03.00]さようなら"
	data := encodeWith(t, japanese.ShiftJIS.NewEncoder(), original)

	text, name := d.Decode(data, EncodingShiftJIS)

	assert.Equal(t, original, text)
	assert.Equal(t, EncodingShiftJIS, name)
}

func TestDecodeHinted(t *testing.T) {
	d := newTestDetector()
	data := encodeWith(t, simplifiedchinese.GBK.NewEncoder(), "随便一段没有标签的文本")

	text, name := d.Decode(data, EncodingGBK)

	assert.Equal(t, "随便一段没有标签的文本", text)
	assert.Equal(t, EncodingGBK, name)
}

func TestDecodeHintedUTF16StripsBOM(t *testing.T) {
	d := newTestDetector()
	le := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder()
	withBOM := append([]byte{0xFF, 0xFE}, encodeWith(t, le, "歌词")...)
	withoutBOM := encodeWith(t, le, "歌词")

	text, _ := d.Decode(withBOM, EncodingUTF16LE)
	assert.Equal(t, "歌词", text)

	text, _ = d.Decode(withoutBOM, EncodingUTF16LE)
	assert.Equal(t, "歌词", text)
}

// 时间标签是比 CJK 密度强得多的正确性信号：
// UTF-16LE 编码的歌词在 GBK 等候选下会解出大量“看起来像”中文的字符，
// 但标签会被 NUL 字节打断，探测必须选中标签完好的解码。
func TestTagDecodePriority(t *testing.T) {
	d := newTestDetector()
	le := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder()
	original := "[00:01.00]我们的爱情像流水一样长长久久不分离"
	data := encodeWith(t, le, original)

	text, name := d.Decode(data, EncodingAuto)

	assert.Equal(t, original, text)
	assert.Equal(t, EncodingUTF16LE, name)
}

func TestTagBonusDominatesCJKDensity(t *testing.T) {
	dense := ""
	for i := 0; i < 500; i++ {
		dense += "歌"
	}
	denseScore, denseTagged := scoreText(dense)
	taggedScore, tagged := scoreText("[00:01.00]词")

	assert.False(t, denseTagged)
	assert.True(t, tagged)
	assert.Greater(t, taggedScore, denseScore)
}

func TestDecodeNeverFails(t *testing.T) {
	d := newTestDetector()
	garbage := []byte{0xFF, 0x00, 0xC3, 0x28, 0xA0, 0xA1, 0xF0, 0x28, 0x8C, 0x28}

	text, name := d.Decode(garbage, EncodingAuto)

	assert.NotEmpty(t, name)
	_ = text // 任何结果都可以，只要不崩溃

	text, name = d.Decode(nil, EncodingAuto)
	assert.Equal(t, "", text)
	assert.Equal(t, EncodingUTF8, name)
}

func TestHintCaseInsensitive(t *testing.T) {
	d := newTestDetector()
	data := encodeWith(t, simplifiedchinese.GBK.NewEncoder(), "[00:01.00]你好")

	text, name := d.Decode(data, "GBK")

	assert.Equal(t, "[00:01.00]你好", text)
	assert.Equal(t, EncodingGBK, name)
}

func TestAutoHintCaseInsensitive(t *testing.T) {
	var buf bytes.Buffer
	d := NewDetector(log.New(&buf, "", 0))

	text, name := d.Decode([]byte("[00:01.00]Hello"), "Auto")

	assert.Equal(t, "[00:01.00]Hello", text)
	assert.Equal(t, EncodingUTF8, name)
	// "Auto" 走自动探测，不该当成未知编码提示告警
	assert.NotContains(t, buf.String(), "Unknown encoding hint")
}

func TestUnknownHintFallsBackToAuto(t *testing.T) {
	d := newTestDetector()
	data := []byte("[00:01.00]Hello")

	text, name := d.Decode(data, "koi8-r")

	assert.Equal(t, "[00:01.00]Hello", text)
	assert.Equal(t, EncodingUTF8, name)
}
