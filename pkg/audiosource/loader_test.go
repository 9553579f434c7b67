package audiosource

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	output   []byte
	err      error
	lastName string
	lastArgs []string
}

func (f *fakeRunner) Run(name string, args ...string) ([]byte, error) {
	f.lastName = name
	f.lastArgs = args
	return f.output, f.err
}

func newTestLogger() *log.Logger {
	return log.New(os.Stderr, "", 0)
}

func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestLoadNativeFormat(t *testing.T) {
	path := writeTempFile(t, "song.mp3", []byte("mp3-bytes"))
	l := NewLoaderWithRunner("ffmpeg", "ffprobe", &fakeRunner{}, newTestLogger())

	src, err := l.Load(path)

	require.NoError(t, err)
	assert.Equal(t, KindNative, src.Kind)
	assert.Equal(t, "audio/mpeg", src.MIME)
	assert.Equal(t, []byte("mp3-bytes"), src.Data)
}

func TestLoadLegacyTranscoded(t *testing.T) {
	path := writeTempFile(t, "old.wma", []byte("wma-bytes"))
	runner := &fakeRunner{output: []byte("RIFF-wav-bytes")}
	l := NewLoaderWithRunner("/usr/bin/ffmpeg", "ffprobe", runner, newTestLogger())

	src, err := l.Load(path)

	require.NoError(t, err)
	assert.Equal(t, KindTranscoded, src.Kind)
	assert.Equal(t, "audio/wav", src.MIME)
	assert.Equal(t, []byte("RIFF-wav-bytes"), src.Data)

	assert.Equal(t, "/usr/bin/ffmpeg", runner.lastName)
	assert.Contains(t, runner.lastArgs, path)
	assert.Contains(t, runner.lastArgs, "pcm_s16le")
	assert.Contains(t, runner.lastArgs, "pipe:1")
}

func TestLoadLegacyFallsBackToRaw(t *testing.T) {
	path := writeTempFile(t, "old.wma", []byte("wma-bytes"))
	runner := &fakeRunner{err: fmt.Errorf("ffmpeg not found")}
	l := NewLoaderWithRunner("ffmpeg", "ffprobe", runner, newTestLogger())

	src, err := l.Load(path)

	require.NoError(t, err)
	// 转码失败不阻断播放，退化为原始字节
	assert.Equal(t, KindRaw, src.Kind)
	assert.Equal(t, "audio/x-ms-wma", src.MIME)
	assert.Equal(t, []byte("wma-bytes"), src.Data)
}

func TestLoadLegacyEmptyTranscodeOutput(t *testing.T) {
	path := writeTempFile(t, "old.wma", []byte("wma-bytes"))
	runner := &fakeRunner{output: nil}
	l := NewLoaderWithRunner("ffmpeg", "ffprobe", runner, newTestLogger())

	src, err := l.Load(path)

	require.NoError(t, err)
	assert.Equal(t, KindRaw, src.Kind)
}

func TestLoadMissingFile(t *testing.T) {
	l := NewLoaderWithRunner("ffmpeg", "ffprobe", &fakeRunner{}, newTestLogger())

	src, err := l.Load(filepath.Join(t.TempDir(), "missing.flac"))

	assert.Nil(t, src)
	assert.Error(t, err)
}

func TestProbeDuration(t *testing.T) {
	runner := &fakeRunner{output: []byte("185.500000\n")}
	l := NewLoaderWithRunner("ffmpeg", "/usr/bin/ffprobe", runner, newTestLogger())

	d, err := l.ProbeDuration("/music/song.flac")

	require.NoError(t, err)
	assert.InDelta(t, 185.5, d, 0.001)
	assert.Equal(t, "/usr/bin/ffprobe", runner.lastName)
	assert.Contains(t, runner.lastArgs, "/music/song.flac")
	assert.Contains(t, runner.lastArgs, "format=duration")
}

func TestProbeDurationEmptyOutput(t *testing.T) {
	runner := &fakeRunner{output: []byte("  \n")}
	l := NewLoaderWithRunner("ffmpeg", "ffprobe", runner, newTestLogger())

	_, err := l.ProbeDuration("/music/song.flac")

	assert.Error(t, err)
}

func TestProbeDurationGarbageOutput(t *testing.T) {
	runner := &fakeRunner{output: []byte("N/A\n")}
	l := NewLoaderWithRunner("ffmpeg", "ffprobe", runner, newTestLogger())

	_, err := l.ProbeDuration("/music/song.flac")

	assert.Error(t, err)
}

func TestMIMEFallback(t *testing.T) {
	path := writeTempFile(t, "weird.xyz", []byte("bytes"))
	l := NewLoaderWithRunner("ffmpeg", "ffprobe", &fakeRunner{}, newTestLogger())

	src, err := l.Load(path)

	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", src.MIME)
}
