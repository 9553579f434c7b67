// Package scanner 扫描曲库目录，维护音频文件与歌词候选文件的索引。
package scanner

import (
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// audioExtensions 识别为音频的扩展名
var audioExtensions = map[string]bool{
	".wav": true, ".flac": true, ".mp3": true, ".m4a": true,
	".aac": true, ".ogg": true, ".ape": true, ".wv": true, ".wma": true,
}

// lyricExtensions 识别为歌词候选的扩展名
var lyricExtensions = map[string]bool{
	".lrc": true, ".txt": true,
}

// Index 一次扫描得到的文件清单，路径按字典序排列保证确定性
type Index struct {
	AudioFiles []string
	LyricFiles []string
}

// LibraryScanner 扫描用户选择的文件夹并缓存最近一次的索引
type LibraryScanner struct {
	mu     sync.Mutex
	latest map[string]*Index // 按根目录缓存
	logger *log.Logger
}

// NewLibraryScanner 创建一个新的 LibraryScanner 实例
func NewLibraryScanner(logger *log.Logger) *LibraryScanner {
	return &LibraryScanner{latest: make(map[string]*Index), logger: logger}
}

// ScanFolder 递归扫描一个根目录，返回分类后的索引。
// 单个文件或子目录的读取错误只记录日志，不中断整体扫描。
func (s *LibraryScanner) ScanFolder(root string) (*Index, error) {
	idx := &Index{}
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			s.logger.Printf("WARN: Error accessing %s during scan: %v", path, err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		switch {
		case audioExtensions[ext]:
			idx.AudioFiles = append(idx.AudioFiles, path)
		case lyricExtensions[ext]:
			idx.LyricFiles = append(idx.LyricFiles, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(idx.AudioFiles)
	sort.Strings(idx.LyricFiles)

	s.mu.Lock()
	s.latest[root] = idx
	s.mu.Unlock()

	s.logger.Printf("Scanned %s: %d audio files, %d lyric files.", root, len(idx.AudioFiles), len(idx.LyricFiles))
	return idx, nil
}

// LatestIndex 返回某根目录最近一次扫描的索引，没有时返回 nil
func (s *LibraryScanner) LatestIndex(root string) *Index {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest[root]
}

// LyricCandidatesFor 汇总所有已扫描目录中与音频文件同目录的歌词候选
func (s *LibraryScanner) LyricCandidatesFor(audioPath string) []string {
	dir := strings.ToLower(filepath.ToSlash(filepath.Dir(audioPath)))

	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, idx := range s.latest {
		for _, p := range idx.LyricFiles {
			if strings.ToLower(filepath.ToSlash(filepath.Dir(p))) == dir {
				out = append(out, p)
			}
		}
	}
	sort.Strings(out)
	return out
}
