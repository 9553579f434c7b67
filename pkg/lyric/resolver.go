package lyric

import (
	"log"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Resolver 在扫描到的歌词文件里为音频文件挑选最匹配的一个。
// 只考虑与音频文件同目录的候选；匹配按四档依次进行：
//  1. 文件名主干精确相等且扩展名为 .lrc，命中立即返回；
//  2. 主干精确相等但扩展名不同（如 .txt），记为备选；
//  3. 去掉全部空白后主干相等的宽松匹配；
//  4. 去掉空白后一方主干包含另一方的兜底匹配。
//
// 精确匹配必须压过模糊匹配：真实曲库里常见
// "Song Name (live).lrc" 和 "Song Name.lrc" 并存的情况。
type Resolver struct {
	logger *log.Logger
}

// NewResolver 创建一个新的 Resolver 实例
func NewResolver(logger *log.Logger) *Resolver {
	return &Resolver{logger: logger}
}

// Resolve 返回最匹配的歌词文件路径，没有合适候选时返回空字符串
func (r *Resolver) Resolve(audioPath string, candidates []string) string {
	audioDir := foldDir(audioPath)
	audioStem := foldStem(audioPath)
	if audioStem == "" {
		return ""
	}

	// 第一、二档：主干精确匹配
	fallback := ""
	for _, cand := range candidates {
		if foldDir(cand) != audioDir {
			continue
		}
		if foldStem(cand) != audioStem {
			continue
		}
		if isLRC(cand) {
			r.logger.Printf("  -> Exact lyric match for %s: %s", filepath.Base(audioPath), filepath.Base(cand))
			return cand
		}
		if fallback == "" {
			fallback = cand
		}
	}
	if fallback != "" {
		r.logger.Printf("  -> Exact stem match (non-lrc) for %s: %s", filepath.Base(audioPath), filepath.Base(fallback))
		return fallback
	}

	// 第三档：去空白后的宽松匹配
	squashedAudio := squash(audioStem)
	fallback = ""
	for _, cand := range candidates {
		if foldDir(cand) != audioDir {
			continue
		}
		if squash(foldStem(cand)) != squashedAudio {
			continue
		}
		if isLRC(cand) {
			r.logger.Printf("  -> Loose lyric match for %s: %s", filepath.Base(audioPath), filepath.Base(cand))
			return cand
		}
		if fallback == "" {
			fallback = cand
		}
	}
	if fallback != "" {
		return fallback
	}

	// 第四档：同目录内主干互相包含的兜底
	for _, cand := range candidates {
		if foldDir(cand) != audioDir {
			continue
		}
		squashedCand := squash(foldStem(cand))
		if squashedCand == "" {
			continue
		}
		if strings.Contains(squashedCand, squashedAudio) || strings.Contains(squashedAudio, squashedCand) {
			r.logger.Printf("  -> Containment lyric match for %s: %s", filepath.Base(audioPath), filepath.Base(cand))
			return cand
		}
	}

	return ""
}

// foldDir 归一化目录用于比较：统一斜杠并忽略大小写
func foldDir(path string) string {
	return strings.ToLower(filepath.ToSlash(filepath.Dir(path)))
}

// foldStem 归一化文件名主干：NFC 规范化、去首尾空白、忽略大小写
func foldStem(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(stem)))
}

// squash 去掉字符串中的全部空白
func squash(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// isLRC 判断扩展名是否为 .lrc
func isLRC(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".lrc")
}
