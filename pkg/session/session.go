// Package session 维护当前曲目的播放时钟与歌词同步状态。
package session

import (
	"math"
	"sort"
	"sync"

	"github.com/yleoer/melody/pkg/lyric"
)

// 偏移量限制：用户可调偏移被钳制在 ±30 秒，每次调整步长 0.5 秒
const (
	MinOffset  = -30.0
	MaxOffset  = 30.0
	OffsetStep = 0.5

	// 小于该值的对齐修正视为无变化
	minRealignDelta = 0.001
)

// Snapshot 是会话状态的一次性只读采样。
// 时钟只采样一次，活动行、下一行都从同一份采样推导，
// 避免两次取样跨过行边界导致的不一致。
type Snapshot struct {
	Generation  uint64
	CurrentTime float64
	Offset      float64
	Effective   float64
	ActiveIndex int
	CurrentLine string
	NextLine    string
	LineCount   int
}

// Session 是当前活动曲目独占的播放/歌词会话。
// 歌词行缓冲与时钟归当前曲目所有：切歌时整体替换而不是合并，
// 代数（generation）用于丢弃迟到的异步加载结果。
type Session struct {
	mu          sync.Mutex
	generation  uint64
	currentTime float64
	offset      float64
	lines       []lyric.Line
	heldIndex   int
}

// NewSession 创建一个空会话
func NewSession() *Session {
	return &Session{heldIndex: -1}
}

// NextGeneration 开始一首新曲目：递增代数，清空歌词行，
// 时钟与偏移归零，返回新代数供异步加载方捕获。
func (s *Session) NextGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.currentTime = 0
	s.offset = 0
	s.lines = nil
	s.heldIndex = -1
	return s.generation
}

// Generation 返回当前代数
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// SetLines 安装解析好的歌词行。gen 与当前代数不一致时说明
// 这是一次迟到的加载，结果被丢弃并返回 false。
func (s *Session) SetLines(gen uint64, lines []lyric.Line) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return false
	}
	s.lines = lines
	s.heldIndex = -1
	return true
}

// Lines 返回当前歌词行的副本
func (s *Session) Lines() []lyric.Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]lyric.Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// Tick 由播放引擎的时间更新事件驱动，推进播放时钟
func (s *Session) Tick(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentTime = seconds
}

// AdjustOffset 按步长调整歌词偏移，steps 为正表示歌词提前。
// 结果始终钳制在 [MinOffset, MaxOffset]，返回调整后的偏移。
func (s *Session) AdjustOffset(steps int) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offset = clampOffset(s.offset + float64(steps)*OffsetStep)
	return s.offset
}

// SetOffset 直接设置偏移（钳制后生效），返回实际值
func (s *Session) SetOffset(seconds float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offset = clampOffset(seconds)
	return s.offset
}

// Offset 返回当前偏移
func (s *Session) Offset() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offset
}

// ResetOffset 将偏移归零（偏移被写入文件后调用）
func (s *Session) ResetOffset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offset = 0
}

// HoldLine 按住某一行，作为两段式手动对齐手势的第一阶段。
// 单次点击无法同时选定目标行和捕获“现在”，所以需要先按住再松开。
func (s *Session) HoldLine(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.lines) {
		s.heldIndex = -1
		return
	}
	s.heldIndex = index
}

// ReleaseLine 松开手势的第二阶段。在按住的同一行上松开时，
// 把该行对齐到当前有效时间（取整到十分之一秒），并把后续所有行
// 平移同样的差值：一次手动修正通常反映的是此后整首歌的恒定漂移。
// 在不同的行上松开只会把按住目标换成新行，不产生任何修改。
// 返回实际应用的差值；差值小于阈值或无可应用时 applied 为 false。
func (s *Session) ReleaseLine(index int) (delta float64, applied bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.heldIndex < 0 || index < 0 || index >= len(s.lines) {
		s.heldIndex = -1
		return 0, false
	}
	if index != s.heldIndex {
		// 换目标，不应用
		s.heldIndex = index
		return 0, false
	}
	s.heldIndex = -1

	rounded := math.Round((s.currentTime+s.offset)*10) / 10
	minTarget := 0.0
	if index > 0 {
		minTarget = s.lines[index-1].Time + 0.1
	}
	target := math.Max(minTarget, rounded)
	delta = target - s.lines[index].Time
	if math.Abs(delta) < minRealignDelta {
		return 0, false
	}

	for i := index; i < len(s.lines); i++ {
		s.lines[i].Time = math.Max(0, s.lines[i].Time+delta)
	}
	return delta, true
}

// Snapshot 对时钟采样一次并推导全部派生值
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	effective := s.currentTime + s.offset
	active := activeIndexAt(s.lines, effective)

	snap := Snapshot{
		Generation:  s.generation,
		CurrentTime: s.currentTime,
		Offset:      s.offset,
		Effective:   effective,
		ActiveIndex: active,
		LineCount:   len(s.lines),
	}
	if len(s.lines) == 0 {
		return snap
	}
	if active < 0 {
		snap.CurrentLine = s.lines[0].Text
		if len(s.lines) > 1 {
			snap.NextLine = s.lines[1].Text
		}
		return snap
	}
	snap.CurrentLine = s.lines[active].Text
	if active+1 < len(s.lines) {
		snap.NextLine = s.lines[active+1].Text
	}
	return snap
}

// ActiveIndex 返回有效时间对应的活动行下标，播放未到第一行时为 -1
func (s *Session) ActiveIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return activeIndexAt(s.lines, s.currentTime+s.offset)
}

// activeIndexAt 返回满足 lines[i].Time <= t 的最大下标 i，没有则 -1
func activeIndexAt(lines []lyric.Line, t float64) int {
	return sort.Search(len(lines), func(i int) bool {
		return lines[i].Time > t
	}) - 1
}

func clampOffset(v float64) float64 {
	return math.Min(MaxOffset, math.Max(MinOffset, v))
}
