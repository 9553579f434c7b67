package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yleoer/melody/pkg/lyric"
)

func newSessionWithLines(t *testing.T, lines []lyric.Line) *Session {
	t.Helper()
	s := NewSession()
	gen := s.NextGeneration()
	require.True(t, s.SetLines(gen, lines))
	return s
}

func twoLines() []lyric.Line {
	return []lyric.Line{
		{Time: 1.0, Text: "Hello"},
		{Time: 2.5, Text: "World"},
	}
}

func TestSnapshotActiveAndNextLine(t *testing.T) {
	s := newSessionWithLines(t, twoLines())
	s.Tick(1.5)

	snap := s.Snapshot()
	assert.Equal(t, 0, snap.ActiveIndex)
	assert.Equal(t, "Hello", snap.CurrentLine)
	assert.Equal(t, "World", snap.NextLine)
}

func TestSnapshotBeforeFirstLine(t *testing.T) {
	s := newSessionWithLines(t, twoLines())
	s.Tick(0.5)

	snap := s.Snapshot()
	assert.Equal(t, -1, snap.ActiveIndex)
	// 播放未到第一行时预显示第一行，下一行是第二行
	assert.Equal(t, "Hello", snap.CurrentLine)
	assert.Equal(t, "World", snap.NextLine)
}

func TestSnapshotEmptyLines(t *testing.T) {
	s := NewSession()
	s.NextGeneration()
	s.Tick(10)

	snap := s.Snapshot()
	assert.Equal(t, -1, snap.ActiveIndex)
	assert.Equal(t, "", snap.CurrentLine)
	assert.Equal(t, "", snap.NextLine)
}

func TestActiveIndexMonotonic(t *testing.T) {
	s := newSessionWithLines(t, []lyric.Line{
		{Time: 1, Text: "a"}, {Time: 2, Text: "b"}, {Time: 5, Text: "c"}, {Time: 9, Text: "d"},
	})

	prev := -2
	for tick := 0.0; tick <= 10.0; tick += 0.25 {
		s.Tick(tick)
		idx := s.ActiveIndex()
		assert.GreaterOrEqual(t, idx, prev)
		prev = idx
	}
	assert.Equal(t, 3, prev)
}

func TestOffsetClamped(t *testing.T) {
	s := NewSession()
	s.NextGeneration()

	for i := 0; i < 100; i++ {
		s.AdjustOffset(1)
	}
	assert.InDelta(t, MaxOffset, s.Offset(), 0.001)

	for i := 0; i < 300; i++ {
		s.AdjustOffset(-1)
	}
	assert.InDelta(t, MinOffset, s.Offset(), 0.001)
}

func TestOffsetAffectsEffectiveTime(t *testing.T) {
	s := newSessionWithLines(t, twoLines())
	s.Tick(0.8)
	assert.Equal(t, -1, s.ActiveIndex())

	s.AdjustOffset(1) // +0.5s，有效时间 1.3
	assert.Equal(t, 0, s.ActiveIndex())
}

func TestOffsetResetOnNewGeneration(t *testing.T) {
	s := newSessionWithLines(t, twoLines())
	s.AdjustOffset(3)
	require.InDelta(t, 1.5, s.Offset(), 0.001)

	s.NextGeneration()
	assert.InDelta(t, 0.0, s.Offset(), 0.001)
	assert.Empty(t, s.Lines())
}

func TestStaleSetLinesDiscarded(t *testing.T) {
	s := NewSession()
	oldGen := s.NextGeneration()
	s.NextGeneration()

	// 迟到的加载结果必须被丢弃
	assert.False(t, s.SetLines(oldGen, twoLines()))
	assert.Empty(t, s.Lines())
}

func TestReleaseLineShiftsTail(t *testing.T) {
	s := newSessionWithLines(t, twoLines())
	s.Tick(2.0)

	s.HoldLine(1)
	delta, applied := s.ReleaseLine(1)

	require.True(t, applied)
	// minTarget = 1.0+0.1 = 1.1, target = max(1.1, 2.0) = 2.0, delta = -0.5
	assert.InDelta(t, -0.5, delta, 0.001)
	lines := s.Lines()
	assert.InDelta(t, 1.0, lines[0].Time, 0.001)
	assert.InDelta(t, 2.0, lines[1].Time, 0.001)
}

func TestReleaseLineShiftsAllSubsequent(t *testing.T) {
	s := newSessionWithLines(t, []lyric.Line{
		{Time: 1, Text: "a"}, {Time: 5, Text: "b"}, {Time: 7, Text: "c"}, {Time: 9, Text: "d"},
	})
	s.Tick(4.0)

	s.HoldLine(1)
	delta, applied := s.ReleaseLine(1)

	require.True(t, applied)
	assert.InDelta(t, -1.0, delta, 0.001)
	lines := s.Lines()
	assert.InDelta(t, 1.0, lines[0].Time, 0.001)
	assert.InDelta(t, 4.0, lines[1].Time, 0.001)
	assert.InDelta(t, 6.0, lines[2].Time, 0.001)
	assert.InDelta(t, 8.0, lines[3].Time, 0.001)
}

func TestReleaseLineIdempotent(t *testing.T) {
	s := newSessionWithLines(t, twoLines())
	s.Tick(2.0)

	s.HoldLine(1)
	_, applied := s.ReleaseLine(1)
	require.True(t, applied)

	// 时间没有前进时再次对齐同一行，不应产生累积平移
	s.HoldLine(1)
	delta, applied := s.ReleaseLine(1)
	assert.False(t, applied)
	assert.InDelta(t, 0.0, delta, 0.001)
}

func TestReleaseOnDifferentLineRetargets(t *testing.T) {
	s := newSessionWithLines(t, twoLines())
	s.Tick(2.0)

	s.HoldLine(0)
	delta, applied := s.ReleaseLine(1)
	assert.False(t, applied)
	assert.InDelta(t, 0.0, delta, 0.001)

	// 重新定位后的目标在下一次同行松开时生效
	delta, applied = s.ReleaseLine(1)
	assert.True(t, applied)
	assert.InDelta(t, -0.5, delta, 0.001)
}

func TestReleaseWithoutHoldNoop(t *testing.T) {
	s := newSessionWithLines(t, twoLines())
	s.Tick(2.0)

	_, applied := s.ReleaseLine(1)
	assert.False(t, applied)
	lines := s.Lines()
	assert.InDelta(t, 2.5, lines[1].Time, 0.001)
}

func TestReleaseRespectsMinTarget(t *testing.T) {
	s := newSessionWithLines(t, twoLines())
	s.Tick(0.2) // 有效时间远早于前一行

	s.HoldLine(1)
	delta, applied := s.ReleaseLine(1)

	require.True(t, applied)
	// target 不会低于前一行时间 + 0.1
	assert.InDelta(t, 1.1-2.5, delta, 0.001)
	lines := s.Lines()
	assert.InDelta(t, 1.1, lines[1].Time, 0.001)
}
