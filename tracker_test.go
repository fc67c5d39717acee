package chronos

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestTracker() *Tracker {
	t := &Tracker{}
	t.reset()
	t.SetOrder([]uint8{0, 1})
	t.Patterns[0].Rows[0][0] = Cell{Note: 58, Vol: 0x20}
	t.Patterns[0].Rows[1][0] = Cell{Note: NoteOff}
	t.Patterns[1].Rows[0][3] = Cell{Note: 49, Vol: 0x7F}
	return t
}

func TestNoteFreq(t *testing.T) {
	assert.InDelta(t, 440, NoteFreq(58), 1e-9)
	assert.InDelta(t, 261.6256, NoteFreq(49), 1e-4)
	assert.InDelta(t, 880, NoteFreq(70), 1e-9)
	assert.Zero(t, NoteFreq(NoteEmpty))
	assert.Zero(t, NoteFreq(NoteOff))
}

func TestTrackerAdvance(t *testing.T) {
	tr := newTestTracker()
	for i := 0; i < 9; i++ {
		tr.advance(10)
	}
	assert.Zero(t, tr.Gate[0], "no tick before the accumulator fills")
	tr.advance(10)
	assert.Equal(t, 1.0, tr.Gate[0])
	assert.InDelta(t, 440, tr.Freq[0], 1e-9)
	assert.Equal(t, 0.5, tr.Vol[0])
	assert.Equal(t, 1, tr.Tick)
	assert.Zero(t, tr.acc)
}

func TestTrackerRows(t *testing.T) {
	tr := newTestTracker()
	for i := 0; i < DefaultSpeed; i++ {
		tr.step()
	}
	assert.Equal(t, 1, tr.Row)
	assert.Equal(t, 1.0, tr.Gate[0])
	tr.step()
	assert.Zero(t, tr.Gate[0], "key-off")
	assert.InDelta(t, 440, tr.Freq[0], 1e-9, "key-off keeps the pitch")

	for tr.OrderPos == 0 {
		tr.step()
	}
	assert.Equal(t, 0, tr.Row)
	tr.step()
	assert.Equal(t, 1.0, tr.Gate[3])
	assert.Equal(t, 1.0, tr.Vol[3], "volume clamps at 1")

	for tr.OrderPos == 1 {
		tr.step()
	}
	assert.Equal(t, 0, tr.OrderPos, "end marker wraps")
}

func TestTrackerSpeedTempo(t *testing.T) {
	tr := newTestTracker()
	tr.Patterns[0].Rows[0][1] = Cell{Cmd: CmdSpeedTempo, Val: 3}
	tr.Patterns[0].Rows[0][2] = Cell{Cmd: CmdSpeedTempo, Val: 0x90}
	tr.step()
	assert.Equal(t, 3, tr.Speed)
	assert.Equal(t, 144, tr.Tempo)

	tr.Patterns[0].Rows[1][1] = Cell{Cmd: CmdSpeedTempo, Val: 0}
	tr.step()
	tr.step()
	tr.step()
	assert.Equal(t, 1, tr.Speed, "speed is at least one")
}

func TestTrackerCell(t *testing.T) {
	tr := newTestTracker()
	c, ok := tr.Cell(0, 0, 0)
	assert.True(t, ok)
	assert.Equal(t, uint8(58), c.Note)
	_, ok = tr.Cell(0, TrackRows, 0)
	assert.False(t, ok)
	_, ok = tr.Cell(-1, 0, 0)
	assert.False(t, ok)
}
