package chronos

import "math"

const (
	TrackChannels = 8
	TrackRows     = 64
	MaxPatterns   = 64
	MaxOrder      = 128
	OrderEnd      = 255 // order list sentinel

	NoteEmpty = 0
	NoteOff   = 254

	CmdSpeedTempo = 0xF

	DefaultSpeed = 6   // ticks per row
	DefaultTempo = 125 // bpm
)

// Cell is one tracker step. Note is octave*12+semitone+1, 0 empty, 254 key-off.
type Cell struct {
	Note, Inst, Vol, Cmd, Val uint8
}

type Pattern struct {
	Rows [TrackRows][TrackChannels]Cell
}

// Song is written by the compiler only.
type Song struct {
	Patterns [MaxPatterns]Pattern
	Order    [MaxOrder]uint8
}

// Playback is the sequencer cursor and the per channel values the graph reads.
type Playback struct {
	OrderPos, Row, Tick int
	Speed, Tempo        int
	Freq, Gate, Vol     [TrackChannels]float64
	acc                 float64 // samples since last tick
}

type Tracker struct {
	Song
	Playback
}

func (t *Tracker) reset() {
	t.Playback = Playback{Speed: DefaultSpeed, Tempo: DefaultTempo}
}

// Cell returns the cell at pattern p, row r, channel ch.
func (t *Tracker) Cell(p, r, ch int) (Cell, bool) {
	if p < 0 || p >= MaxPatterns || r < 0 || r >= TrackRows || ch < 0 || ch >= TrackChannels {
		return Cell{}, false
	}
	return t.Patterns[p].Rows[r][ch], true
}

// SetOrder replaces the order list, terminated by OrderEnd when shorter.
func (t *Tracker) SetOrder(order []uint8) {
	n := copy(t.Order[:], order)
	if n < MaxOrder {
		t.Order[n] = OrderEnd
	}
}

// advance counts one sample and steps the sequencer when a tick is due.
func (t *Tracker) advance(samplesPerTick float64) {
	t.acc++
	if t.acc >= samplesPerTick {
		t.step()
		t.acc -= samplesPerTick
	}
}

func (t *Tracker) step() {
	if t.Tick == 0 {
		t.enterRow()
	}
	t.Tick++
	if t.Tick < t.Speed {
		return
	}
	t.Tick = 0
	t.Row++
	if t.Row < TrackRows {
		return
	}
	t.Row = 0
	t.OrderPos++
	if t.OrderPos >= MaxOrder || t.Order[t.OrderPos] == OrderEnd {
		t.OrderPos = 0
	}
}

func (t *Tracker) enterRow() {
	p := int(t.Order[t.OrderPos])
	if p >= MaxPatterns {
		p = 0
	}
	row := &t.Patterns[p].Rows[t.Row]
	for ch := range row {
		cell := &row[ch]
		switch cell.Note {
		case NoteEmpty:
		case NoteOff:
			t.Gate[ch] = 0
		default:
			t.Freq[ch] = NoteFreq(cell.Note)
			t.Gate[ch] = 1
			t.Vol[ch] = math.Min(float64(cell.Vol)/64, 1)
		}
		if cell.Cmd == CmdSpeedTempo {
			if cell.Val < 32 {
				t.Speed = max(int(cell.Val), 1)
			} else {
				t.Tempo = int(cell.Val)
			}
		}
	}
}

// NoteFreq converts a cell note to Hz, C-4 (49) is middle C.
func NoteFreq(note uint8) float64 {
	if note == NoteEmpty || note >= NoteOff {
		return 0
	}
	midi := float64(note) + 11
	return 440 * math.Pow(2, (midi-69)/12)
}
