package chronos

import (
	"fmt"
	"strconv"
	"strings"
)

var noteNames = [12]string{"C-", "C#", "D-", "D#", "E-", "F-", "F#", "G-", "G#", "A-", "A#", "B-"}

// parsePattern fills one channel of p from tracker text. One non blank
// line per row, columns note inst vol cmd val, "." leaves a column empty.
// Rows not listed are cleared.
func parsePattern(p *Pattern, ch int, text string) error {
	row := 0
	for _, line := range strings.Split(text, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if row == TrackRows {
			return fmt.Errorf("more than %d rows", TrackRows)
		}
		cell, err := ParseCell(fields)
		if err != nil {
			return fmt.Errorf("row %d: %w", row, err)
		}
		p.Rows[row][ch] = cell
		row++
	}
	for ; row < TrackRows; row++ {
		p.Rows[row][ch] = Cell{}
	}
	return nil
}

// ParseCell reads the columns of one pattern row. Missing trailing
// columns are zero.
func ParseCell(cols []string) (Cell, error) {
	var cell Cell
	if len(cols) > 5 {
		return cell, fmt.Errorf("%d columns, want at most 5", len(cols))
	}
	for i, col := range cols {
		var err error
		switch i {
		case 0:
			cell.Note, err = ParseNote(col)
		case 1:
			cell.Inst, err = parseHex(col, 2)
		case 2:
			cell.Vol, err = parseHex(col, 2)
		case 3:
			cell.Cmd, err = parseHex(col, 1)
		case 4:
			cell.Val, err = parseHex(col, 2)
		}
		if err != nil {
			return Cell{}, err
		}
	}
	return cell, nil
}

// ParseNote reads "C-4", "C#4", "===" (key-off) or a "." placeholder.
func ParseNote(s string) (uint8, error) {
	switch {
	case s == "":
		return 0, fmt.Errorf("empty note")
	case s == "===":
		return NoteOff, nil
	case s[0] == '.':
		return NoteEmpty, nil
	case len(s) != 3 || !isDigit(s[2]):
		return 0, fmt.Errorf("bad note %q", s)
	}
	for sem, name := range noteNames {
		if strings.EqualFold(s[:2], name) {
			return uint8(int(s[2]-'0')*12 + sem + 1), nil
		}
	}
	return 0, fmt.Errorf("bad note %q", s)
}

func parseHex(s string, width int) (uint8, error) {
	if s[0] == '.' {
		return 0, nil
	}
	if len(s) > width {
		return 0, fmt.Errorf("bad hex %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0, fmt.Errorf("bad hex %q", s)
	}
	return uint8(v), nil
}

// NoteName is the inverse of ParseNote.
func NoteName(note uint8) string {
	switch {
	case note == NoteEmpty:
		return "..."
	case note == NoteOff:
		return "==="
	}
	n := int(note) - 1
	return noteNames[n%12] + strconv.Itoa(n/12)
}

func (c Cell) String() string {
	hex := func(v uint8) string {
		if v == 0 {
			return ".."
		}
		return fmt.Sprintf("%02X", v)
	}
	cmd := "."
	if c.Cmd != 0 {
		cmd = fmt.Sprintf("%X", c.Cmd)
	}
	return strings.Join([]string{NoteName(c.Note), hex(c.Inst), hex(c.Vol), cmd, hex(c.Val)}, " ")
}
