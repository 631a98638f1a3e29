package window

import "github.com/gianndev/ParvaOS/kernel/driver/video/console"

// cell mirrors one hardware text cell.
type cell struct {
	ch byte
	fg console.Attr
	bg console.Attr
}

// shadow is the in-kernel mirror of the hardware text framebuffer. Every
// draw touches the shadow and marks the affected cells dirty; Flush is the
// only place that talks to the real console, and only for dirty cells.
//
// cons is held as the console.Console interface rather than the concrete
// *console.TextConsole: by the time Init runs, goruntime.Init has already
// brought up the Go allocator (unlike driver/tty.Vt, which is attached to
// its console during early boot before that point), so boxing the console
// pointer behind an interface carries no early-boot allocation risk.
type shadow struct {
	cons  console.Console
	width uint16

	cells []cell
	dirty []bool
}

func (s *shadow) init(cons console.Console, width, height uint16) {
	s.cons = cons
	s.width = width
	s.cells = make([]cell, int(width)*int(height))
	s.dirty = make([]bool, len(s.cells))
	s.markAllDirty()
}

func (s *shadow) idx(row, col uint16) int {
	return int(row)*int(s.width) + int(col)
}

func (s *shadow) set(row, col uint16, ch byte, fg, bg console.Attr) {
	i := s.idx(row, col)
	if i < 0 || i >= len(s.cells) {
		return
	}

	c := cell{ch: ch, fg: fg, bg: bg}
	if s.cells[i] == c {
		return
	}

	s.cells[i] = c
	s.dirty[i] = true
}

func (s *shadow) clearRegion(row, col, rows, cols uint16, fg, bg console.Attr) {
	for r := row; r < row+rows; r++ {
		for c := col; c < col+cols; c++ {
			s.set(r, c, ' ', fg, bg)
		}
	}
}

func (s *shadow) markAllDirty() {
	for i := range s.dirty {
		s.dirty[i] = true
	}
}

// flush writes every dirty cell to the console and clears its dirty bit.
func (s *shadow) flush() {
	for i, d := range s.dirty {
		if !d {
			continue
		}

		row := uint16(i) / s.width
		col := uint16(i) % s.width
		c := s.cells[i]
		s.cons.Write(c.ch, (c.bg<<4)|(c.fg&0xF), col, row)
		s.dirty[i] = false
	}
}
