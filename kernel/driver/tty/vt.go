package tty

import "github.com/gianndev/ParvaOS/kernel/driver/video/console"

const (
	defaultFg = console.LightGrey
	defaultBg = console.Black

	tabWidth = 4
)

// Vt implements a simple terminal that can process LF, CR, backspace and tab
// characters. The terminal uses a console device for its output.
type Vt struct {
	// Go interfaces will not work before we can get memory allocation working.
	// Till then we need to use concrete types instead.
	cons *console.TextConsole

	// originRow/originCol place the terminal's (0,0) inside the console's
	// coordinate space. SetViewport moves these so the terminal can be
	// confined to a window's interior instead of the full screen.
	originRow uint16
	originCol uint16

	width  uint16
	height uint16

	curX    uint16
	curY    uint16
	curAttr console.Attr
}

// AttachTo connects the terminal to a console device, resetting the cursor
// to the top-left corner and sizing the viewport to the whole console. The
// console's contents are left untouched; callers clear it explicitly.
func (t *Vt) AttachTo(cons *console.TextConsole) {
	t.cons = cons
	w, h := cons.Dimensions()
	t.originRow, t.originCol = 0, 0
	t.width, t.height = w, h
	t.curX, t.curY = 0, 0
	t.curAttr = makeAttr(defaultFg, defaultBg)
}

// SetViewport confines the terminal's coordinate space to a rectangular
// region of the underlying console, e.g. a window's interior. The cursor is
// reset to the viewport's top-left corner and the region is cleared. Used by
// the window manager whenever the focused window's geometry changes (move,
// fullscreen toggle).
func (t *Vt) SetViewport(row, col, rows, cols uint16) {
	t.originRow, t.originCol = row, col
	t.width, t.height = cols, rows
	t.curX, t.curY = 0, 0
	t.curAttr = makeAttr(defaultFg, defaultBg)

	if t.cons != nil {
		t.cons.Lock()
		t.cons.Clear(col, row, cols, rows)
		t.cons.Unlock()
	}
}

// Dimensions returns the terminal width and height in characters.
func (t *Vt) Dimensions() (uint16, uint16) {
	return t.width, t.height
}

// Clear clears the terminal and resets the cursor to (0, 0).
func (t *Vt) Clear() {
	t.cons.Lock()
	defer t.cons.Unlock()

	t.clear()
}

// Position returns the current cursor position (x, y).
func (t *Vt) Position() (uint16, uint16) {
	t.cons.Lock()
	defer t.cons.Unlock()

	return t.curX, t.curY
}

// SetPosition sets the current cursor position to (x, y), clamping it to
// stay within the terminal bounds.
func (t *Vt) SetPosition(x, y uint16) {
	t.cons.Lock()
	defer t.cons.Unlock()

	if x >= t.width {
		x = t.width - 1
	}

	if y >= t.height {
		y = t.height - 1
	}

	t.curX, t.curY = x, y
}

// Write implements io.Writer.
func (t *Vt) Write(data []byte) (int, error) {
	t.cons.Lock()
	defer t.cons.Unlock()

	for _, b := range data {
		t.writeByte(b)
	}

	return len(data), nil
}

// WriteByte implements io.ByteWriter.
func (t *Vt) WriteByte(b byte) error {
	t.cons.Lock()
	defer t.cons.Unlock()

	t.writeByte(b)
	return nil
}

// WriteAtPosition writes a single char at the given coordinates without
// moving the cursor. Used by the shell and window manager to paint
// decorations outside the normal scroll flow.
func (t *Vt) WriteAtPosition(x, y uint16, attr console.Attr, ch byte) {
	t.cons.Lock()
	defer t.cons.Unlock()

	t.cons.Write(ch, attr, x, y)
}

func (t *Vt) writeByte(b byte) {
	switch b {
	case '\r':
		t.cr()
	case '\n':
		t.cr()
		t.lf()
	case '\b':
		if t.curX > 0 {
			t.curX--
			t.cons.Write(' ', t.curAttr, t.originCol+t.curX, t.originRow+t.curY)
		}
	case '\t':
		for i := uint16(0); i < tabWidth; i++ {
			t.putChar(' ')
		}
	default:
		t.putChar(b)
	}
}

// putChar writes ch at the cursor position and advances it, wrapping to a
// new line when the end of the current row is reached.
func (t *Vt) putChar(ch byte) {
	t.cons.Write(ch, t.curAttr, t.originCol+t.curX, t.originRow+t.curY)
	t.curX++
	if t.curX == t.width {
		t.cr()
		t.lf()
	}
}

// clear clears the terminal's viewport.
func (t *Vt) clear() {
	t.cons.Clear(t.originCol, t.originRow, t.width, t.height)
	t.curX, t.curY = 0, 0
}

// cr resets the x coordinate of the terminal cursor to 0.
func (t *Vt) cr() {
	t.curX = 0
}

// lf advances the y coordinate of the terminal cursor by one line, scrolling
// the terminal contents if the end of the last terminal line is reached.
func (t *Vt) lf() {
	if t.curY+1 < t.height {
		t.curY++
		return
	}

	// Scroll always shifts the whole hardware console, not just this
	// terminal's viewport: Console has no notion of a sub-region scroll.
	// A terminal confined to a window interior therefore also drags along
	// whatever sits above/below it on screen; acceptable since the window
	// covers effectively the whole console outside its own border/title.
	t.cons.Scroll(console.Up, 1)
	t.cons.Clear(t.originCol, t.originRow+t.height-1, t.width, 1)
}

func makeAttr(fg, bg console.Attr) console.Attr {
	return (bg << 4) | (fg & 0xF)
}
