package window

import (
	"testing"

	"github.com/gianndev/ParvaOS/kernel/driver/video/console"
	"github.com/gianndev/ParvaOS/kernel/keyboard"
	"github.com/stretchr/testify/assert"
)

func newTestConsole() *console.TextConsole {
	var cons console.TextConsole
	cons.SetBackingStore(make([]uint16, 80*25))
	cons.Init(80, 25)
	return &cons
}

func TestInitInsetsWindowFromScreenEdges(t *testing.T) {
	cons := newTestConsole()
	Init(cons, "parva")

	assert.Equal(t, ModeNormal, active.mode)
	assert.Equal(t, uint16(screenMargin), active.row)
	assert.Equal(t, uint16(screenMargin), active.col)
	assert.Equal(t, screenRows-2*screenMargin, active.rows)
	assert.Equal(t, screenCols-2*screenMargin, active.cols)

	row, col, rows, cols := Interior()
	assert.Equal(t, uint16(screenMargin+1), row)
	assert.Equal(t, uint16(screenMargin+1), col)
	assert.Equal(t, screenRows-2*screenMargin-2, rows)
	assert.Equal(t, screenCols-2*screenMargin-2, cols)
}

func TestTabEntersMoveMode(t *testing.T) {
	cons := newTestConsole()
	Init(cons, "parva")

	consumed := Dispatch(keyboard.Event{Key: keyboard.KeyTab})
	assert.True(t, consumed)
	assert.Equal(t, ModeMove, active.mode)
}

func TestCharKeyNotConsumedInNormalMode(t *testing.T) {
	cons := newTestConsole()
	Init(cons, "parva")

	consumed := Dispatch(keyboard.Event{Key: keyboard.KeyChar, Char: 'l'})
	assert.False(t, consumed)
}

func TestWASDMovesOriginWithinBounds(t *testing.T) {
	cons := newTestConsole()
	Init(cons, "parva")
	Dispatch(keyboard.Event{Key: keyboard.KeyTab})

	startCol := active.col
	Dispatch(keyboard.Event{Key: keyboard.KeyChar, Char: 'd'})
	Dispatch(keyboard.Event{Key: keyboard.KeyChar, Char: 'd'})
	Dispatch(keyboard.Event{Key: keyboard.KeyChar, Char: 'd'})
	assert.Equal(t, startCol+3, active.col)

	startRow := active.row
	Dispatch(keyboard.Event{Key: keyboard.KeyChar, Char: 's'})
	assert.Equal(t, startRow+1, active.row)
	Dispatch(keyboard.Event{Key: keyboard.KeyChar, Char: 'a'})
	Dispatch(keyboard.Event{Key: keyboard.KeyChar, Char: 'w'})
	assert.Equal(t, startCol+2, active.col)
	assert.Equal(t, startRow, active.row)

	// Shrink the window so it sits flush against an edge, then confirm the
	// clamp still holds it in bounds instead of walking off screen.
	active.rect = rect{row: 0, col: 0, rows: screenRows, cols: screenCols}
	Dispatch(keyboard.Event{Key: keyboard.KeyChar, Char: 'd'})
	assert.Equal(t, uint16(0), active.col)
}

func TestEscReturnsToNormalMode(t *testing.T) {
	cons := newTestConsole()
	Init(cons, "parva")
	Dispatch(keyboard.Event{Key: keyboard.KeyTab})
	Dispatch(keyboard.Event{Key: keyboard.KeyEsc})
	assert.Equal(t, ModeNormal, active.mode)
}

func TestSpaceTogglesFullscreenAndRestores(t *testing.T) {
	cons := newTestConsole()
	Init(cons, "parva")
	active.rect = rect{row: 2, col: 2, rows: 10, cols: 10}
	Dispatch(keyboard.Event{Key: keyboard.KeyTab})

	Dispatch(keyboard.Event{Key: keyboard.KeySpace})
	assert.Equal(t, ModeFullscreen, active.mode)
	assert.Equal(t, screenRows, active.rows)
	assert.Equal(t, screenCols, active.cols)

	// Move is disabled while Fullscreen.
	Dispatch(keyboard.Event{Key: keyboard.KeyChar, Char: 'w'})
	assert.Equal(t, uint16(0), active.row)

	Dispatch(keyboard.Event{Key: keyboard.KeySpace})
	assert.Equal(t, ModeMove, active.mode)
	assert.Equal(t, uint16(2), active.row)
	assert.Equal(t, uint16(10), active.rows)
}

func TestFlushClearsDirtyBitsAndWritesCells(t *testing.T) {
	cons := newTestConsole()
	Init(cons, "parva")
	Flush()

	for _, d := range sh.dirty {
		assert.False(t, d)
	}

	// The window's top-left border cell lies screenMargin in from the edge.
	assert.NotEqual(t, uint16(0), cons.Peek(screenMargin, screenMargin))
}
