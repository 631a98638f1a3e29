// Package window implements a single-window text-mode window manager on
// top of a shadow cell grid with dirty tracking: drawing only ever touches
// the shadow, and Flush is the one place that writes dirty cells to the
// hardware console.
package window

import (
	"github.com/gianndev/ParvaOS/kernel/driver/video/console"
	"github.com/gianndev/ParvaOS/kernel/keyboard"
)

// Mode is a window's interaction state.
type Mode uint8

const (
	ModeNormal Mode = iota
	ModeMove
	ModeFullscreen
)

const (
	frameFg = console.LightGrey
	frameBg = console.Blue
)

// box-drawing byte approximations available in code page 437 / VGA text mode.
const (
	chHorizontal byte = 0xC4
	chVertical   byte = 0xB3
	chTopLeft    byte = 0xDA
	chTopRight   byte = 0xBF
	chBotLeft    byte = 0xC0
	chBotRight   byte = 0xD9
)

type rect struct {
	row, col   uint16
	rows, cols uint16
}

// window is the single managed window. There is exactly one; the spec
// explicitly excludes multiple concurrent or overlapping windows.
type window struct {
	rect
	title string
	mode  Mode

	saved rect // origin/extent to restore when Fullscreen is toggled off
}

var (
	active window
	sh     shadow

	screenRows, screenCols uint16
)

// screenMargin insets the window from the screen edge on all sides when it
// starts in ModeNormal, leaving room for moveOrigin to actually move it;
// a window that starts flush with the screen has nowhere to go.
const screenMargin = 3

// Init sizes the shadow grid to the console and places the single window as
// a bordered frame inset from the screen edges, a genuine subregion rather
// than the whole screen, so it starts able to move in every direction. cons
// is accepted as console.Console rather than the concrete text console type,
// since by boot-sequence order (kmain.Kmain calls this well after
// goruntime.Init) the Go runtime's interface machinery is already available.
func Init(cons console.Console, title string) {
	screenCols, screenRows = cons.Dimensions()
	sh.init(cons, screenCols, screenRows)

	rows := screenRows - 2*screenMargin
	cols := screenCols - 2*screenMargin

	active = window{
		rect:  rect{row: screenMargin, col: screenMargin, rows: rows, cols: cols},
		title: title,
		mode:  ModeNormal,
	}

	redraw()
}

// Interior returns the screen coordinates and size of the area inside the
// window's border, where the terminal draws text.
func Interior() (row, col, rows, cols uint16) {
	return active.row + 1, active.col + 1, active.rows - 2, active.cols - 2
}

// Dispatch feeds a decoded keyboard event to the window manager. It
// reports whether the event was consumed by window-management (Tab, WASD,
// Esc, Space while not in Normal mode); a caller should only forward
// unconsumed events on to the terminal's line editor.
func Dispatch(ev keyboard.Event) bool {
	switch active.mode {
	case ModeNormal:
		if ev.Key == keyboard.KeyTab {
			active.mode = ModeMove
			return true
		}
		return false

	case ModeMove:
		switch ev.Key {
		case keyboard.KeyEsc:
			active.mode = ModeNormal
			redraw()
		case keyboard.KeySpace:
			enterFullscreen()
		case keyboard.KeyChar:
			moveOrigin(ev.Char)
		}
		return true

	case ModeFullscreen:
		switch ev.Key {
		case keyboard.KeyEsc:
			exitFullscreen()
			active.mode = ModeNormal
		case keyboard.KeySpace:
			exitFullscreen()
			active.mode = ModeMove
		}
		return true
	}

	return false
}

func moveOrigin(ch byte) {
	dRow, dCol := 0, 0
	switch ch {
	case 'w', 'W':
		dRow = -1
	case 's', 'S':
		dRow = 1
	case 'a', 'A':
		dCol = -1
	case 'd', 'D':
		dCol = 1
	default:
		return
	}

	newRow := clamp(int(active.row)+dRow, 0, int(screenRows)-int(active.rows))
	newCol := clamp(int(active.col)+dCol, 0, int(screenCols)-int(active.cols))
	active.row, active.col = uint16(newRow), uint16(newCol)
	redraw()
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func enterFullscreen() {
	active.saved = active.rect
	active.rect = rect{row: 0, col: 0, rows: screenRows, cols: screenCols}
	active.mode = ModeFullscreen
	redraw()
}

func exitFullscreen() {
	active.rect = active.saved
	redraw()
}

// redraw re-blits the window's background and border into the shadow and
// marks the affected region dirty. It never touches hardware directly;
// Flush does that.
func redraw() {
	sh.clearRegion(active.row, active.col, active.rows, active.cols, frameFg, frameBg)
	drawBorder()
	drawTitle()
}

func drawBorder() {
	top, left := active.row, active.col
	bottom, right := active.row+active.rows-1, active.col+active.cols-1

	sh.set(top, left, chTopLeft, frameFg, frameBg)
	sh.set(top, right, chTopRight, frameFg, frameBg)
	sh.set(bottom, left, chBotLeft, frameFg, frameBg)
	sh.set(bottom, right, chBotRight, frameFg, frameBg)

	for c := left + 1; c < right; c++ {
		sh.set(top, c, chHorizontal, frameFg, frameBg)
		sh.set(bottom, c, chHorizontal, frameFg, frameBg)
	}
	for r := top + 1; r < bottom; r++ {
		sh.set(r, left, chVertical, frameFg, frameBg)
		sh.set(r, right, chVertical, frameFg, frameBg)
	}
}

func drawTitle() {
	row, col := active.row, active.col+2
	for i := 0; i < len(active.title) && col+uint16(i) < active.col+active.cols-1; i++ {
		sh.set(row, col+uint16(i), active.title[i], frameFg, frameBg)
	}
}

// Flush pushes every dirty shadow cell to the hardware console.
func Flush() {
	sh.flush()
}
