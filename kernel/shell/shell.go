// Package shell implements ParvaOS's line-oriented terminal front end: a
// line editor confined to the focused window's interior, and the command
// dispatch table that turns a typed line into a filesystem or device
// operation. It runs as the kernel's one cooperative task, yielding
// whenever there is no pending keyboard input.
package shell

import (
	"github.com/gianndev/ParvaOS/kernel/hal"
	"github.com/gianndev/ParvaOS/kernel/keyboard"
	"github.com/gianndev/ParvaOS/kernel/kfmt/early"
	"github.com/gianndev/ParvaOS/kernel/sched"
	"github.com/gianndev/ParvaOS/kernel/video/window"
)

const prompt = "> "

// geometry mirrors the four values window.Interior returns, so Run can tell
// whether the focused window's usable area actually changed.
type geometry struct {
	row, col, rows, cols uint16
}

var lastGeometry geometry

// Run is the shell task's entry point. It is spawned once via sched.Spawn
// during bring-up and never returns: taskTrampoline marks the task Done if
// it ever did, which would leave the console silently unresponsive.
func Run() {
	syncGeometry()

	var editor lineEditor
	printPrompt()

	for {
		ev, ok := keyboard.Pop()
		if !ok {
			sched.YieldNow()
			continue
		}

		if window.Dispatch(ev) {
			syncGeometry()
			continue
		}

		done, text := editor.Feed(ev)
		if !done {
			continue
		}

		hal.ActiveTerminal.WriteByte('\n')
		execute(text)
		editor.Reset()
		printPrompt()
	}
}

// syncGeometry re-attaches the terminal's viewport to the focused window's
// interior whenever it has moved, resized, or (un)fullscreened, and always
// flushes the window manager's own dirty chrome cells to hardware.
func syncGeometry() {
	row, col, rows, cols := window.Interior()
	window.Flush()

	g := geometry{row, col, rows, cols}
	if g == lastGeometry {
		return
	}
	lastGeometry = g

	hal.ActiveTerminal.SetViewport(row, col, rows, cols)
	printPrompt()
}

func printPrompt() {
	early.Printf("%s", prompt)
}

// lineEditor accumulates one line of typed input. Backspace only has an
// effect while the buffer is non-empty: the prompt itself is never erased,
// matching spec.md's "Backspace deletes the last character if the cursor is
// past the prompt".
type lineEditor struct {
	buf []byte
}

// Feed applies one decoded keyboard event to the line buffer. done is true
// once Enter is pressed, at which point text holds the accumulated line and
// the caller is expected to call Reset before the next line starts.
func (l *lineEditor) Feed(ev keyboard.Event) (done bool, text string) {
	switch ev.Key {
	case keyboard.KeyEnter:
		return true, string(l.buf)

	case keyboard.KeyBackspace:
		if len(l.buf) > 0 {
			l.buf = l.buf[:len(l.buf)-1]
			hal.ActiveTerminal.WriteByte('\b')
		}

	case keyboard.KeySpace:
		l.buf = append(l.buf, ' ')
		hal.ActiveTerminal.WriteByte(' ')

	case keyboard.KeyChar:
		l.buf = append(l.buf, ev.Char)
		hal.ActiveTerminal.WriteByte(ev.Char)
	}

	return false, ""
}

// Reset empties the buffer for the next line, keeping its backing array.
func (l *lineEditor) Reset() {
	l.buf = l.buf[:0]
}

// splitFields breaks s on runs of spaces and tabs. Commands are whitespace
// split with no quoting support, per spec.md's §4.10/§6.
func splitFields(s string) []string {
	var out []string

	start := -1
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t':
			if start >= 0 {
				out = append(out, s[start:i])
				start = -1
			}
		default:
			if start < 0 {
				start = i
			}
		}
	}
	if start >= 0 {
		out = append(out, s[start:])
	}

	return out
}

// execute parses line as "cmd arg1 arg2 ..." and runs the matching command,
// or prints the unknown-command message spec.md's §4.10 requires.
func execute(line string) {
	fields := splitFields(line)
	if len(fields) == 0 {
		return
	}

	cmd, args := fields[0], fields[1:]
	fn, ok := dispatch[cmd]
	if !ok {
		early.Printf("command not found\n")
		return
	}

	fn(args)
}
