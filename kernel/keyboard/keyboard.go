// Package keyboard decodes scancode-set-1 bytes from the PS/2 keyboard
// controller into tagged input events and buffers them in a lock-free ring
// for the terminal task to drain.
package keyboard

import (
	"github.com/gianndev/ParvaOS/kernel/ioport"
	"github.com/gianndev/ParvaOS/kernel/irq"
)

const (
	dataPort   = 0x60
	statusPort = 0x64

	statusOutputFull = 1 << 0
)

// Key tags a decoded input event so consumers can tell movement/control
// keys apart from printable characters without string comparison.
type Key uint8

const (
	KeyNone Key = iota
	KeyChar
	KeyEnter
	KeyBackspace
	KeyTab
	KeyEsc
	KeySpace
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
)

// Event is a single decoded keypress.
type Event struct {
	Key   Key
	Char  byte
	Shift bool
	Ctrl  bool
	Alt   bool
}

// Modifier scancodes (set 1), both press and release (release = press | 0x80).
const (
	scShiftL    = 0x2A
	scShiftR    = 0x36
	scCtrl      = 0x1D
	scAlt       = 0x38
	scReleaseBit = 0x80

	scEnter     = 0x1C
	scBackspace = 0x0E
	scTab       = 0x0F
	scEsc       = 0x01
	scSpace     = 0x39
	scUp        = 0x48
	scDown      = 0x50
	scLeft      = 0x4B
	scRight     = 0x4D
)

// ringSize must be a power of two so head/tail wraparound is a cheap mask.
const ringSize = 64

// ring is a single-producer/single-consumer lock-free FIFO. The producer
// (IRQ1) only ever advances head; the consumer only ever advances tail.
// Overflowing events are dropped rather than overwriting unread ones.
type ring struct {
	buf        [ringSize]Event
	head, tail uint32
}

var (
	buffer ring

	shiftDown bool
	ctrlDown  bool
	altDown   bool
)

// Init installs the IRQ1 handler that decodes and enqueues keyboard events.
func Init() {
	irq.HandleIRQ(irq.IRQKeyboard, func(_ *irq.Regs) {
		if ioport.Inb(statusPort)&statusOutputFull == 0 {
			return
		}
		handleScancode(ioport.Inb(dataPort))
	})
}

func handleScancode(code byte) {
	released := code&scReleaseBit != 0
	base := code &^ scReleaseBit

	switch base {
	case scShiftL, scShiftR:
		shiftDown = !released
		return
	case scCtrl:
		ctrlDown = !released
		return
	case scAlt:
		altDown = !released
		return
	}

	if released {
		return
	}

	ev := Event{Shift: shiftDown, Ctrl: ctrlDown, Alt: altDown}

	switch base {
	case scEnter:
		ev.Key = KeyEnter
	case scBackspace:
		ev.Key = KeyBackspace
	case scTab:
		ev.Key = KeyTab
	case scEsc:
		ev.Key = KeyEsc
	case scSpace:
		ev.Key = KeySpace
	case scUp:
		ev.Key = KeyUp
	case scDown:
		ev.Key = KeyDown
	case scLeft:
		ev.Key = KeyLeft
	case scRight:
		ev.Key = KeyRight
	default:
		ch, ok := decodeASCII(base, shiftDown)
		if !ok {
			return
		}
		ev.Key = KeyChar
		ev.Char = ch
	}

	push(ev)
}

func push(ev Event) {
	head := buffer.head
	next := (head + 1) % ringSize
	if next == buffer.tail {
		// Ring full; drop the event.
		return
	}
	buffer.buf[head] = ev
	buffer.head = next
}

// Pop removes and returns the oldest buffered event. ok is false if the
// ring is empty.
func Pop() (Event, bool) {
	tail := buffer.tail
	if tail == buffer.head {
		return Event{}, false
	}
	ev := buffer.buf[tail]
	buffer.tail = (tail + 1) % ringSize
	return ev, true
}
