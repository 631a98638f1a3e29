package console

import (
	"reflect"
	"sync"
	"unsafe"

	"github.com/gianndev/ParvaOS/kernel/hal/multiboot"
)

// physAddr is the fixed physical address of the legacy VGA text-mode
// framebuffer. Legacy BIOS boot always leaves the display in 80x25 text
// mode with the buffer mapped here, so it is the fallback used whenever the
// bootloader's multiboot info carries no framebuffer tag.
const physAddr = uintptr(0xB8000)

const (
	clearColor = Black
	clearChar  = byte(' ')
)

// TextConsole implements the Console interface on top of the 80x25 VGA text
// framebuffer. It is the sole hardware-facing console for the kernel: the
// dirty-cell shadow buffer in video/window sits on top of it.
type TextConsole struct {
	sync.Mutex

	width  uint16
	height uint16

	fb []uint16
}

// SetBackingStore overrides the framebuffer slice Init would otherwise map
// at the fixed VGA physical address. Only meant for tests.
func (cons *TextConsole) SetBackingStore(fb []uint16) {
	cons.fb = fb
}

// Init sets up the console. Tests may preset fb with a fake backing slice
// before calling Init to avoid touching the real hardware address.
//
// If the bootloader's multiboot info reports an EGA text-mode framebuffer
// tag, its address and dimensions override width/height/physAddr: QEMU and
// most BIOS bootloaders report the same fixed 0xB8000/80x25 setup, but a
// bootloader that placed text mode somewhere else (or resized it) is
// trusted over the legacy-BIOS assumption.
func (cons *TextConsole) Init(width, height uint16) {
	cons.width = width
	cons.height = height

	if cons.fb != nil {
		return
	}

	addr := physAddr
	if fbInfo := multiboot.GetFramebufferInfo(); fbInfo != nil && fbInfo.Type == multiboot.FramebufferTypeEGA {
		addr = uintptr(fbInfo.PhysAddr)
		cons.width = uint16(fbInfo.Width)
		cons.height = uint16(fbInfo.Height)
	}

	cons.fb = *(*[]uint16)(unsafe.Pointer(&reflect.SliceHeader{
		Len:  int(cons.width * cons.height),
		Cap:  int(cons.width * cons.height),
		Data: addr,
	}))
}

// Clear clears the specified rectangular region.
func (cons *TextConsole) Clear(x, y, width, height uint16) {
	var (
		attr                 = uint16((clearColor << 4) | clearColor)
		clr                  = attr | uint16(clearChar)
		rowOffset, colOffset uint16
	)

	if x >= cons.width {
		x = cons.width
	}
	if y >= cons.height {
		y = cons.height
	}

	if x+width > cons.width {
		width = cons.width - x
	}
	if y+height > cons.height {
		height = cons.height - y
	}

	rowOffset = (y * cons.width) + x
	for ; height > 0; height, rowOffset = height-1, rowOffset+cons.width {
		for colOffset = rowOffset; colOffset < rowOffset+width; colOffset++ {
			cons.fb[colOffset] = clr
		}
	}
}

// Dimensions returns the console width and height in characters.
func (cons *TextConsole) Dimensions() (uint16, uint16) {
	return cons.width, cons.height
}

// Scroll a particular number of lines in the specified direction.
func (cons *TextConsole) Scroll(dir ScrollDir, lines uint16) {
	if lines == 0 || lines > cons.height {
		return
	}

	var i uint16
	offset := lines * cons.width

	switch dir {
	case Up:
		for ; i < (cons.height-lines)*cons.width; i++ {
			cons.fb[i] = cons.fb[i+offset]
		}
	case Down:
		for i = cons.height*cons.width - 1; i >= lines*cons.width; i-- {
			cons.fb[i] = cons.fb[i-offset]
		}
	}
}

// Write a char to the specified location.
func (cons *TextConsole) Write(ch byte, attr Attr, x, y uint16) {
	if x >= cons.width || y >= cons.height {
		return
	}

	cons.fb[(y*cons.width)+x] = (uint16(attr) << 8) | uint16(ch)
}

// Peek returns the raw (attr<<8 | char) cell value at the given coordinates.
// Used by tests to inspect console contents without exposing the backing
// slice itself.
func (cons *TextConsole) Peek(x, y uint16) uint16 {
	if x >= cons.width || y >= cons.height {
		return 0
	}

	return cons.fb[(y*cons.width)+x]
}
