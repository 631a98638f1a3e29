package hal

import (
	"github.com/gianndev/ParvaOS/kernel/driver/tty"
	"github.com/gianndev/ParvaOS/kernel/driver/video/console"
)

var (
	textConsole = &console.TextConsole{}

	// ActiveTerminal points to the currently active terminal.
	ActiveTerminal = &tty.Vt{}
)

// InitTerminal provides a basic terminal to allow the kernel to emit some
// output till everything is properly setup. The legacy BIOS boot path
// always leaves the display in 80x25 text mode with the framebuffer mapped
// at its fixed physical address, so there is no mode to negotiate.
func InitTerminal() {
	textConsole.Init(80, 25)
	ActiveTerminal.AttachTo(textConsole)
}

// TextConsole returns the console device backing ActiveTerminal, so that
// later bring-up stages (the window manager) can attach their own shadow
// buffer to the same hardware without re-probing the framebuffer address.
func TextConsole() *console.TextConsole {
	return textConsole
}
