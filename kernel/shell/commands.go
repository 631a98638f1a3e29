package shell

import (
	"github.com/gianndev/ParvaOS/kernel/ata"
	"github.com/gianndev/ParvaOS/kernel/fs"
	"github.com/gianndev/ParvaOS/kernel/hal"
	"github.com/gianndev/ParvaOS/kernel/kfmt/early"
	"github.com/gianndev/ParvaOS/kernel/mem/pmm"
	"github.com/gianndev/ParvaOS/kernel/sched"
	"github.com/gianndev/ParvaOS/kernel/timer"
)

const (
	osName    = "ParvaOS"
	osVersion = "0.1.0"
)

// cmdFunc implements one shell command; args excludes the command word.
type cmdFunc func(args []string)

// dispatch is the command table spec.md §4.10 describes. It is a package
// var, not a literal switch, so tests can assert its coverage directly.
var dispatch = map[string]cmdFunc{
	"help":     cmdHelp,
	"info":     cmdInfo,
	"clear":    cmdClear,
	"reboot":   cmdReboot,
	"shutdown": cmdShutdown,
	"neofetch": cmdNeofetch,
	"install":  cmdInstall,
	"list":     cmdList,
	"crfile":   cmdCrfile,
	"read":     cmdRead,
	"edit":     cmdEdit,
}

func cmdHelp(_ []string) {
	early.Printf("commands:\n")
	early.Printf("  help                     show this list\n")
	early.Printf("  info                     show OS name, version and uptime\n")
	early.Printf("  clear                    clear the terminal\n")
	early.Printf("  reboot                   reset the CPU\n")
	early.Printf("  shutdown                 power off the emulator\n")
	early.Printf("  neofetch                 show a system banner\n")
	early.Printf("  install                  format the first probed disk\n")
	early.Printf("  list                     list files in the current directory\n")
	early.Printf("  crfile <name>            create an empty file\n")
	early.Printf("  read <name>              print a file's contents\n")
	early.Printf("  edit <name> <content>    overwrite a file's contents\n")
}

func cmdInfo(_ []string) {
	early.Printf("%s %s\n", osName, osVersion)
	early.Printf("uptime: %s\n", timer.Uptime().String())
	early.Printf("usable memory: %d bytes\n", uint64(pmm.TotalUsable()))
	early.Printf("tasks: %d\n", sched.Count())
}

func cmdClear(_ []string) {
	hal.ActiveTerminal.Clear()
}

func cmdNeofetch(_ []string) {
	early.Printf("        ,--.\n")
	early.Printf("       ( P  )    %s %s\n", osName, osVersion)
	early.Printf("      .-'--'-.   a bare-metal kernel written in Go\n")
	early.Printf("     /  o  o  \\\n")
	early.Printf("    |    ..    |\n")
	early.Printf("     \\  ----  /\n")
	early.Printf("      '------'\n")
}

func cmdInstall(_ []string) {
	bus, drive, ok := firstPresentDevice()
	if !ok {
		early.Printf("no disk device found\n")
		return
	}

	if err := fs.Format(bus, drive); err != nil {
		early.Printf("%s\n", err.Error())
		return
	}
	early.Printf("formatted and mounted\n")
}

func cmdList(_ []string) {
	entries, err := fs.RootDir().List()
	if err != nil {
		printFsError(err)
		return
	}

	for _, e := range entries {
		if e.Kind == fs.KindDir {
			early.Printf("%s/\n", e.Name)
		} else {
			early.Printf("%s\n", e.Name)
		}
	}
}

func cmdCrfile(args []string) {
	if len(args) != 1 {
		early.Printf("usage: crfile <name>\n")
		return
	}

	if err := fs.CreateFile(fs.DataAddrOffset, args[0]); err != nil {
		printFsError(err)
	}
}

func cmdRead(args []string) {
	if len(args) != 1 {
		early.Printf("usage: read <name>\n")
		return
	}

	entry, err := fs.Lookup(args[0])
	if err != nil {
		printFsError(err)
		return
	}
	if entry.Kind != fs.KindFile {
		early.Printf("no such file\n")
		return
	}

	buf := make([]byte, entry.Size)
	n, err := fs.ReadFile(entry, buf)
	if err != nil {
		printFsError(err)
		return
	}

	early.Printf("%s\n", buf[:n])
}

func cmdEdit(args []string) {
	if len(args) < 2 {
		early.Printf("usage: edit <name> <content...>\n")
		return
	}

	name := args[0]
	content := joinFields(args[1:])

	if err := fs.WriteFile(fs.DataAddrOffset, name, []byte(content)); err != nil {
		printFsError(err)
	}
}

// joinFields re-assembles whitespace-split arguments with single spaces,
// the inverse of splitFields, since the original spacing between edit's
// content words is not preserved by the line editor.
func joinFields(fields []string) string {
	total := 0
	for i, f := range fields {
		total += len(f)
		if i > 0 {
			total++
		}
	}

	out := make([]byte, 0, total)
	for i, f := range fields {
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, f...)
	}
	return string(out)
}

func printFsError(err interface{ Error() string }) {
	switch err {
	case fs.ErrNotMounted:
		early.Printf("not mounted: run install\n")
	case fs.ErrNotFound:
		early.Printf("no such file\n")
	case fs.ErrAlreadyExists:
		early.Printf("already exists\n")
	case fs.ErrOutOfSpace:
		early.Printf("out of space\n")
	default:
		early.Printf("%s\n", err.Error())
	}
}

// firstPresentDevice returns the first ATA device that answered probing,
// scanning primary before secondary and master before slave.
func firstPresentDevice() (ata.Bus, ata.Drive, bool) {
	for bus := ata.Primary; bus <= ata.Secondary; bus++ {
		for drive := ata.Master; drive <= ata.Slave; drive++ {
			if ata.Present(bus, drive) {
				return bus, drive, true
			}
		}
	}
	return 0, 0, false
}
