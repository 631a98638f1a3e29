package shell

import (
	"testing"

	"github.com/gianndev/ParvaOS/kernel/hal"
	"github.com/gianndev/ParvaOS/kernel/keyboard"
	"github.com/gianndev/ParvaOS/kernel/kfmt/early"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestTerminal wires up a backing store the size of a real screen and
// silences the serial side of early.Printf, since ioport.COM1.WriteByte
// issues real IN/OUT instructions that have no meaning on the host running
// the test binary.
func newTestTerminal(t *testing.T) {
	t.Helper()
	hal.TextConsole().SetBackingStore(make([]uint16, 80*25))
	hal.InitTerminal()

	origSerial := early.SerialWriteByteFn
	early.SerialWriteByteFn = func(byte) error { return nil }
	t.Cleanup(func() {
		early.SerialWriteByteFn = origSerial
	})
}

func TestSplitFields(t *testing.T) {
	specs := []struct {
		in  string
		out []string
	}{
		{"", nil},
		{"   ", nil},
		{"help", []string{"help"}},
		{"edit greet hello world", []string{"edit", "greet", "hello", "world"}},
		{"  crfile   a  ", []string{"crfile", "a"}},
		{"a\tb", []string{"a", "b"}},
	}

	for _, spec := range specs {
		assert.Equal(t, spec.out, splitFields(spec.in), "input %q", spec.in)
	}
}

func TestJoinFields(t *testing.T) {
	assert.Equal(t, "hello world", joinFields([]string{"hello", "world"}))
	assert.Equal(t, "solo", joinFields([]string{"solo"}))
}

func TestLineEditorAccumulatesAndEnterEmits(t *testing.T) {
	newTestTerminal(t)

	var l lineEditor
	for _, ch := range []byte("hi") {
		done, _ := l.Feed(keyboard.Event{Key: keyboard.KeyChar, Char: ch})
		require.False(t, done)
	}

	done, text := l.Feed(keyboard.Event{Key: keyboard.KeyEnter})
	require.True(t, done)
	assert.Equal(t, "hi", text)
}

func TestLineEditorBackspaceRemovesLastChar(t *testing.T) {
	newTestTerminal(t)

	var l lineEditor
	l.Feed(keyboard.Event{Key: keyboard.KeyChar, Char: 'a'})
	l.Feed(keyboard.Event{Key: keyboard.KeyChar, Char: 'b'})
	l.Feed(keyboard.Event{Key: keyboard.KeyBackspace})

	_, text := l.Feed(keyboard.Event{Key: keyboard.KeyEnter})
	assert.Equal(t, "a", text)
}

func TestLineEditorBackspaceOnEmptyBufferIsNoop(t *testing.T) {
	newTestTerminal(t)

	var l lineEditor
	l.Feed(keyboard.Event{Key: keyboard.KeyBackspace})
	_, text := l.Feed(keyboard.Event{Key: keyboard.KeyEnter})
	assert.Equal(t, "", text)
}

func TestLineEditorSpaceKeyInsertsLiteralSpace(t *testing.T) {
	newTestTerminal(t)

	var l lineEditor
	l.Feed(keyboard.Event{Key: keyboard.KeyChar, Char: 'a'})
	l.Feed(keyboard.Event{Key: keyboard.KeySpace})
	l.Feed(keyboard.Event{Key: keyboard.KeyChar, Char: 'b'})

	_, text := l.Feed(keyboard.Event{Key: keyboard.KeyEnter})
	assert.Equal(t, "a b", text)
}

func TestDispatchTableCoversSpecCommands(t *testing.T) {
	for _, cmd := range []string{
		"help", "info", "clear", "reboot", "shutdown",
		"neofetch", "install", "list", "crfile", "read", "edit",
	} {
		_, ok := dispatch[cmd]
		assert.True(t, ok, "missing dispatch entry for %q", cmd)
	}
}

func TestExecuteUnknownCommandPrintsMessage(t *testing.T) {
	newTestTerminal(t)

	execute("bogus")

	assertLineContains(t, 0, "command not found")
}

func TestExecuteListWithoutInstallHintsAtNotMounted(t *testing.T) {
	newTestTerminal(t)

	execute("list")

	assertLineContains(t, 0, "run install")
}

// assertLineContains reads row y of the test console as a string and fails
// if it does not contain want.
func assertLineContains(t *testing.T, y uint16, want string) {
	t.Helper()

	var line []byte
	for x := uint16(0); x < 80; x++ {
		ch := byte(hal.TextConsole().Peek(x, y) & 0xFF)
		if ch == 0 {
			ch = ' '
		}
		line = append(line, ch)
	}

	if !contains(string(line), want) {
		t.Fatalf("expected row %d to contain %q; got %q", y, want, string(line))
	}
}

func contains(haystack, needle string) bool {
	if len(needle) == 0 {
		return true
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
