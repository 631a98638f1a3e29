package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func resetState() {
	buffer = ring{}
	shiftDown, ctrlDown, altDown = false, false, false
}

func TestDecodeASCII(t *testing.T) {
	ch, ok := decodeASCII(0x1E, false)
	assert.True(t, ok)
	assert.Equal(t, byte('a'), ch)

	ch, ok = decodeASCII(0x1E, true)
	assert.True(t, ok)
	assert.Equal(t, byte('A'), ch)

	_, ok = decodeASCII(0x3A, false) // caps lock, no ASCII mapping
	assert.False(t, ok)
}

func TestHandleScancodePrintable(t *testing.T) {
	resetState()

	handleScancode(0x1E) // 'a' press
	ev, ok := Pop()
	assert.True(t, ok)
	assert.Equal(t, KeyChar, ev.Key)
	assert.Equal(t, byte('a'), ev.Char)

	_, ok = Pop()
	assert.False(t, ok)
}

func TestHandleScancodeShift(t *testing.T) {
	resetState()

	handleScancode(scShiftL)
	handleScancode(0x1E) // 'a' press while shift held
	handleScancode(scShiftL | scReleaseBit)

	ev, ok := Pop()
	assert.True(t, ok)
	assert.True(t, ev.Shift)
	assert.Equal(t, byte('A'), ev.Char)
}

func TestHandleScancodeSpecialKeys(t *testing.T) {
	resetState()

	specs := []struct {
		code byte
		key  Key
	}{
		{scEnter, KeyEnter},
		{scBackspace, KeyBackspace},
		{scTab, KeyTab},
		{scEsc, KeyEsc},
		{scSpace, KeySpace},
		{scUp, KeyUp},
		{scDown, KeyDown},
		{scLeft, KeyLeft},
		{scRight, KeyRight},
	}

	for _, spec := range specs {
		resetState()
		handleScancode(spec.code)
		ev, ok := Pop()
		assert.True(t, ok)
		assert.Equal(t, spec.key, ev.Key)
	}
}

func TestHandleScancodeKeyReleaseIgnored(t *testing.T) {
	resetState()

	handleScancode(0x1E | scReleaseBit)
	_, ok := Pop()
	assert.False(t, ok, "key release events should not be enqueued")
}

func TestRingDropsOnOverflow(t *testing.T) {
	resetState()

	for i := 0; i < ringSize+10; i++ {
		handleScancode(0x1E)
	}

	count := 0
	for {
		if _, ok := Pop(); !ok {
			break
		}
		count++
	}

	assert.Equal(t, ringSize-1, count, "ring should hold at most ringSize-1 events")
}
