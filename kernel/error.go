package kernel

// Error describes a kernel error. All kernel errors must be defined as
// global variables that are pointers to the Error structure. This
// requirement stems from the fact that the Go allocator is not available to
// us so we cannot use errors.New.
type Error struct {
	// The module where the error occurred, e.g. "fs", "ata", "vmm".
	Module string

	// The error message.
	Message string
}

// Error implements the error interface, prefixing the message with the
// originating module so every caller that logs an *Error (early.Printf in
// the shell, fatal exception logging) gets the module for free instead of
// having to prepend it themselves.
func (e *Error) Error() string {
	if e.Module == "" {
		return e.Message
	}
	return e.Module + ": " + e.Message
}
