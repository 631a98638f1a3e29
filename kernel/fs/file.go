package fs

import "github.com/gianndev/ParvaOS/kernel"

// ReadFile copies up to entry.Size bytes of a file's chained payload into
// buf, stopping early if buf is shorter than the file. It returns the
// number of bytes copied.
func ReadFile(entry DirEntry, buf []byte) (int, *kernel.Error) {
	if !mounted {
		return 0, ErrNotMounted
	}

	total := 0
	remaining := int(entry.Size)
	addr := entry.Addr

	for addr != 0 && total < len(buf) && remaining > 0 {
		next, payload, err := readBlock(addr)
		if err != nil {
			return total, err
		}

		n := len(payload)
		if n > remaining {
			n = remaining
		}
		if total+n > len(buf) {
			n = len(buf) - total
		}

		copy(buf[total:total+n], payload[:n])
		total += n
		remaining -= n
		addr = next
	}

	return total, nil
}

// WriteFile truncates-and-overwrites name's contents in the directory at
// dirBlockAddr with data, walking and reusing the file's existing block
// chain where possible, extending it if data is longer, and freeing any
// surplus tail blocks if data is shorter.
func WriteFile(dirBlockAddr uint32, name string, data []byte) *kernel.Error {
	if !mounted {
		return ErrNotMounted
	}

	entry, blockAddr, offset, found, err := Dir{blockAddr: dirBlockAddr}.find(name)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}

	if len(data) == 0 {
		if entry.Addr != 0 {
			if err := freeChain(entry.Addr); err != nil {
				return err
			}
		}
		newAddr, err := blockAlloc()
		if err != nil {
			return err
		}
		entry.Addr = newAddr
		entry.Size = 0
		return writeEntryAt(blockAddr, offset, EncodeDirEntry(entry))
	}

	addr := entry.Addr
	prev := uint32(0)
	pos := 0

	for pos < len(data) {
		chunk := data[pos:]
		if len(chunk) > payloadSize {
			chunk = chunk[:payloadSize]
		}

		if addr == 0 {
			newAddr, err := blockAlloc()
			if err != nil {
				return err
			}
			if prev != 0 {
				if err := writeBlockNext(prev, newAddr); err != nil {
					return err
				}
			} else {
				entry.Addr = newAddr
			}
			addr = newAddr
		}

		if err := writeBlockPayload(addr, chunk); err != nil {
			return err
		}

		next, _, err := readBlock(addr)
		if err != nil {
			return err
		}

		pos += len(chunk)
		prev = addr

		if pos < len(data) {
			addr = next
			continue
		}

		if next != 0 {
			if err := freeChain(next); err != nil {
				return err
			}
			if err := writeBlockNext(addr, 0); err != nil {
				return err
			}
		}
	}

	entry.Size = uint32(len(data))
	return writeEntryAt(blockAddr, offset, EncodeDirEntry(entry))
}

// splitPath breaks a slash-separated path into its non-empty components.
func splitPath(path string) []string {
	var parts []string
	start := 0
	for i := 0; i <= len(path); i++ {
		if i == len(path) || path[i] == '/' {
			if i > start {
				parts = append(parts, path[start:i])
			}
			start = i + 1
		}
	}
	return parts
}

func lastSlash(path string) int {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return i
		}
	}
	return -1
}

// Dirname returns the portion of path before its final component, or "" if
// path has no slash.
func Dirname(path string) string {
	idx := lastSlash(path)
	if idx < 0 {
		return ""
	}
	if idx == 0 {
		return "/"
	}
	return path[:idx]
}

// Filename returns path's final component.
func Filename(path string) string {
	return path[lastSlash(path)+1:]
}

// Realpath resolves path against cwd: an absolute path (leading '/') is
// returned unchanged, otherwise cwd is prepended.
func Realpath(cwd, path string) string {
	if len(path) > 0 && path[0] == '/' {
		return path
	}
	if cwd == "" {
		cwd = "/"
	}
	if cwd[len(cwd)-1] == '/' {
		return cwd + path
	}
	return cwd + "/" + path
}
