package fs

import "github.com/gianndev/ParvaOS/kernel"

// Dir is a handle to a directory's entry chain, identified by the address
// of its first block.
type Dir struct {
	blockAddr uint32
}

// RootDir returns a handle to the file system root, whose first block
// address is fixed at DataAddrOffset by Format.
func RootDir() Dir {
	return Dir{blockAddr: DataAddrOffset}
}

// find scans d's entry chain for name, skipping tombstoned (Addr == 0)
// records. It returns the block and byte offset the record lives at so
// callers can rewrite it in place.
func (d Dir) find(name string) (entry DirEntry, blockAddr uint32, offset int, found bool, err *kernel.Error) {
	if !mounted {
		return DirEntry{}, 0, 0, false, ErrNotMounted
	}

	addr := d.blockAddr
	for addr != 0 {
		next, payload, e := readBlock(addr)
		if e != nil {
			return DirEntry{}, 0, 0, false, e
		}

		off := 0
		for off < len(payload) {
			dec, n, ok := DecodeDirEntry(payload[off:])
			if !ok || len(dec.Name) == 0 {
				break
			}
			if dec.Name == name && dec.Addr != 0 {
				return dec, addr, off, true, nil
			}
			off += n
		}

		addr = next
	}

	return DirEntry{}, 0, 0, false, nil
}

// List returns every live (non-tombstoned) entry in d.
func (d Dir) List() ([]DirEntry, *kernel.Error) {
	if !mounted {
		return nil, ErrNotMounted
	}

	var out []DirEntry

	addr := d.blockAddr
	for addr != 0 {
		next, payload, err := readBlock(addr)
		if err != nil {
			return nil, err
		}

		off := 0
		for off < len(payload) {
			dec, n, ok := DecodeDirEntry(payload[off:])
			if !ok || len(dec.Name) == 0 {
				break
			}
			if dec.Addr != 0 {
				out = append(out, dec)
			}
			off += n
		}

		addr = next
	}

	return out, nil
}

// lastBlockAndUsed walks to the end of a directory's chain and reports how
// many of its payload bytes are already occupied by entry records.
func lastBlockAndUsed(startAddr uint32) (addr uint32, used int, err *kernel.Error) {
	addr = startAddr
	for {
		next, payload, e := readBlock(addr)
		if e != nil {
			return 0, 0, e
		}
		if next == 0 {
			return addr, usedBytes(payload), nil
		}
		addr = next
	}
}

func usedBytes(payload []byte) int {
	off := 0
	for off < len(payload) {
		dec, n, ok := DecodeDirEntry(payload[off:])
		if !ok || len(dec.Name) == 0 {
			break
		}
		off += n
	}
	return off
}

func writeEntryAt(blockAddr uint32, offset int, encoded []byte) *kernel.Error {
	var buf [sectorSize]byte
	if err := readSector(blockAddr, buf[:]); err != nil {
		return err
	}
	copy(buf[4+offset:], encoded)
	return writeSector(blockAddr, buf[:])
}

func createEntry(dirBlockAddr uint32, name string, kind EntryKind) *kernel.Error {
	if !mounted {
		return ErrNotMounted
	}

	_, _, _, found, err := Dir{blockAddr: dirBlockAddr}.find(name)
	if err != nil {
		return err
	}
	if found {
		return ErrAlreadyExists
	}

	dataBlock, err := blockAlloc()
	if err != nil {
		return err
	}

	encoded := EncodeDirEntry(DirEntry{Kind: kind, Addr: dataBlock, Size: 0, Name: name})

	lastAddr, used, err := lastBlockAndUsed(dirBlockAddr)
	if err != nil {
		return err
	}

	if used+len(encoded) <= payloadSize {
		return writeEntryAt(lastAddr, used, encoded)
	}

	newBlockAddr, err := blockAlloc()
	if err != nil {
		return err
	}
	if err := writeBlockNext(lastAddr, newBlockAddr); err != nil {
		return err
	}
	return writeEntryAt(newBlockAddr, 0, encoded)
}

// CreateFile adds a new, empty file entry to the directory at dirBlockAddr.
func CreateFile(dirBlockAddr uint32, name string) *kernel.Error {
	return createEntry(dirBlockAddr, name, KindFile)
}

// CreateDir adds a new, empty subdirectory entry to the directory at
// dirBlockAddr.
func CreateDir(dirBlockAddr uint32, name string) *kernel.Error {
	return createEntry(dirBlockAddr, name, KindDir)
}

// DeleteEntry tombstones name in the directory at dirBlockAddr and frees
// its entire block chain.
func DeleteEntry(dirBlockAddr uint32, name string) *kernel.Error {
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

	if err := freeChain(entry.Addr); err != nil {
		return err
	}

	tombstoned := entry
	tombstoned.Addr = 0
	return writeEntryAt(blockAddr, offset, EncodeDirEntry(tombstoned))
}

// UpdateEntrySize rewrites name's size field in place. Used after a file
// write changes its length.
func UpdateEntrySize(dirBlockAddr uint32, name string, size uint32) *kernel.Error {
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

	entry.Size = size
	return writeEntryAt(blockAddr, offset, EncodeDirEntry(entry))
}

// Lookup resolves a slash-separated path from the root, requiring every
// intermediate component to be a directory. The empty path resolves to the
// root itself.
func Lookup(path string) (DirEntry, *kernel.Error) {
	if !mounted {
		return DirEntry{}, ErrNotMounted
	}

	parts := splitPath(path)
	if len(parts) == 0 {
		return DirEntry{Kind: KindDir, Addr: DataAddrOffset}, nil
	}

	dir := RootDir()
	var entry DirEntry
	for i, name := range parts {
		e, _, _, found, err := dir.find(name)
		if err != nil {
			return DirEntry{}, err
		}
		if !found {
			return DirEntry{}, ErrNotFound
		}

		isLast := i == len(parts)-1
		if !isLast && e.Kind != KindDir {
			return DirEntry{}, ErrNotFound
		}

		entry = e
		dir = Dir{blockAddr: e.Addr}
	}

	return entry, nil
}
