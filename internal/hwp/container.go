// Package hwp decodes the compressed binary word-processor format used by
// the sermon corpus. It has two layers: a reader for the OLE compound file
// container (Container) and a decoder for the bit-packed record stream found
// inside each body-text section (DecodeText).
//
// The package is read-only: it never mutates or re-writes source files.
package hwp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf16"
)

// ErrNotContainer is returned by Open when the buffer does not start with the
// compound-file signature. Callers treat this as "not this format" and skip
// the file rather than aborting the ingestion run.
var ErrNotContainer = errors.New("hwp: not a compound file container")

// cfbSignature is the 8-byte magic at offset 0 of every compound file.
var cfbSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// Sector chain terminators and special FAT values.
const (
	secEndOfChain = 0xFFFFFFFE
	secFree       = 0xFFFFFFFF
	secFAT        = 0xFFFFFFFD
	secDIFAT      = 0xFFFFFFFC
)

// Directory entry object types.
const (
	objStorage = 1
	objStream  = 2
	objRoot    = 5
)

// noStream marks an unused sibling/child slot in a directory entry.
const noStream = 0xFFFFFFFF

// maxChainLength bounds sector chain walks so a corrupted FAT with a cycle
// cannot loop forever.
const maxChainLength = 1 << 20

// dirEntry is one 128-byte entry from the container's directory stream.
type dirEntry struct {
	// name is the decoded UTF-16 entry name, without the trailing NUL.
	name string
	// objType is one of objStorage, objStream, objRoot.
	objType byte
	// left, right, child are directory entry indices forming the sibling
	// tree (red-black tree on disk; ordering is irrelevant for reading).
	left, right, child uint32
	// startSector is the first sector of the entry's data chain.
	startSector uint32
	// size is the stream length in bytes.
	size uint64
}

// Container is an opened OLE compound file. It indexes the streams by their
// slash-joined path (e.g. "BodyText/Section0") for direct lookup.
type Container struct {
	// streams maps "Storage/Stream" paths to directory entries.
	streams map[string]*dirEntry

	// sectorSize is the regular sector size in bytes (usually 512).
	sectorSize int

	// miniSectorSize is the mini-stream sector size in bytes (usually 64).
	miniSectorSize int

	// miniCutoff is the size below which streams live in the mini stream.
	miniCutoff uint32

	// fat maps sector number to the next sector in its chain.
	fat []uint32

	// miniFAT maps mini-sector number to the next mini-sector in its chain.
	miniFAT []uint32

	// miniStream is the root entry's data, which backs all mini streams.
	miniStream []byte

	// data is the raw file contents.
	data []byte
}

// Open parses buf as an OLE compound file and returns a Container.
// It returns ErrNotContainer when the signature is missing, and a descriptive
// error for structurally broken files.
func Open(buf []byte) (*Container, error) {
	if len(buf) < 512 {
		return nil, ErrNotContainer
	}
	if string(buf[:8]) != string(cfbSignature) {
		return nil, ErrNotContainer
	}

	sectorShift := binary.LittleEndian.Uint16(buf[30:32])
	miniShift := binary.LittleEndian.Uint16(buf[32:34])
	if sectorShift < 7 || sectorShift > 12 || miniShift >= sectorShift {
		return nil, fmt.Errorf("hwp: implausible sector shifts %d/%d", sectorShift, miniShift)
	}

	c := &Container{
		streams:        make(map[string]*dirEntry),
		sectorSize:     1 << sectorShift,
		miniSectorSize: 1 << miniShift,
		miniCutoff:     binary.LittleEndian.Uint32(buf[56:60]),
		data:           buf,
	}

	numFATSectors := binary.LittleEndian.Uint32(buf[44:48])
	firstDirSector := binary.LittleEndian.Uint32(buf[48:52])
	firstMiniFATSector := binary.LittleEndian.Uint32(buf[60:64])
	numMiniFATSectors := binary.LittleEndian.Uint32(buf[64:68])
	firstDIFATSector := binary.LittleEndian.Uint32(buf[68:72])
	numDIFATSectors := binary.LittleEndian.Uint32(buf[72:76])

	fatSectors, err := c.readDIFAT(firstDIFATSector, numDIFATSectors, numFATSectors)
	if err != nil {
		return nil, err
	}

	if err := c.readFAT(fatSectors); err != nil {
		return nil, err
	}

	dirData, err := c.readChain(firstDirSector, 0)
	if err != nil {
		return nil, fmt.Errorf("hwp: directory chain: %w", err)
	}

	entries := parseDirEntries(dirData)
	if len(entries) == 0 || entries[0].objType != objRoot {
		return nil, fmt.Errorf("hwp: missing root directory entry")
	}

	// The mini FAT and the root entry's chain back all small streams.
	if numMiniFATSectors > 0 && firstMiniFATSector != secEndOfChain {
		miniFATData, err := c.readChain(firstMiniFATSector, 0)
		if err != nil {
			return nil, fmt.Errorf("hwp: mini FAT chain: %w", err)
		}
		c.miniFAT = toUint32s(miniFATData)
	}
	if entries[0].startSector != secEndOfChain {
		ms, err := c.readChain(entries[0].startSector, entries[0].size)
		if err != nil {
			return nil, fmt.Errorf("hwp: mini stream chain: %w", err)
		}
		c.miniStream = ms
	}

	c.walkTree(entries, entries[0].child, "")
	return c, nil
}

// Streams returns the slash-joined paths of all streams in the container,
// sorted for deterministic iteration.
func (c *Container) Streams() []string {
	names := make([]string, 0, len(c.streams))
	for name := range c.streams {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasStream reports whether a stream with the given path exists.
func (c *Container) HasStream(name string) bool {
	_, ok := c.streams[name]
	return ok
}

// ReadStream returns the raw bytes of the named stream.
func (c *Container) ReadStream(name string) ([]byte, error) {
	e, ok := c.streams[name]
	if !ok {
		return nil, fmt.Errorf("hwp: no such stream %q", name)
	}
	if e.size == 0 {
		return nil, nil
	}

	// Streams below the cutoff live in the mini stream; the root's own chain
	// always uses regular sectors.
	if e.size < uint64(c.miniCutoff) {
		return c.readMiniChain(e.startSector, e.size)
	}
	return c.readChain(e.startSector, e.size)
}

// readDIFAT collects the list of FAT sector numbers: the first 109 live in
// the header, the remainder in a chain of DIFAT sectors.
func (c *Container) readDIFAT(firstSector, numSectors, numFAT uint32) ([]uint32, error) {
	fatSectors := make([]uint32, 0, numFAT)
	for i := 0; i < 109; i++ {
		v := binary.LittleEndian.Uint32(c.data[76+i*4 : 80+i*4])
		if v == secFree || v == secEndOfChain {
			break
		}
		fatSectors = append(fatSectors, v)
	}

	sector := firstSector
	for i := uint32(0); i < numSectors && sector != secEndOfChain && sector != secFree; i++ {
		raw, err := c.sectorBytes(sector)
		if err != nil {
			return nil, fmt.Errorf("hwp: DIFAT sector %d: %w", sector, err)
		}
		// All entries except the last are FAT sector numbers; the last links
		// to the next DIFAT sector.
		n := c.sectorSize/4 - 1
		for j := 0; j < n; j++ {
			v := binary.LittleEndian.Uint32(raw[j*4 : j*4+4])
			if v == secFree || v == secEndOfChain {
				continue
			}
			fatSectors = append(fatSectors, v)
		}
		sector = binary.LittleEndian.Uint32(raw[n*4 : n*4+4])
	}
	return fatSectors, nil
}

// readFAT assembles the full FAT table from its sector list.
func (c *Container) readFAT(fatSectors []uint32) error {
	c.fat = make([]uint32, 0, len(fatSectors)*c.sectorSize/4)
	for _, s := range fatSectors {
		raw, err := c.sectorBytes(s)
		if err != nil {
			return fmt.Errorf("hwp: FAT sector %d: %w", s, err)
		}
		c.fat = append(c.fat, toUint32s(raw)...)
	}
	return nil
}

// sectorBytes returns the raw contents of a regular sector. Sector 0 starts
// immediately after the 512-byte header regardless of sector size.
func (c *Container) sectorBytes(sector uint32) ([]byte, error) {
	off := 512 + int(sector)*c.sectorSize
	if off < 512 || off+c.sectorSize > len(c.data) {
		return nil, fmt.Errorf("sector %d out of bounds", sector)
	}
	return c.data[off : off+c.sectorSize], nil
}

// readChain follows a regular-sector chain, returning up to size bytes.
// A size of 0 returns the full chain (used for directory and FAT streams).
func (c *Container) readChain(start uint32, size uint64) ([]byte, error) {
	var out []byte
	sector := start
	for n := 0; sector != secEndOfChain && sector != secFree; n++ {
		if n > maxChainLength {
			return nil, fmt.Errorf("sector chain too long (cycle?)")
		}
		raw, err := c.sectorBytes(sector)
		if err != nil {
			return nil, err
		}
		out = append(out, raw...)
		if int(sector) >= len(c.fat) {
			return nil, fmt.Errorf("sector %d beyond FAT", sector)
		}
		sector = c.fat[sector]
	}
	if size > 0 {
		if uint64(len(out)) < size {
			return nil, fmt.Errorf("chain shorter than declared size (%d < %d)", len(out), size)
		}
		out = out[:size]
	}
	return out, nil
}

// readMiniChain follows a mini-sector chain through the mini stream.
func (c *Container) readMiniChain(start uint32, size uint64) ([]byte, error) {
	var out []byte
	sector := start
	for n := 0; sector != secEndOfChain && sector != secFree; n++ {
		if n > maxChainLength {
			return nil, fmt.Errorf("hwp: mini chain too long (cycle?)")
		}
		off := int(sector) * c.miniSectorSize
		if off+c.miniSectorSize > len(c.miniStream) {
			return nil, fmt.Errorf("hwp: mini sector %d out of bounds", sector)
		}
		out = append(out, c.miniStream[off:off+c.miniSectorSize]...)
		if int(sector) >= len(c.miniFAT) {
			return nil, fmt.Errorf("hwp: mini sector %d beyond mini FAT", sector)
		}
		sector = c.miniFAT[sector]
	}
	if uint64(len(out)) < size {
		return nil, fmt.Errorf("hwp: mini chain shorter than declared size (%d < %d)", len(out), size)
	}
	return out[:size], nil
}

// walkTree flattens the directory sibling tree into slash-joined stream
// paths, descending into storages. Storage names become path prefixes.
func (c *Container) walkTree(entries []dirEntry, idx uint32, prefix string) {
	if idx == noStream || int(idx) >= len(entries) {
		return
	}
	e := &entries[idx]

	c.walkTree(entries, e.left, prefix)
	c.walkTree(entries, e.right, prefix)

	name := e.name
	if prefix != "" {
		name = prefix + "/" + name
	}
	switch e.objType {
	case objStream:
		c.streams[name] = e
	case objStorage:
		c.walkTree(entries, e.child, name)
	}
}

// parseDirEntries decodes 128-byte directory entries, stopping at the first
// unused slot past the root.
func parseDirEntries(data []byte) []dirEntry {
	var entries []dirEntry
	for off := 0; off+128 <= len(data); off += 128 {
		raw := data[off : off+128]
		nameLen := int(binary.LittleEndian.Uint16(raw[64:66]))
		if nameLen < 2 || nameLen > 64 {
			entries = append(entries, dirEntry{objType: 0})
			continue
		}
		u16 := make([]uint16, 0, nameLen/2-1)
		for i := 0; i+2 <= nameLen-2; i += 2 {
			u16 = append(u16, binary.LittleEndian.Uint16(raw[i:i+2]))
		}
		entries = append(entries, dirEntry{
			name:        string(utf16.Decode(u16)),
			objType:     raw[66],
			left:        binary.LittleEndian.Uint32(raw[68:72]),
			right:       binary.LittleEndian.Uint32(raw[72:76]),
			child:       binary.LittleEndian.Uint32(raw[76:80]),
			startSector: binary.LittleEndian.Uint32(raw[116:120]),
			size:        uint64(binary.LittleEndian.Uint32(raw[120:124])),
		})
	}
	return entries
}

// toUint32s reinterprets a byte slice as little-endian uint32 values.
func toUint32s(b []byte) []uint32 {
	out := make([]uint32, 0, len(b)/4)
	for i := 0; i+4 <= len(b); i += 4 {
		out = append(out, binary.LittleEndian.Uint32(b[i:i+4]))
	}
	return out
}

// SectionNumber extracts the numeric suffix from a "BodyText/SectionN" path.
// Returns -1 when the path is not a body-text section.
func SectionNumber(path string) int {
	rest, ok := strings.CutPrefix(path, "BodyText/Section")
	if !ok {
		return -1
	}
	n := 0
	if rest == "" {
		return -1
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return -1
		}
		n = n*10 + int(r-'0')
	}
	return n
}
