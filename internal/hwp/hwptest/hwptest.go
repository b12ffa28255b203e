// Package hwptest builds synthetic compound-file containers and record
// streams for tests. The fixtures are structurally valid OLE files: real
// header, FAT, directory tree, and sector chains — only the mini stream is
// omitted (the size cutoff is set to zero so every stream uses regular
// sectors).
package hwptest

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"sort"
	"strings"
	"unicode/utf16"
)

const (
	sectorSize  = 512
	endOfChain  = 0xFFFFFFFE
	freeSector  = 0xFFFFFFFF
	noStream    = 0xFFFFFFFF
	objStorage  = 1
	objStream   = 2
	objRoot     = 5
	tagParaText = 67
)

// EncodeRecords encodes each line of text as a paragraph-text record
// followed by a dummy record of an unrelated tag, producing a stream the
// decoder must walk selectively. extended forces the extended-size encoding
// on every text record regardless of payload length.
func EncodeRecords(lines []string, extended bool) []byte {
	var buf bytes.Buffer
	for _, line := range lines {
		payload := encodeUTF16(line)
		writeRecord(&buf, tagParaText, payload, extended)
		// A non-text record the decoder must skip.
		writeRecord(&buf, 66, []byte{1, 2, 3, 4}, false)
	}
	return buf.Bytes()
}

// writeRecord appends one record with the given tag and payload.
func writeRecord(buf *bytes.Buffer, tag uint32, payload []byte, extended bool) {
	size := uint32(len(payload))
	if extended || size >= 0xFFF {
		header := tag | 0xFFF<<20
		_ = binary.Write(buf, binary.LittleEndian, header)
		_ = binary.Write(buf, binary.LittleEndian, size)
	} else {
		header := tag | size<<20
		_ = binary.Write(buf, binary.LittleEndian, header)
	}
	buf.Write(payload)
}

// encodeUTF16 returns s as little-endian UTF-16 bytes.
func encodeUTF16(s string) []byte {
	u16 := utf16.Encode([]rune(s))
	out := make([]byte, len(u16)*2)
	for i, v := range u16 {
		binary.LittleEndian.PutUint16(out[i*2:], v)
	}
	return out
}

// Deflate compresses b with raw deflate, as the container stores compressed
// body sections.
func Deflate(b []byte) []byte {
	var buf bytes.Buffer
	w, _ := flate.NewWriter(&buf, flate.DefaultCompression)
	_, _ = w.Write(b)
	_ = w.Close()
	return buf.Bytes()
}

// BuildDocument assembles a complete synthetic word-processor file: a
// FileHeader stream (byte 36 bit 0 = compressed flag), the summary stream,
// and one BodyText/SectionN stream per element of sections, each holding the
// record-encoded section lines.
func BuildDocument(sections [][]string, compressed bool) []byte {
	header := make([]byte, 256)
	copy(header, "HWP Document File")
	if compressed {
		header[36] |= 1
	}

	streams := map[string][]byte{
		"FileHeader":              header,
		"\x05HwpSummaryInformation": make([]byte, 64),
	}
	for i, lines := range sections {
		body := EncodeRecords(lines, false)
		if compressed {
			body = Deflate(body)
		}
		streams["BodyText/Section"+itoa(i)] = body
	}
	return BuildContainer(streams)
}

// BuildContainer assembles an OLE compound file holding the given streams.
// Keys may contain one slash to place a stream inside a storage.
func BuildContainer(streams map[string][]byte) []byte {
	// Stable ordering keeps fixtures deterministic.
	names := make([]string, 0, len(streams))
	for name := range streams {
		names = append(names, name)
	}
	sort.Strings(names)

	// Collect storages in first-seen order.
	var storages []string
	seen := map[string]bool{}
	for _, name := range names {
		if dir, _, ok := strings.Cut(name, "/"); ok && !seen[dir] {
			seen[dir] = true
			storages = append(storages, dir)
		}
	}

	type entry struct {
		name               string
		objType            byte
		left, right, child uint32
		startSector        uint32
		size               uint32
	}

	entries := []entry{{name: "Root Entry", objType: objRoot, left: noStream, right: noStream, child: noStream, startSector: endOfChain}}
	index := map[string]uint32{}

	add := func(name string, typ byte) uint32 {
		entries = append(entries, entry{name: name, objType: typ, left: noStream, right: noStream, child: noStream, startSector: endOfChain})
		idx := uint32(len(entries) - 1)
		index[name] = idx
		return idx
	}

	// Siblings chain through right pointers; parents point at the first child.
	link := func(parent uint32, child uint32) {
		if entries[parent].child == noStream {
			entries[parent].child = child
			return
		}
		cur := entries[parent].child
		for entries[cur].right != noStream {
			cur = entries[cur].right
		}
		entries[cur].right = child
	}

	for _, dir := range storages {
		link(0, add(dir, objStorage))
	}
	for _, name := range names {
		if dir, base, ok := strings.Cut(name, "/"); ok {
			link(index[dir], add(base, objStream))
		} else {
			link(0, add(name, objStream))
		}
	}

	// Sector layout: FAT first, then the directory, then stream data.
	dirSectors := (len(entries)*128 + sectorSize - 1) / sectorSize
	if dirSectors == 0 {
		dirSectors = 1
	}

	var dataSectors [][]byte
	next := uint32(1 + dirSectors)
	findEntry := func(name string) *entry {
		if dir, base, ok := strings.Cut(name, "/"); ok {
			ci := entries[index[dir]].child
			for ci != noStream {
				if entries[ci].name == base {
					return &entries[ci]
				}
				ci = entries[ci].right
			}
		}
		return &entries[index[name]]
	}
	for _, name := range names {
		data := streams[name]
		e := findEntry(name)
		e.size = uint32(len(data))
		if len(data) == 0 {
			continue
		}
		e.startSector = next
		for off := 0; off < len(data); off += sectorSize {
			end := off + sectorSize
			if end > len(data) {
				end = len(data)
			}
			sec := make([]byte, sectorSize)
			copy(sec, data[off:end])
			dataSectors = append(dataSectors, sec)
			next++
		}
	}

	// FAT: one sector is enough for small fixtures.
	fat := make([]uint32, sectorSize/4)
	for i := range fat {
		fat[i] = freeSector
	}
	fat[0] = endOfChain // the FAT sector itself
	for i := 0; i < dirSectors; i++ {
		if i == dirSectors-1 {
			fat[1+i] = endOfChain
		} else {
			fat[1+i] = uint32(2 + i)
		}
	}
	// Chain data sectors: consecutive within each stream.
	for _, name := range names {
		e := findEntry(name)
		if e.size == 0 {
			continue
		}
		n := (int(e.size) + sectorSize - 1) / sectorSize
		for i := 0; i < n; i++ {
			s := e.startSector + uint32(i)
			if i == n-1 {
				fat[s] = endOfChain
			} else {
				fat[s] = s + 1
			}
		}
	}

	// Header.
	hdr := make([]byte, 512)
	copy(hdr, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1})
	binary.LittleEndian.PutUint16(hdr[26:], 3)      // minor version
	binary.LittleEndian.PutUint16(hdr[28:], 0xFFFE) // byte order
	binary.LittleEndian.PutUint16(hdr[30:], 9)      // sector shift
	binary.LittleEndian.PutUint16(hdr[32:], 6)      // mini sector shift
	binary.LittleEndian.PutUint32(hdr[44:], 1)      // FAT sector count
	binary.LittleEndian.PutUint32(hdr[48:], 1)      // first directory sector
	binary.LittleEndian.PutUint32(hdr[56:], 0)      // mini cutoff: regular sectors only
	binary.LittleEndian.PutUint32(hdr[60:], endOfChain)
	binary.LittleEndian.PutUint32(hdr[64:], 0)
	binary.LittleEndian.PutUint32(hdr[68:], endOfChain)
	binary.LittleEndian.PutUint32(hdr[72:], 0)
	binary.LittleEndian.PutUint32(hdr[76:], 0) // DIFAT[0] = FAT sector 0
	for i := 1; i < 109; i++ {
		binary.LittleEndian.PutUint32(hdr[76+i*4:], freeSector)
	}

	out := bytes.NewBuffer(hdr)
	for _, v := range fat {
		_ = binary.Write(out, binary.LittleEndian, v)
	}

	dir := make([]byte, dirSectors*sectorSize)
	for i, e := range entries {
		raw := dir[i*128 : (i+1)*128]
		u16 := utf16.Encode([]rune(e.name))
		for j, v := range u16 {
			binary.LittleEndian.PutUint16(raw[j*2:], v)
		}
		binary.LittleEndian.PutUint16(raw[64:], uint16(len(u16)*2+2))
		raw[66] = e.objType
		binary.LittleEndian.PutUint32(raw[68:], e.left)
		binary.LittleEndian.PutUint32(raw[72:], e.right)
		binary.LittleEndian.PutUint32(raw[76:], e.child)
		binary.LittleEndian.PutUint32(raw[116:], e.startSector)
		binary.LittleEndian.PutUint32(raw[120:], e.size)
	}
	out.Write(dir)

	for _, sec := range dataSectors {
		out.Write(sec)
	}

	return out.Bytes()
}

// itoa avoids strconv for the tiny section indices used in fixtures.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	return string(b)
}
