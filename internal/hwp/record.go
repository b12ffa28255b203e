package hwp

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"unicode/utf16"
)

// tagParaText is the record tag carrying paragraph text. Its payload is
// UTF-16LE. All other tags are skipped.
const tagParaText = 67

// recordHeaderSize is the fixed size of a record header word.
const recordHeaderSize = 4

// extendedSize is the sentinel value of the packed 12-bit size field that
// signals a following 32-bit extended size word.
const extendedSize = 0xFFF

// DecodeError reports a malformed record stream. A DecodeError applies to a
// single stream: the caller skips the stream and continues with the file's
// remaining streams.
type DecodeError struct {
	// Offset is the byte offset in the (decompressed) stream where the
	// malformation was detected. -1 when decompression itself failed.
	Offset int
	// Reason describes the malformation.
	Reason string
}

func (e *DecodeError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("hwp: decode: %s", e.Reason)
	}
	return fmt.Sprintf("hwp: decode at offset %d: %s", e.Offset, e.Reason)
}

// DecodeText walks raw as a record stream and returns the concatenated
// paragraph text, one line per text record. When compressed is true, raw is
// first inflated with raw deflate (no zlib header, as the container stores
// body sections).
//
// Record layout: a 4-byte little-endian header word with the tag in bits
// 0–9 and the payload size in bits 20–31. A packed size of 0xFFF means the
// true 32-bit size follows in the next word. Unknown tags are skipped by
// advancing past their payload; a header or payload extending past the
// buffer end is a DecodeError.
func DecodeText(raw []byte, compressed bool) (string, error) {
	if compressed {
		inflated, err := inflate(raw)
		if err != nil {
			return "", &DecodeError{Offset: -1, Reason: err.Error()}
		}
		raw = inflated
	}

	var sb strings.Builder
	i := 0
	for i < len(raw) {
		if i+recordHeaderSize > len(raw) {
			return "", &DecodeError{Offset: i, Reason: "truncated record header"}
		}
		header := binary.LittleEndian.Uint32(raw[i : i+recordHeaderSize])
		tag := header & 0x3FF
		size := int(header >> 20 & 0xFFF)
		i += recordHeaderSize

		if size == extendedSize {
			if i+4 > len(raw) {
				return "", &DecodeError{Offset: i, Reason: "truncated extended size"}
			}
			size = int(binary.LittleEndian.Uint32(raw[i : i+4]))
			i += 4
		}

		if size < 0 || i+size > len(raw) {
			return "", &DecodeError{Offset: i, Reason: fmt.Sprintf("record payload of %d bytes past end", size)}
		}

		if tag == tagParaText {
			sb.WriteString(decodeParaText(raw[i : i+size]))
			sb.WriteByte('\n')
		}
		i += size
	}
	return sb.String(), nil
}

// inflate applies raw-deflate decompression to b.
func inflate(b []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(b))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("inflate: %w", err)
	}
	return out, nil
}

// decodeParaText decodes a paragraph-text payload as UTF-16LE, dropping the
// format's inline control characters (code points below U+0020 other than
// tab, which carry object anchors and field markers rather than text).
func decodeParaText(payload []byte) string {
	u16 := make([]uint16, 0, len(payload)/2)
	for i := 0; i+2 <= len(payload); i += 2 {
		u16 = append(u16, binary.LittleEndian.Uint16(payload[i:i+2]))
	}

	runes := utf16.Decode(u16)
	out := make([]rune, 0, len(runes))
	for _, r := range runes {
		if r < 0x20 && r != '\t' {
			continue
		}
		out = append(out, r)
	}
	return string(out)
}
