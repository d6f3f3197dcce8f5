package cmdstream

import (
	"golang.org/x/text/encoding/unicode"
)

// utf16Decoder converts little-endian UTF-16 without a BOM, the encoding
// Windows debug APIs hand the driver.
var utf16Decoder = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// DebugMarkerUTF16 appends a DEBUG_MARKER packet from a UTF-16LE byte
// sequence, converting to the UTF-8 the wire format requires. A trailing
// NUL is dropped. Undecodable input is replaced, never rejected; markers
// are diagnostics and must not fail a frame.
func (w *Writer) DebugMarkerUTF16(raw []byte) {
	decoded, err := utf16Decoder.NewDecoder().Bytes(raw)
	if err != nil {
		// The decoder substitutes U+FFFD on bad input rather than
		// erroring, so this is unreachable in practice.
		return
	}
	for len(decoded) > 0 && decoded[len(decoded)-1] == 0 {
		decoded = decoded[:len(decoded)-1]
	}
	w.DebugMarker(string(decoded))
}

// MarkerText extracts the UTF-8 text of a DEBUG_MARKER packet, trimming
// the 4-byte alignment padding.
func MarkerText(p Packet) string {
	if p.Opcode != OpDebugMarker {
		return ""
	}
	b := p.Body
	for len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	return string(b)
}
