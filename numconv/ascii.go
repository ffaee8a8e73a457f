package numconv

import (
	"bytes"

	"golang.org/x/text/encoding/charmap"

	"github.com/vdatab/devaccess/usertype"
)

// asciiCodec is the transcoding used for the map-file's `ASCII`
// bit-interpretation: a fixed-width raw byte area treated as text.
// golang.org/x/text's charmap.ASCII gives us a real Encoder/Decoder
// pair (with well-defined replacement-on-invalid-byte behaviour)
// instead of a bespoke byte-range check.
var asciiCodec = charmap.ASCII

// StringFromASCIIWords unpacks nWords little-endian 32-bit raw words,
// each holding up to 4 ASCII bytes, into a Go string. Trailing NUL
// bytes are trimmed.
func StringFromASCIIWords(words []uint32) (usertype.Value, error) {
	buf := make([]byte, 0, len(words)*4)
	for _, w := range words {
		buf = append(buf, byte(w), byte(w>>8), byte(w>>16), byte(w>>24))
	}
	buf = bytes.TrimRight(buf, "\x00")
	decoded, err := asciiCodec.NewDecoder().Bytes(buf)
	if err != nil {
		return usertype.Value{}, err
	}
	return usertype.FromString(string(decoded)), nil
}

// ASCIIWordsFromString packs s into nWords little-endian 32-bit raw
// words, zero-padding (or truncating) to fit exactly nWords*4 bytes.
func ASCIIWordsFromString(s string, nWords int) ([]uint32, error) {
	encoded, err := asciiCodec.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, err
	}
	buf := make([]byte, nWords*4)
	copy(buf, encoded)

	words := make([]uint32, nWords)
	for i := range words {
		b := buf[i*4 : i*4+4]
		words[i] = uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	}
	return words, nil
}
