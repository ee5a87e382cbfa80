package rdb

import "unicode/utf8"

// decodeUTF8Lossy converts raw RDB string bytes to text, substituting the
// Unicode replacement character for any invalid byte sequence: values are
// surfaced as text even though the wire format carries raw bytes. Valid
// UTF-8 input is returned unchanged.
func decodeUTF8Lossy(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	buf := make([]rune, 0, len(raw))
	for i := 0; i < len(raw); {
		r, size := utf8.DecodeRune(raw[i:])
		buf = append(buf, r)
		i += size
	}
	return string(buf)
}
