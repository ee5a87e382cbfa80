// Package rdb decodes an RDB snapshot buffer into key/value/expiry records.
// It never touches a filesystem: the core receives a raw byte buffer from an
// opaque loader, and only the binary format boundary lives here.
package rdb

import "fmt"

// Opcodes,
const (
	opAux       = 0xFA
	opSelectDB  = 0xFE
	opResizeDB  = 0xFB
	opExpireSec = 0xFD
	opExpireMS  = 0xFC
	opEOF       = 0xFF
)

// typeString is the only value-type byte that produces a store entry.
const typeString = 0

// legacyContainerTypes are recognized but discarded: each is, in real RDB
// files, serialized as a single length-prefixed blob (hash-zipmap,
// list-ziplist, set-intset, zset-ziplist, hash-ziplist), so it parses
// cleanly as a string read. This server's Value model only has String and
// Stream, so there is nowhere to put the decoded container — it is read (to
// keep the cursor correct) and thrown away rather than rejected.
var legacyContainerTypes = map[byte]bool{
	9: true, 10: true, 11: true, 12: true, 13: true,
}

// Entry is one decoded key, ready to be loaded into the store.
type Entry struct {
	Key       string
	Value     string
	ExpiryMS  int64 // meaningful only when HasExpiry
	HasExpiry bool
}

// FormatError is returned for any malformed input: bad magic, truncated
// data, or an unrecognized opcode/type encountered before EOF. Always fatal
// to the caller at startup.
type FormatError struct{ Detail string }

func (e *FormatError) Error() string { return "rdb: " + e.Detail }

func formatErrf(format string, args ...interface{}) error {
	return &FormatError{Detail: fmt.Sprintf(format, args...)}
}

// Decode parses buf and returns every live key it finds. Parsing starts
// after the 5-byte "REDIS" magic and 4-byte version and stops the moment the
// EOF opcode is seen; anything after it (typically an 8-byte checksum
// trailer) is never read or verified.
func Decode(buf []byte) ([]Entry, error) {
	if len(buf) < 9 || string(buf[0:5]) != "REDIS" {
		return nil, formatErrf("bad magic, want %q", "REDIS")
	}

	d := &decoder{buf: buf, pos: 9}
	var entries []Entry
	var pendingExpiry int64
	var hasPendingExpiry bool

	for {
		op, err := d.readByte()
		if err != nil {
			return nil, formatErrf("truncated input: missing EOF opcode")
		}

		switch op {
		case opEOF:
			return entries, nil

		case opAux:
			if _, err := d.readString(); err != nil {
				return nil, err
			}
			if _, err := d.readString(); err != nil {
				return nil, err
			}

		case opSelectDB:
			if _, err := d.readLength(); err != nil {
				return nil, err
			}

		case opResizeDB:
			if _, err := d.readLength(); err != nil {
				return nil, err
			}
			if _, err := d.readLength(); err != nil {
				return nil, err
			}

		case opExpireSec:
			secs, err := d.readUint32LE()
			if err != nil {
				return nil, err
			}
			pendingExpiry = int64(secs) * 1000
			hasPendingExpiry = true

		case opExpireMS:
			ms, err := d.readUint64LE()
			if err != nil {
				return nil, err
			}
			pendingExpiry = int64(ms)
			hasPendingExpiry = true

		default:
			key, err := d.readString()
			if err != nil {
				return nil, err
			}
			value, err := d.readString()
			if err != nil {
				return nil, err
			}

			switch {
			case op == typeString:
				entries = append(entries, Entry{
					Key:       key,
					Value:     value,
					ExpiryMS:  pendingExpiry,
					HasExpiry: hasPendingExpiry,
				})
			case legacyContainerTypes[op]:
				// recognized, discarded
			default:
				return nil, formatErrf("unknown opcode/type 0x%02X", op)
			}

			pendingExpiry = 0
			hasPendingExpiry = false
		}
	}
}

type decoder struct {
	buf []byte
	pos int
}

func (d *decoder) readByte() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, formatErrf("truncated input at offset %d", d.pos)
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) take(n int) ([]byte, error) {
	if n < 0 || d.pos+n > len(d.buf) {
		return nil, formatErrf("truncated input: need %d bytes at offset %d", n, d.pos)
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *decoder) readUint32LE() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}

func (d *decoder) readUint64LE() (uint64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v, nil
}

// readLength reads a plain length-encoded integer, discarding any
// small-string selector (callers that only need a count never hit it).
func (d *decoder) readLength() (uint64, error) {
	v, _, err := d.readLengthOrSpecial()
	return v, err
}

// readLengthOrSpecial decodes a length header: the top two bits of the
// first byte select among four encodings. special is -1 unless the header
// selects the small-string variant (top bits "11"), in which case length is
// meaningless and special holds the low 6 bits n, meaning 2^n raw bytes
// follow.
func (d *decoder) readLengthOrSpecial() (length uint64, special int, err error) {
	first, err := d.readByte()
	if err != nil {
		return 0, -1, err
	}

	switch first >> 6 {
	case 0b00: // 6-bit literal
		return uint64(first & 0x3F), -1, nil

	case 0b01: // 14-bit: high 6 bits from the first byte, low 8 from the next
		second, err := d.readByte()
		if err != nil {
			return 0, -1, err
		}
		return uint64(first&0x3F)<<8 | uint64(second), -1, nil

	case 0b10: // 32-bit, little-endian
		v, err := d.readUint32LE()
		if err != nil {
			return 0, -1, err
		}
		return uint64(v), -1, nil

	default: // 0b11: small-string encoding, selector n in the low 6 bits
		return 0, int(first & 0x3F), nil
	}
}

// readString reads a length-prefixed string. Both key and value strings use
// this path, including the 2^n-byte small-string variant of the length
// header (top bits "11").
func (d *decoder) readString() (string, error) {
	length, special, err := d.readLengthOrSpecial()
	if err != nil {
		return "", err
	}

	if special < 0 {
		raw, err := d.take(int(length))
		if err != nil {
			return "", err
		}
		return decodeUTF8Lossy(raw), nil
	}

	n := uint64(1) << uint(special)
	if n > uint64(len(d.buf)) {
		return "", formatErrf("truncated input: need %d bytes at offset %d", n, d.pos)
	}
	raw, err := d.take(int(n))
	if err != nil {
		return "", err
	}
	return decodeUTF8Lossy(raw), nil
}
