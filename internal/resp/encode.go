package resp

import "strconv"

// Encode serializes v to its wire representation. See Value's doc comments
// for the per-Type encoding; the one surprising rule is that an empty Text
// value encodes as RESP null, not an empty bulk string — this server's own
// convention.
func Encode(v Value) []byte {
	switch v.Type {
	case Null:
		return []byte("$-1\r\n")

	case Text:
		if v.Str == "" {
			return []byte("$-1\r\n")
		}
		return encodeBulk(v.Str)

	case SimpleString:
		return encodeLine('+', v.Str)

	case ErrorValue:
		return encodeLine('-', v.Str)

	case Integer:
		return encodeLine(':', strconv.FormatInt(v.Int, 10))

	case Array:
		if v.Items == nil {
			return []byte("*-1\r\n")
		}
		buf := make([]byte, 0, 16)
		buf = append(buf, '*')
		buf = strconv.AppendInt(buf, int64(len(v.Items)), 10)
		buf = append(buf, '\r', '\n')
		for _, item := range v.Items {
			buf = append(buf, Encode(item)...)
		}
		return buf

	case Raw:
		buf := make([]byte, 0, len(v.Raw)+16)
		buf = append(buf, '$')
		buf = strconv.AppendInt(buf, int64(len(v.Raw)), 10)
		buf = append(buf, '\r', '\n')
		buf = append(buf, v.Raw...)
		return buf

	case Literal:
		return v.Raw

	default:
		return []byte("$-1\r\n")
	}
}

func encodeLine(prefix byte, s string) []byte {
	buf := make([]byte, 0, len(s)+3)
	buf = append(buf, prefix)
	buf = append(buf, s...)
	buf = append(buf, '\r', '\n')
	return buf
}

func encodeBulk(s string) []byte {
	buf := make([]byte, 0, len(s)+16)
	buf = append(buf, '$')
	buf = strconv.AppendInt(buf, int64(len(s)), 10)
	buf = append(buf, '\r', '\n')
	buf = append(buf, s...)
	buf = append(buf, '\r', '\n')
	return buf
}

// EncodeCommand encodes a command as a RESP array of bulk strings — used to
// build the replication feed and the replica's handshake requests.
func EncodeCommand(name string, args ...string) []byte {
	items := make([]Value, 0, len(args)+1)
	items = append(items, TextValue(name))
	for _, a := range args {
		items = append(items, TextValue(a))
	}
	return Encode(ArrayValue(items...))
}
