package resp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := map[string]Value{
		"null":           NullValue,
		"simple string":  SimpleValue("OK"),
		"error":          ErrorReply("ERR boom"),
		"integer":        IntValue(42),
		"negative int":   IntValue(-7),
		"bulk string":    TextValue("hello world"),
		"empty array":    ArrayValue(),
		"nested array": ArrayValue(
			TextValue("A"), // Decode upper-cases a top-level array's first text element
			ArrayValue(TextValue("b"), IntValue(1)),
			ArrayValue(ArrayValue(TextValue("c"))),
		),
	}

	for name, v := range tests {
		t.Run(name, func(t *testing.T) {
			wire := Encode(v)
			frames, remaining, err := Decode(wire)
			require.NoError(t, err)
			require.Empty(t, remaining)
			require.Len(t, frames, 1)
			require.Equal(t, v, frames[0].Value)
			require.Equal(t, len(wire), frames[0].Consumed)
		})
	}
}

// TestEmptyTextEncodesAsNull pins the server's intentional convention
//: an empty Text value encodes as RESP null, not "$0\r\n\r\n".
func TestEmptyTextEncodesAsNull(t *testing.T) {
	require.Equal(t, []byte("$-1\r\n"), Encode(TextValue("")))
}

func TestDecodeCommandNameUppercased(t *testing.T) {
	wire := Encode(ArrayValue(TextValue("set"), TextValue("foo"), TextValue("bar")))
	frames, _, err := Decode(wire)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	cmd, err := AsCommand(frames[0].Value)
	require.NoError(t, err)
	require.Equal(t, "SET", cmd.Name)
	require.Equal(t, []string{"foo", "bar"}, cmd.Args)
}

func TestDecodeIncremental(t *testing.T) {
	full := append(Encode(ArrayValue(TextValue("PING"))), Encode(ArrayValue(TextValue("ECHO"), TextValue("hi")))...)

	// Whole buffer at once.
	wholeFrames, wholeRemaining, err := Decode(full)
	require.NoError(t, err)
	require.Empty(t, wholeRemaining)
	require.Len(t, wholeFrames, 2)

	// Fed in arbitrary byte-sized chunks, cumulatively.
	var buf []byte
	var gotFrames []Frame
	for i := 0; i < len(full); i++ {
		buf = append(buf, full[i])
		frames, remaining, err := Decode(buf)
		require.NoError(t, err)
		gotFrames = append(gotFrames, frames...)
		buf = remaining
	}
	require.Empty(t, buf)
	require.Len(t, gotFrames, 2)
	for i := range wholeFrames {
		require.Equal(t, wholeFrames[i].Value, gotFrames[i].Value)
	}
}

func TestDecodePartialFrameLeftForLater(t *testing.T) {
	full := Encode(ArrayValue(TextValue("GET"), TextValue("foo")))
	partial := full[:len(full)-3]

	frames, remaining, err := Decode(partial)
	require.NoError(t, err)
	require.Empty(t, frames)
	require.Equal(t, partial, remaining)

	frames, remaining, err = Decode(append(remaining, full[len(full)-3:]...))
	require.NoError(t, err)
	require.Empty(t, remaining)
	require.Len(t, frames, 1)
}

func TestDecodeNullBulkAndNullArray(t *testing.T) {
	frames, _, err := Decode([]byte("$-1\r\n"))
	require.NoError(t, err)
	require.Equal(t, NullValue, frames[0].Value)

	frames, _, err = Decode([]byte("*-1\r\n"))
	require.NoError(t, err)
	require.Equal(t, NullArray, frames[0].Value)
}

func TestDecodeProtocolError(t *testing.T) {
	_, _, err := Decode([]byte("*1\r\n!oops\r\n"))
	require.Error(t, err)
	var protoErr *ErrProtocol
	require.ErrorAs(t, err, &protoErr)
}
