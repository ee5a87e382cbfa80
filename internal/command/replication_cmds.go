package command

import (
	"errors"
	"strconv"
	"strings"

	"redisd/internal/rdb"
	"redisd/internal/resp"
)

// cmdReplconf handles the handshake sub-commands (listening-port, capa)
// by acknowledging them, plus GETACK/ACK used by the WAIT barrier.
func cmdReplconf(ctx *Context, state *ConnState, args []string) (*resp.Value, error) {
	if len(args) == 0 {
		return nil, errors.New("ERR wrong number of arguments for 'replconf' command")
	}
	switch strings.ToUpper(args[0]) {
	case "LISTENING-PORT", "CAPA":
		v := resp.SimpleValue("OK")
		return &v, nil
	case "GETACK":
		// Only meaningful on the follower's feed; the leader never issues
		// this through the normal dispatch path as a client request.
		v := resp.ArrayValue(resp.TextValue("REPLCONF"), resp.TextValue("ACK"),
			resp.TextValue(strconv.FormatInt(ctx.Repl.FollowerOffset(), 10)))
		return &v, nil
	case "ACK":
		ctx.Repl.IncAck()
		return nil, nil
	default:
		v := resp.SimpleValue("OK")
		return &v, nil
	}
}

// cmdPsync builds the FULLRESYNC response: a "+FULLRESYNC <replid> <offset>"
// line immediately followed by the inline RDB bulk, with no trailing
// terminator on the bulk — both halves go out as one
// unframed Literal so Encode never adds a stray \r\n. The caller (the
// server's connection handler) promotes the connection to a replica feed
// after this reply is written.
func cmdPsync(ctx *Context, state *ConnState, args []string) (*resp.Value, error) {
	line := "+FULLRESYNC " + ctx.Conf.MasterReplID + " 0\r\n"
	header := "$" + strconv.Itoa(len(rdb.EmptyPayload)) + "\r\n"
	payload := append([]byte(line), []byte(header)...)
	payload = append(payload, rdb.EmptyPayload...)

	state.PromoteToReplicaFeed = true
	v := resp.LiteralValue(payload)
	return &v, nil
}

// cmdWait implements WAIT numreplicas timeout.
func cmdWait(ctx *Context, state *ConnState, args []string) (*resp.Value, error) {
	if len(args) != 2 {
		return nil, errors.New("ERR wrong number of arguments for 'wait' command")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return nil, errors.New("ERR value is not an integer or out of range")
	}
	timeoutMS, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || timeoutMS < 0 {
		return nil, errors.New("ERR timeout is not an integer or out of range")
	}
	acked := ctx.Repl.Wait(n, timeoutMS)
	v := resp.IntValue(int64(acked))
	return &v, nil
}
