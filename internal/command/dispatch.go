package command

import "redisd/internal/resp"

// writeCommands are fanned out to every connected replica on success.
var writeCommands = map[string]bool{
	"SET":  true,
	"DEL":  true,
	"INCR": true,
}

// Dispatch executes one decoded command and returns the reply to send, or
// nil if nothing should be written — every command here produces at most
// one top-level RESP value. raw is the verbatim wire bytes the frame was
// decoded from — needed so fanout reproduces the client's request
// byte-for-byte rather than a re-encoding of it.
func Dispatch(ctx *Context, state *ConnState, cmd resp.Command, raw []byte) *resp.Value {
	if state.MultiActive && cmd.Name != "EXEC" && cmd.Name != "DISCARD" && cmd.Name != "MULTI" {
		state.Queue = append(state.Queue, queued{cmd: cmd, raw: raw})
		v := resp.SimpleValue("QUEUED")
		return &v
	}

	switch cmd.Name {
	case "MULTI":
		return handleMulti(state)
	case "EXEC":
		return handleExec(ctx, state)
	case "DISCARD":
		return handleDiscard(state)
	default:
		return dispatchOne(ctx, state, cmd, raw)
	}
}

// dispatchOne looks up cmd in the command table, runs it, fans out a
// successful write, and applies the replication-feed reply-suppression
// rule described on suppressIfFeed.
func dispatchOne(ctx *Context, state *ConnState, cmd resp.Command, raw []byte) *resp.Value {
	handler, ok := table[cmd.Name]
	if !ok {
		return suppressIfFeed(state, cmd.Name, &resp.NullValue)
	}

	reply, err := handler(ctx, state, cmd.Args)
	if err != nil {
		e := resp.ErrorReply(err.Error())
		return suppressIfFeed(state, cmd.Name, &e)
	}

	if writeCommands[cmd.Name] {
		ctx.Repl.Fanout(raw)
	}

	return suppressIfFeed(state, cmd.Name, reply)
}

// suppressIfFeed drops the reply when the command arrived on the
// follower's replication feed — nothing ever reads it there — except
// REPLCONF, whose ACK reply to GETACK the leader is waiting on.
func suppressIfFeed(state *ConnState, name string, reply *resp.Value) *resp.Value {
	if state.IsReplicationFeed && name != "REPLCONF" {
		return nil
	}
	return reply
}

func handleMulti(state *ConnState) *resp.Value {
	state.MultiActive = true
	state.Queue = nil
	v := resp.SimpleValue("OK")
	return &v
}

func handleDiscard(state *ConnState) *resp.Value {
	if !state.MultiActive {
		e := resp.ErrorReply("ERR DISCARD without MULTI")
		return &e
	}
	state.MultiActive = false
	state.Queue = nil
	v := resp.SimpleValue("OK")
	return &v
}

func handleExec(ctx *Context, state *ConnState) *resp.Value {
	if !state.MultiActive {
		e := resp.ErrorReply("ERR EXEC without MULTI")
		return &e
	}
	pending := state.Queue
	state.MultiActive = false
	state.Queue = nil

	replies := make([]resp.Value, 0, len(pending))
	for _, q := range pending {
		if r := dispatchOne(ctx, state, q.cmd, q.raw); r != nil {
			replies = append(replies, *r)
		} else {
			replies = append(replies, resp.NullValue)
		}
	}
	v := resp.ArrayValue(replies...)
	return &v
}
