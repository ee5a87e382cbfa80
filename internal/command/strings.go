package command

import (
	"errors"
	"strconv"
	"strings"

	"redisd/internal/clock"
	"redisd/internal/resp"
)

func cmdPing(ctx *Context, state *ConnState, args []string) (*resp.Value, error) {
	v := resp.SimpleValue("PONG")
	return &v, nil
}

func cmdEcho(ctx *Context, state *ConnState, args []string) (*resp.Value, error) {
	if len(args) != 1 {
		return nil, errors.New("ERR wrong number of arguments for 'echo' command")
	}
	v := resp.TextValue(args[0])
	return &v, nil
}

func cmdGet(ctx *Context, state *ConnState, args []string) (*resp.Value, error) {
	if len(args) != 1 {
		return nil, errors.New("ERR wrong number of arguments for 'get' command")
	}
	text, ok := ctx.Store.Get(args[0])
	if !ok {
		return &resp.NullValue, nil
	}
	v := resp.TextValue(text)
	return &v, nil
}

// cmdSet implements SET key value [PX ttl]. ttl is milliseconds; the
// absolute deadline is computed as now_ms + ttl from a single clock seam
// so tests can fake time without sleeping.
func cmdSet(ctx *Context, state *ConnState, args []string) (*resp.Value, error) {
	if len(args) != 2 && len(args) != 4 {
		return nil, errors.New("ERR wrong number of arguments for 'set' command")
	}
	key, value := args[0], args[1]

	hasExpiry := false
	var expiryMS int64
	if len(args) == 4 {
		if !strings.EqualFold(args[2], "PX") {
			return nil, errors.New("ERR syntax error")
		}
		ttl, err := strconv.ParseInt(args[3], 10, 64)
		if err != nil || ttl < 0 {
			return nil, errors.New("ERR value is not an integer or out of range")
		}
		hasExpiry = true
		expiryMS = clock.NowMS() + ttl
	}

	ctx.Store.Save(key, value, hasExpiry, expiryMS)
	v := resp.SimpleValue("OK")
	return &v, nil
}

func cmdDel(ctx *Context, state *ConnState, args []string) (*resp.Value, error) {
	if len(args) != 1 {
		return nil, errors.New("ERR wrong number of arguments for 'del' command")
	}
	ctx.Store.Delete(args[0])
	v := resp.SimpleValue("OK")
	return &v, nil
}

func cmdIncr(ctx *Context, state *ConnState, args []string) (*resp.Value, error) {
	if len(args) != 1 {
		return nil, errors.New("ERR wrong number of arguments for 'incr' command")
	}
	n, err := ctx.Store.Incr(args[0])
	if err != nil {
		return nil, err
	}
	v := resp.IntValue(n)
	return &v, nil
}

func cmdType(ctx *Context, state *ConnState, args []string) (*resp.Value, error) {
	if len(args) != 1 {
		return nil, errors.New("ERR wrong number of arguments for 'type' command")
	}
	v := resp.SimpleValue(ctx.Store.Type(args[0]))
	return &v, nil
}
