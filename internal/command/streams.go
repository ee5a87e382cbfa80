package command

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"redisd/internal/resp"
	"redisd/internal/store"
)

// cmdXadd implements XADD key id field value [field value ...].
func cmdXadd(ctx *Context, state *ConnState, args []string) (*resp.Value, error) {
	if len(args) < 4 || len(args)%2 != 0 {
		return nil, errors.New("ERR wrong number of arguments for 'xadd' command")
	}
	key, idArg := args[0], args[1]
	fields := args[2:]

	id, err := ctx.Store.GenerateID(key, idArg)
	if err != nil {
		return nil, translateStreamErr(err)
	}
	if err := ctx.Store.Append(key, id, fields); err != nil {
		return nil, translateStreamErr(err)
	}
	v := resp.TextValue(id.String())
	return &v, nil
}

func translateStreamErr(err error) error {
	switch err {
	case store.ErrZeroID:
		return errors.New("ERR " + err.Error())
	case store.ErrIDTooSmall:
		return errors.New("ERR " + err.Error())
	case store.ErrWrongKind:
		return errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")
	case store.ErrBadStreamID:
		return errors.New("ERR Invalid stream ID specified as stream command argument")
	default:
		return err
	}
}

// cmdXrange implements XRANGE key start end.
func cmdXrange(ctx *Context, state *ConnState, args []string) (*resp.Value, error) {
	if len(args) != 3 {
		return nil, errors.New("ERR wrong number of arguments for 'xrange' command")
	}
	start, err := store.ParseRangeBound(args[1])
	if err != nil {
		return nil, translateStreamErr(err)
	}
	end, err := store.ParseRangeBound(args[2])
	if err != nil {
		return nil, translateStreamErr(err)
	}
	entries, err := ctx.Store.Range(args[0], start, end)
	if err != nil {
		return nil, translateStreamErr(err)
	}
	v := resp.ArrayValue(encodeStreamEntries(entries)...)
	return &v, nil
}

func encodeStreamEntries(entries []store.StreamEntry) []resp.Value {
	out := make([]resp.Value, 0, len(entries))
	for _, e := range entries {
		fields := make([]resp.Value, 0, len(e.Fields))
		for _, f := range e.Fields {
			fields = append(fields, resp.TextValue(f))
		}
		out = append(out, resp.ArrayValue(
			resp.TextValue(e.ID.String()),
			resp.ArrayValue(fields...),
		))
	}
	return out
}

// xreadBlockFallback bounds how long a blocking XREAD waits on its keys'
// broadcast channels before re-reading every key and re-checking its
// deadline, so a missed wakeup only delays the reply by this much.
const xreadBlockFallback = 50 * time.Millisecond

// cmdXread implements XREAD [BLOCK ms] STREAMS key [key ...] id [id ...].
func cmdXread(ctx *Context, state *ConnState, args []string) (*resp.Value, error) {
	blockMS := int64(-1)
	i := 0
	if len(args) >= 2 && strings.EqualFold(args[0], "BLOCK") {
		ms, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil || ms < 0 {
			return nil, errors.New("ERR timeout is not an integer or out of range")
		}
		blockMS = ms
		i = 2
	}
	if i >= len(args) || !strings.EqualFold(args[i], "STREAMS") {
		return nil, errors.New("ERR syntax error")
	}
	i++
	rest := args[i:]
	if len(rest) == 0 || len(rest)%2 != 0 {
		return nil, errors.New("ERR Unbalanced XREAD list of streams: for each stream key an ID or '$' must be specified.")
	}
	n := len(rest) / 2
	keys := rest[:n]
	ids := make([]store.StreamID, n)
	for idx, raw := range rest[n:] {
		id, err := parseReadID(ctx, keys[idx], raw)
		if err != nil {
			return nil, err
		}
		ids[idx] = id
	}

	result, err := ctx.Store.ReadMany(keys, ids)
	if err != nil {
		return nil, translateStreamErr(err)
	}
	if len(result) > 0 || blockMS < 0 {
		return &resp.Value{Type: resp.Array, Items: encodeXreadResult(keys, result)}, nil
	}

	deadline := time.Now().Add(time.Duration(blockMS) * time.Millisecond)
	unbounded := blockMS == 0
	for {
		chans := make([]<-chan struct{}, n)
		for idx, k := range keys {
			chans[idx] = ctx.Store.WaitChan(k)
		}
		waitOne(chans, xreadBlockFallback)

		result, err = ctx.Store.ReadMany(keys, ids)
		if err != nil {
			return nil, translateStreamErr(err)
		}
		if len(result) > 0 {
			return &resp.Value{Type: resp.Array, Items: encodeXreadResult(keys, result)}, nil
		}
		if !unbounded && time.Now().After(deadline) {
			return &resp.NullArray, nil
		}
	}
}

// parseReadID resolves a per-key start id: "$" means the stream's current
// last id (so only entries arriving after this call count), anything else
// is a literal "ms-seq" or a bare "ms" (sequence 0).
func parseReadID(ctx *Context, key, raw string) (store.StreamID, error) {
	if raw == "$" {
		last, err := ctx.Store.LastID(key)
		if err != nil {
			return store.StreamID{}, translateStreamErr(err)
		}
		return last, nil
	}
	id, err := store.ParseExactID(raw)
	if err != nil {
		return store.StreamID{}, translateStreamErr(err)
	}
	return id, nil
}

func encodeXreadResult(keys []string, result map[string][]store.StreamEntry) []resp.Value {
	out := make([]resp.Value, 0, len(result))
	for _, k := range keys {
		entries, ok := result[k]
		if !ok {
			continue
		}
		out = append(out, resp.ArrayValue(resp.TextValue(k), resp.ArrayValue(encodeStreamEntries(entries)...)))
	}
	return out
}

// waitOne blocks until any of chans fires or fallback elapses.
func waitOne(chans []<-chan struct{}, fallback time.Duration) {
	timer := time.NewTimer(fallback)
	defer timer.Stop()
	done := make(chan struct{}, 1)
	stop := make(chan struct{})
	defer close(stop)
	for _, c := range chans {
		go func(ch <-chan struct{}) {
			select {
			case <-ch:
				select {
				case done <- struct{}{}:
				default:
				}
			case <-stop:
			}
		}(c)
	}
	select {
	case <-done:
	case <-timer.C:
	}
}

