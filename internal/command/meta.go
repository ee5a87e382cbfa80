package command

import (
	"errors"
	"fmt"
	"strings"

	"redisd/internal/resp"
)

// cmdConfig implements CONFIG GET key; value comes straight from the
// config record, empty if the key isn't one CONFIG knows about.
func cmdConfig(ctx *Context, state *ConnState, args []string) (*resp.Value, error) {
	if len(args) != 2 || !strings.EqualFold(args[0], "GET") {
		return nil, errors.New("ERR unsupported CONFIG subcommand")
	}
	key := args[1]
	value := configValue(ctx, key)
	v := resp.ArrayValue(resp.TextValue(key), resp.TextValue(value))
	return &v, nil
}

func configValue(ctx *Context, key string) string {
	switch strings.ToLower(key) {
	case "dir":
		return ctx.Conf.Dir
	case "dbfilename":
		return ctx.Conf.DBFilename
	default:
		return ""
	}
}

// cmdKeys implements a minimal but non-trivial glob: '*' matches all keys,
// '?' matches exactly one rune, anything else is a literal match (see
// DESIGN.md for why this isn't just "return everything").
func cmdKeys(ctx *Context, state *ConnState, args []string) (*resp.Value, error) {
	if len(args) != 1 {
		return nil, errors.New("ERR wrong number of arguments for 'keys' command")
	}
	pattern := args[0]
	matched := make([]resp.Value, 0)
	for _, k := range ctx.Store.Keys() {
		if globMatch(pattern, k) {
			matched = append(matched, resp.TextValue(k))
		}
	}
	v := resp.ArrayValue(matched...)
	return &v, nil
}

// globMatch supports '*' (any run of runes) and '?' (exactly one rune);
// every other rune must match literally.
func globMatch(pattern, s string) bool {
	p, str := []rune(pattern), []rune(s)
	return globMatchRunes(p, str)
}

func globMatchRunes(p, s []rune) bool {
	for len(p) > 0 {
		switch p[0] {
		case '*':
			// Try every possible split; '*' also matches the empty run.
			for i := 0; i <= len(s); i++ {
				if globMatchRunes(p[1:], s[i:]) {
					return true
				}
			}
			return false
		case '?':
			if len(s) == 0 {
				return false
			}
			p, s = p[1:], s[1:]
		default:
			if len(s) == 0 || p[0] != s[0] {
				return false
			}
			p, s = p[1:], s[1:]
		}
	}
	return len(s) == 0
}

// cmdInfo reports replication role and identifiers.
func cmdInfo(ctx *Context, state *ConnState, args []string) (*resp.Value, error) {
	role := "master"
	if ctx.Conf.IsReplica {
		role = "slave"
	}
	text := fmt.Sprintf("role:%s\r\nmaster_replid:%s\r\nmaster_repl_offset:%d\r\n",
		role, ctx.Conf.MasterReplID, replOffset(ctx))
	v := resp.TextValue(text)
	return &v, nil
}

func replOffset(ctx *Context) int64 {
	if ctx.Conf.IsReplica {
		return ctx.Repl.FollowerOffset()
	}
	return 0
}
