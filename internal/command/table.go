package command

import "redisd/internal/resp"

// HandlerFunc executes one command and returns its reply, or nil for a
// command that never replies (e.g. REPLCONF ACK).
type HandlerFunc func(ctx *Context, state *ConnState, args []string) (*resp.Value, error)

var table = map[string]HandlerFunc{
	"PING":     cmdPing,
	"ECHO":     cmdEcho,
	"GET":      cmdGet,
	"SET":      cmdSet,
	"DEL":      cmdDel,
	"INCR":     cmdIncr,
	"TYPE":     cmdType,
	"CONFIG":   cmdConfig,
	"KEYS":     cmdKeys,
	"INFO":     cmdInfo,
	"REPLCONF": cmdReplconf,
	"PSYNC":    cmdPsync,
	"XADD":     cmdXadd,
	"XRANGE":   cmdXrange,
	"XREAD":    cmdXread,
	"WAIT":     cmdWait,
}
