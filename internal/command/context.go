// Package command implements the dispatcher (C6): one function per RESP
// command, looked up from a name table and invoked with the decoded
// arguments. Handlers are pure with respect to the connection — they
// return reply values instead of writing to a socket — so MULTI/EXEC can
// replay queued commands through the same table.
package command

import (
	"redisd/internal/config"
	"redisd/internal/replication"
	"redisd/internal/resp"
	"redisd/internal/store"
)

// Context bundles the shared server state every handler may touch.
type Context struct {
	Store *store.Store
	Repl  *replication.Manager
	Conf  *config.Config
}

// queued is one command captured while MULTI is active.
type queued struct {
	cmd resp.Command
	raw []byte
}

// ConnState is the per-connection state the dispatcher needs: MULTI
// queueing and the replication-feed role flag. The socket and read buffer
// live in the server package; this is just the slice of that state the
// dispatcher touches.
type ConnState struct {
	MultiActive bool
	Queue       []queued

	// IsReplicationFeed is true for the follower's outbound connection to
	// its leader, once past the handshake. Normal command replies are
	// suppressed on this connection — nothing reads them — except
	// REPLCONF GETACK's ACK reply, which the leader is waiting on.
	IsReplicationFeed bool

	// PromoteToReplicaFeed is set by the PSYNC handler; the connection
	// handler checks it after Dispatch returns and, if set, registers the
	// link and switches to replica-feed mode.
	PromoteToReplicaFeed bool
	ReplicaLink          *replication.Link
}
