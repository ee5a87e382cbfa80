// Package config holds the read-only startup record the core server is
// constructed from. Producing it from CLI flags or a config file is the
// boot layer's job — cmd/redisd owns that and hands the core a finished
// Config.
package config

import "strconv"

// Config is immutable after boot.
type Config struct {
	Host string
	Port int

	// Dir and DBFilename locate an RDB snapshot to load at startup. Both
	// empty means start with an empty store.
	Dir        string
	DBFilename string

	// MasterHost/MasterPort are set when IsReplica is true.
	MasterHost string
	MasterPort int
	IsReplica  bool

	// MasterReplID is a 40-char uppercase alphanumeric string generated once
	// at master boot; empty on a replica.
	MasterReplID string

	// MasterReplOffset is not updated at run time: the follower's count of
	// applied replication bytes is kept by replication.Manager
	// (FollowerOffset), and a leader always reports 0 in FULLRESYNC.
	MasterReplOffset int64
}

// Addr returns "host:port" for net.Listen / net.Dial.
func (c *Config) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
