// Command redisd boots the core server: parses flags into a Config,
// loads an initial RDB snapshot if one is configured, and runs the
// accept loop until signalled to stop. Flag parsing, process
// boot/teardown, and the RDB file read are all outside the core's scope
// — this file is the thin boot layer that owns them.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"redisd/internal/config"
	"redisd/internal/logging"
	"redisd/internal/rdb"
	"redisd/internal/replication"
	"redisd/internal/server"
	"redisd/internal/store"
)

func main() {
	conf := parseFlags()
	log := logging.L()

	st := store.New()
	loadSnapshot(st, conf)

	repl := replication.NewManager()
	if !conf.IsReplica {
		conf.MasterReplID = replication.GenerateReplID()
	}

	srv := server.New(conf, st, repl)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("shutting down")
		srv.Shutdown()
		cancel()
	}()

	log.Info().Str("addr", conf.Addr()).Bool("replica", conf.IsReplica).Msg("starting redisd")
	if err := srv.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

// loadSnapshot reads dir/dbfilename if configured and hands its bytes to
// the RDB decoder; an absent file just means an empty starting store
//. A malformed file is fatal.
func loadSnapshot(st *store.Store, conf *config.Config) {
	if conf.Dir == "" || conf.DBFilename == "" {
		return
	}
	path := filepath.Join(conf.Dir, conf.DBFilename)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		logging.L().Fatal().Err(err).Str("path", path).Msg("failed to read RDB file")
	}

	entries, err := rdb.Decode(raw)
	if err != nil {
		logging.L().Fatal().Err(err).Str("path", path).Msg("failed to decode RDB snapshot")
	}

	snap := make([]store.SnapshotEntry, len(entries))
	for i, e := range entries {
		snap[i] = store.SnapshotEntry{Key: e.Key, Value: e.Value, ExpiryMS: e.ExpiryMS, HasExpiry: e.HasExpiry}
	}
	st.LoadSnapshot(snap)
	logging.L().Info().Int("keys", len(snap)).Str("path", path).Msg("loaded RDB snapshot")
}
