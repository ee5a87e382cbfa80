package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"

	"redisd/internal/command"
	"redisd/internal/logging"
	"redisd/internal/rdb"
	"redisd/internal/resp"
	"redisd/internal/store"
)

// runFollower dials the configured master, performs the replication
// handshake, loads the inline RDB snapshot, and then applies
// the live command feed until the connection drops. A follower does not
// reconnect after losing its master — an intentional limit.
func (s *Server) runFollower(ctx context.Context) {
	addr := fmt.Sprintf("%s:%d", s.Conf.MasterHost, s.Conf.MasterPort)
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		logging.L().Error().Err(err).Str("master", addr).Msg("failed to connect to master")
		return
	}
	defer conn.Close()

	fr := newFrameReader(conn)
	if err := s.handshake(fr, conn); err != nil {
		logging.L().Error().Err(err).Msg("replication handshake failed")
		return
	}
	logging.L().Info().Str("master", addr).Msg("replication handshake complete")

	s.applyFeed(ctx, fr)
}

// handshake runs the four-step PING/REPLCONF/REPLCONF/PSYNC exchange and
// loads the FULLRESYNC snapshot into the store.
func (s *Server) handshake(fr *frameReader, conn net.Conn) error {
	if err := sendAndExpect(fr, conn, "+PONG", resp.EncodeCommand("PING")); err != nil {
		return fmt.Errorf("PING: %w", err)
	}
	port := strconv.Itoa(s.Conf.Port)
	if err := sendAndExpect(fr, conn, "+OK", resp.EncodeCommand("REPLCONF", "listening-port", port)); err != nil {
		return fmt.Errorf("REPLCONF listening-port: %w", err)
	}
	if err := sendAndExpect(fr, conn, "+OK", resp.EncodeCommand("REPLCONF", "capa", "psync2")); err != nil {
		return fmt.Errorf("REPLCONF capa: %w", err)
	}

	if _, err := conn.Write(resp.EncodeCommand("PSYNC", "?", "-1")); err != nil {
		return fmt.Errorf("PSYNC write: %w", err)
	}
	v, _, err := fr.nextFrame()
	if err != nil {
		return fmt.Errorf("FULLRESYNC: %w", err)
	}
	if v.Type != resp.SimpleString || !strings.HasPrefix(v.Str, "FULLRESYNC") {
		return fmt.Errorf("unexpected PSYNC reply %q", v.Str)
	}

	payload, err := fr.readRDBBulk()
	if err != nil {
		return fmt.Errorf("RDB payload: %w", err)
	}
	entries, err := rdb.Decode(payload)
	if err != nil {
		return fmt.Errorf("RDB decode: %w", err)
	}
	s.Store.LoadSnapshot(toSnapshotEntries(entries))
	return nil
}

// sendAndExpect writes raw on conn and requires the next frame to be the
// simple-string reply want, given with its leading '+' (e.g. "+PONG").
func sendAndExpect(fr *frameReader, conn net.Conn, want string, raw []byte) error {
	if _, err := conn.Write(raw); err != nil {
		return err
	}
	v, _, err := fr.nextFrame()
	if err != nil {
		return err
	}
	got := "+" + v.Str
	if v.Type != resp.SimpleString || got != want {
		return fmt.Errorf("expected %q, got %q", want, got)
	}
	return nil
}

// applyFeed runs the post-handshake command loop: every frame consumed
// from the master's feed is dispatched and its byte length added to the
// follower's applied-offset counter.
func (s *Server) applyFeed(ctx context.Context, fr *frameReader) {
	cctx := s.newContext()
	state := &command.ConnState{IsReplicationFeed: true}

	for {
		frames, raws, err := fr.decodeFrames()
		if err != nil {
			logging.L().Warn().Err(err).Msg("replication feed protocol error")
			return
		}
		for i, f := range frames {
			cmd, cerr := resp.AsCommand(f.Value)
			if cerr != nil {
				logging.L().Warn().Err(cerr).Msg("replication feed decode error")
				return
			}
			reply := command.Dispatch(cctx, state, cmd, raws[i])
			s.Repl.AddFollowerOffset(int64(f.Consumed))
			if reply != nil {
				// Only REPLCONF GETACK's ACK reply is ever written back.
				fr.conn.Write(resp.Encode(*reply))
			}
		}
		if err := fr.fill(); err != nil {
			if err != io.EOF {
				logging.L().Warn().Err(err).Msg("replication feed read error")
			}
			return
		}
	}
}

func toSnapshotEntries(entries []rdb.Entry) []store.SnapshotEntry {
	out := make([]store.SnapshotEntry, len(entries))
	for i, e := range entries {
		out[i] = store.SnapshotEntry{Key: e.Key, Value: e.Value, ExpiryMS: e.ExpiryMS, HasExpiry: e.HasExpiry}
	}
	return out
}
