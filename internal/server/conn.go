package server

import (
	"context"
	"io"
	"net"

	"redisd/internal/command"
	"redisd/internal/logging"
	"redisd/internal/resp"
)

// handleClient runs a single accepted connection in client mode: read,
// decode, dispatch, write, in a loop, until EOF, a socket error, a
// protocol error, or promotion to a replica feed.
func (s *Server) handleClient(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	cctx := s.newContext()
	state := &command.ConnState{}
	fr := newFrameReader(conn)

	for {
		frames, raws, err := fr.decodeFrames()
		if err != nil {
			writeProtocolError(conn, err)
			return
		}
		for i, f := range frames {
			cmd, cerr := resp.AsCommand(f.Value)
			if cerr != nil {
				writeProtocolError(conn, cerr)
				return
			}
			reply := command.Dispatch(cctx, state, cmd, raws[i])
			if reply != nil {
				if _, werr := conn.Write(resp.Encode(*reply)); werr != nil {
					return
				}
			}
			if state.PromoteToReplicaFeed {
				s.serveReplicaFeed(conn, fr)
				return
			}
		}

		if err := fr.fill(); err != nil {
			if err != io.EOF {
				logging.L().Debug().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("client read error")
			}
			return
		}
	}
}

// writeProtocolError replies with a RESP error line; the caller always
// closes the connection right after.
func writeProtocolError(conn net.Conn, err error) {
	conn.Write(resp.Encode(resp.ErrorReply("Err: " + err.Error())))
}
