package server

import (
	"net"
	"strings"

	"redisd/internal/logging"
	"redisd/internal/resp"
)

// serveReplicaFeed runs a connection that just completed a PSYNC
// handshake: register it as a replica link, start its
// FIFO writer, and read the socket only for REPLCONF ACK responses to
// the WAIT barrier's GETACK probes. fr carries whatever bytes were
// already buffered past the PSYNC frame.
func (s *Server) serveReplicaFeed(conn net.Conn, fr *frameReader) {
	link := s.Repl.Register(conn)
	defer s.Repl.Unregister(link)

	go s.Repl.DrainLoop(link)

	for {
		frames, _, err := fr.decodeFrames()
		if err != nil {
			logging.L().Debug().Err(err).Str("replica", link.ID).Msg("replica feed protocol error")
			return
		}
		for _, f := range frames {
			cmd, cerr := resp.AsCommand(f.Value)
			if cerr != nil {
				continue
			}
			if strings.EqualFold(cmd.Name, "REPLCONF") && len(cmd.Args) == 2 && strings.EqualFold(cmd.Args[0], "ACK") {
				s.Repl.IncAck()
			}
		}
		if err := fr.fill(); err != nil {
			return
		}
	}
}
