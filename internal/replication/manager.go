// Package replication implements the leader-side replica registry and
// fanout, and the follower-side applied-offset counter.
package replication

import (
	"crypto/rand"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"redisd/internal/logging"
)

// Link is one connected replica: its socket and an unbounded FIFO of
// pending raw command bytes, drained strictly in order by DrainLoop.
type Link struct {
	ID   string
	Conn net.Conn

	mu     sync.Mutex
	cond   *sync.Cond
	queue  [][]byte
	closed bool

	// limiter throttles REPLCONF GETACK * probes sent to this link, so a
	// WAIT storm from many concurrent clients cannot flood a slow replica
	// with duplicate probes.
	limiter *rate.Limiter
}

func newLink(id string, conn net.Conn) *Link {
	l := &Link{ID: id, Conn: conn, limiter: rate.NewLimiter(rate.Every(10*time.Millisecond), 1)}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// push appends raw bytes to the link's FIFO.
func (l *Link) push(raw []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.queue = append(l.queue, raw)
	l.cond.Signal()
}

// pop blocks until an item is available or the link is closed.
func (l *Link) pop() ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for len(l.queue) == 0 && !l.closed {
		l.cond.Wait()
	}
	if len(l.queue) == 0 {
		return nil, false
	}
	raw := l.queue[0]
	l.queue = l.queue[1:]
	return raw, true
}

// queueLen reports how many frames are still pending.
func (l *Link) queueLen() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

func (l *Link) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.cond.Broadcast()
}

// Manager tracks every connected replica (leader side) and the applied
// offset counter (follower side). One Manager instance serves whichever
// role the process booted into.
type Manager struct {
	mu       sync.RWMutex
	replicas map[string]*Link

	ackMu    sync.Mutex
	ackCount int

	followerOffset int64 // atomic; bytes of applied replication frames
}

// NewManager returns an empty manager, usable as either a leader's replica
// registry or a follower's offset counter.
func NewManager() *Manager {
	return &Manager{replicas: make(map[string]*Link)}
}

// GenerateReplID returns a 40-char uppercase-alphanumeric id, generated
// once at master boot.
func GenerateReplID() string {
	const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	b := make([]byte, 40)
	raw := make([]byte, 40)
	if _, err := rand.Read(raw); err != nil {
		// crypto/rand failing indicates a broken host; fall back to a
		// time-seeded id rather than leaving master_replid empty.
		return fmt.Sprintf("%040X", time.Now().UnixNano())[:40]
	}
	for i, r := range raw {
		b[i] = alphabet[int(r)%len(alphabet)]
	}
	return string(b)
}

// Register adds conn as a new ReplicaLink with an empty FIFO.
func (m *Manager) Register(conn net.Conn) *Link {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := conn.RemoteAddr().String()
	link := newLink(id, conn)
	m.replicas[id] = link
	logging.L().Info().Str("replica", id).Msg("replica registered")
	return link
}

// Unregister drops link from the registry and closes its FIFO, waking its
// drain loop.
func (m *Manager) Unregister(link *Link) {
	m.mu.Lock()
	delete(m.replicas, link.ID)
	m.mu.Unlock()
	link.close()
}

// ReplicaPresent reports whether any replica is currently registered.
func (m *Manager) ReplicaPresent() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.replicas) > 0
}

// ReplicaCount returns the number of currently registered replicas, the
// upper bound WAIT's ack_count can reach.
func (m *Manager) ReplicaCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.replicas)
}

func (m *Manager) links() []*Link {
	m.mu.RLock()
	defer m.mu.RUnlock()
	links := make([]*Link, 0, len(m.replicas))
	for _, l := range m.replicas {
		links = append(links, l)
	}
	return links
}

// Fanout appends raw_cmd to every ReplicaLink's FIFO. Called by the
// dispatcher for every write command on the leader, regardless of whether
// a reply is sent to the client that issued it.
func (m *Manager) Fanout(raw []byte) {
	for _, l := range m.links() {
		l.push(raw)
	}
}

// DrainLoop is the per-replica writer task: while the link is open, pop
// the head of its FIFO and send it on the socket, strictly in order. It
// returns when the link is closed or the socket write fails.
func (m *Manager) DrainLoop(link *Link) {
	for {
		raw, ok := link.pop()
		if !ok {
			return
		}
		if _, err := link.Conn.Write(raw); err != nil {
			logging.L().Warn().Str("replica", link.ID).Err(err).Msg("replica write failed")
			m.Unregister(link)
			return
		}
	}
}

// IncAck increments the global ack counter; called by a connection
// handler when it observes a REPLCONF ACK frame from a replica.
func (m *Manager) IncAck() {
	m.ackMu.Lock()
	defer m.ackMu.Unlock()
	m.ackCount++
}

// ResetAck zeroes the ack counter, done at the start and end of WAIT.
func (m *Manager) ResetAck() {
	m.ackMu.Lock()
	defer m.ackMu.Unlock()
	m.ackCount = 0
}

// GetAck returns the current ack counter value.
func (m *Manager) GetAck() int {
	m.ackMu.Lock()
	defer m.ackMu.Unlock()
	return m.ackCount
}

var getACKFrame = []byte("*3\r\n$8\r\nREPLCONF\r\n$6\r\nGETACK\r\n$1\r\n*\r\n")

// SendGetAck enqueues a REPLCONF GETACK * frame onto every replica's FIFO,
// rate-limited per link so concurrent WAIT calls cannot flood a replica
// with duplicate probes.
func (m *Manager) SendGetAck() {
	for _, l := range m.links() {
		if l.limiter.Allow() {
			l.push(getACKFrame)
		}
	}
}

// AddFollowerOffset adds n bytes to the follower's applied-offset counter.
// Called only by the follower's replication-feed handler.
func (m *Manager) AddFollowerOffset(n int64) {
	atomic.AddInt64(&m.followerOffset, n)
}

// FollowerOffset returns the follower's current applied-offset count.
func (m *Manager) FollowerOffset() int64 {
	return atomic.LoadInt64(&m.followerOffset)
}
