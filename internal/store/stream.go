package store

import (
	"errors"
	"strconv"
	"strings"

	"redisd/internal/clock"
)

// ErrWrongKind is returned when a stream operation targets a key holding a
// string, or vice versa.
var ErrWrongKind = errors.New("value is not the right kind")

// ErrBadStreamID is returned for a malformed id or pattern argument.
var ErrBadStreamID = errors.New("invalid stream id")

// ErrZeroID is returned when an append would produce the reserved 0-0 id.
var ErrZeroID = errors.New("the ID specified in XADD must be greater than 0-0")

// ErrIDTooSmall is returned when an append's id does not exceed the
// stream's last id.
var ErrIDTooSmall = errors.New("the ID specified in XADD is equal or smaller than the target stream top item")

// GenerateID resolves an XADD id pattern against key's current last entry.
// pattern is one of: an explicit "ms-seq", "ms-*" (auto-sequence within the
// given ms), or "*" (auto-both, using the current wall clock).
func (s *Store) GenerateID(key, pattern string) (StreamID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last StreamID
	var haveLast bool
	if v, ok := s.data[key]; ok {
		if v.Kind != KindStream {
			return StreamID{}, ErrWrongKind
		}
		if n := len(v.Stream.Entries); n > 0 {
			last = v.Stream.Entries[n-1].ID
			haveLast = true
		}
	}

	if pattern == "*" {
		ms := uint64(clock.NowMS())
		return autoSequence(ms, last, haveLast), nil
	}

	parts := strings.SplitN(pattern, "-", 2)
	ms, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return StreamID{}, ErrBadStreamID
	}
	if len(parts) == 1 {
		return StreamID{}, ErrBadStreamID
	}
	if parts[1] == "*" {
		return autoSequence(ms, last, haveLast), nil
	}
	seq, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return StreamID{}, ErrBadStreamID
	}
	return StreamID{MS: ms, Seq: seq}, nil
}

// autoSequence implements auto-sequence rule: continue the
// sequence within the same ms, otherwise restart at 0 — except ms 0 with no
// prior entries, where 0-0 would result, so it restarts at 1 instead.
func autoSequence(ms uint64, last StreamID, haveLast bool) StreamID {
	if haveLast && last.MS == ms {
		return StreamID{MS: ms, Seq: last.Seq + 1}
	}
	if ms == 0 && !haveLast {
		return StreamID{MS: 0, Seq: 1}
	}
	return StreamID{MS: ms, Seq: 0}
}

// Append inserts id into key's stream, creating the stream if key is
// absent. Rejects 0-0 and any id not strictly greater than the current
// last id.
func (s *Store) Append(key string, id StreamID, fields []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id.IsZero() {
		return ErrZeroID
	}

	v, ok := s.data[key]
	if !ok {
		v = &Value{Kind: KindStream, Stream: &Stream{}}
		s.data[key] = v
	} else if v.Kind != KindStream {
		return ErrWrongKind
	}

	if n := len(v.Stream.Entries); n > 0 && id.LessOrEqual(v.Stream.Entries[n-1].ID) {
		return ErrIDTooSmall
	}

	v.Stream.Entries = append(v.Stream.Entries, StreamEntry{
		ID:        id,
		Fields:    fields,
		ArrivalMS: clock.NowMS(),
	})

	s.signalLocked(key)
	return nil
}

// ParseExactID parses a literal "ms-seq" stream id, or a bare "ms" with
// sequence 0, as used by XREAD's per-key start-id argument (no
// "*"/sentinel forms accepted there).
func ParseExactID(s string) (StreamID, error) {
	parts := strings.SplitN(s, "-", 2)
	ms, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return StreamID{}, ErrBadStreamID
	}
	if len(parts) == 1 {
		return StreamID{MS: ms}, nil
	}
	seq, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return StreamID{}, ErrBadStreamID
	}
	return StreamID{MS: ms, Seq: seq}, nil
}

// LastID returns key's current last entry id, or the zero id if the
// stream is absent or empty — used to resolve XREAD's "$" start-id.
func (s *Store) LastID(key string) (StreamID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return StreamID{}, nil
	}
	if v.Kind != KindStream {
		return StreamID{}, ErrWrongKind
	}
	if n := len(v.Stream.Entries); n > 0 {
		return v.Stream.Entries[n-1].ID, nil
	}
	return StreamID{}, nil
}

// RangeBound is a parsed XRANGE endpoint: either a sentinel, a full id, or
// an ms-only bound — ms-only bounds compare differently than full-id
// bounds (see matchesStart/matchesEnd).
type RangeBound struct {
	negInf, posInf bool
	id             StreamID
	msOnly         bool
}

// ParseRangeBound parses an XRANGE endpoint: "-", "+", "ms", or
// "ms-seq".
func ParseRangeBound(s string) (RangeBound, error) {
	if s == "-" {
		return RangeBound{negInf: true}, nil
	}
	if s == "+" {
		return RangeBound{posInf: true}, nil
	}
	parts := strings.SplitN(s, "-", 2)
	ms, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return RangeBound{}, ErrBadStreamID
	}
	if len(parts) == 1 {
		return RangeBound{id: StreamID{MS: ms}, msOnly: true}, nil
	}
	seq, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return RangeBound{}, ErrBadStreamID
	}
	return RangeBound{id: StreamID{MS: ms, Seq: seq}}, nil
}

// matchesStart reports whether entry id satisfies a start bound.
func (b RangeBound) matchesStart(id StreamID) bool {
	if b.negInf {
		return true
	}
	if b.posInf {
		return false
	}
	if b.msOnly {
		return id.MS > b.id.MS
	}
	return b.id.LessOrEqual(id)
}

// matchesEnd reports whether entry id satisfies an end bound.
func (b RangeBound) matchesEnd(id StreamID) bool {
	if b.posInf {
		return true
	}
	if b.negInf {
		return false
	}
	if b.msOnly {
		return id.MS <= b.id.MS
	}
	return id.LessOrEqual(b.id)
}

// Range returns entries in key's stream within [start, end], inclusive on
// both ends, with ms-only bounds compared differently than full-id bounds.
func (s *Store) Range(key string, start, end RangeBound) ([]StreamEntry, error) {
	s.mu.RLock()
	entries, err := s.snapshotEntriesLocked(key)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	out := make([]StreamEntry, 0, len(entries))
	for _, e := range entries {
		if start.matchesStart(e.ID) && end.matchesEnd(e.ID) {
			out = append(out, e)
		}
	}
	return out, nil
}

// ReadMany implements XREAD's multi-stream query: for each key, entries
// with id strictly greater than the paired "after" id.
func (s *Store) ReadMany(keys []string, after []StreamID) (map[string][]StreamEntry, error) {
	result := make(map[string][]StreamEntry, len(keys))
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i, key := range keys {
		entries, err := s.snapshotEntriesLocked(key)
		if err != nil {
			return nil, err
		}
		var matched []StreamEntry
		for _, e := range entries {
			if after[i].Less(e.ID) {
				matched = append(matched, e)
			}
		}
		if len(matched) > 0 {
			result[key] = matched
		}
	}
	return result, nil
}

// snapshotEntriesLocked copies the entry slice header while the caller
// holds mu; safe to iterate after the lock is released since StreamEntry
// is immutable and append only grows the backing slice or reallocates.
func (s *Store) snapshotEntriesLocked(key string) ([]StreamEntry, error) {
	v, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	if v.Kind != KindStream {
		return nil, ErrWrongKind
	}
	return v.Stream.Entries, nil
}

// WaitChan returns the current broadcast channel for key, creating one if
// none exists yet (the key may not even hold a stream). The channel closes
// on the next successful Append to key, whenever that happens.
func (s *Store) WaitChan(key string) <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waitChanLocked(key)
}

func (s *Store) waitChanLocked(key string) chan struct{} {
	ch, ok := s.waiters[key]
	if !ok {
		ch = make(chan struct{})
		s.waiters[key] = ch
	}
	return ch
}

func (s *Store) signalLocked(key string) {
	if ch, ok := s.waiters[key]; ok {
		close(ch)
		delete(s.waiters, key)
	}
}
