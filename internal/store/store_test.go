package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"redisd/internal/clock"
)

// withFixedClock pins clock.NowMS to t for the duration of a test, restoring
// the real clock afterward. Tests in this package never run in parallel with
// each other (the default), so the shared seam is safe to mutate.
func withFixedClock(tb testing.TB, t time.Time) {
	tb.Helper()
	orig := clock.Clock
	clock.Clock = func() time.Time { return t }
	tb.Cleanup(func() { clock.Clock = orig })
}

func TestSaveGetRoundTrip(t *testing.T) {
	s := New()
	s.Save("foo", "bar", false, 0)
	v, ok := s.Get("foo")
	require.True(t, ok)
	require.Equal(t, "bar", v)
}

func TestGetMissingKey(t *testing.T) {
	s := New()
	_, ok := s.Get("missing")
	require.False(t, ok)
}

func TestExpiryLazyDeletesKey(t *testing.T) {
	base := time.UnixMilli(1_000_000)
	withFixedClock(t, base)

	s := New()
	s.Save("foo", "bar", true, base.UnixMilli()+100)

	_, ok := s.Get("foo")
	require.True(t, ok, "not yet expired")

	clock.Clock = func() time.Time { return base.Add(200 * time.Millisecond) }
	_, ok = s.Get("foo")
	require.False(t, ok, "should have expired")
	require.False(t, s.Exists("foo"))
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := New()
	require.False(t, s.Delete("absent"))
	s.Save("foo", "bar", false, 0)
	require.True(t, s.Delete("foo"))
	require.False(t, s.Delete("foo"))
}

func TestTypeReportsKind(t *testing.T) {
	s := New()
	require.Equal(t, "none", s.Type("absent"))
	s.Save("str", "v", false, 0)
	require.Equal(t, "string", s.Type("str"))
	_, err := s.GenerateID("stream", "1-1")
	require.NoError(t, err)
	require.NoError(t, s.Append("stream", StreamID{MS: 1, Seq: 1}, []string{"f", "v"}))
	require.Equal(t, "stream", s.Type("stream"))
}

func TestIncr(t *testing.T) {
	s := New()

	n, err := s.Incr("counter")
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	n, err = s.Incr("counter")
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	s.Save("notanum", "abc", false, 0)
	_, err = s.Incr("notanum")
	require.ErrorIs(t, err, ErrNotInteger)
}

func TestIncrPreservesExpiry(t *testing.T) {
	base := time.UnixMilli(1_000_000)
	withFixedClock(t, base)

	s := New()
	s.Save("counter", "5", true, base.UnixMilli()+100)
	_, err := s.Incr("counter")
	require.NoError(t, err)
	v, ok := s.Get("counter")
	require.True(t, ok)
	require.Equal(t, "6", v)

	clock.Clock = func() time.Time { return base.Add(200 * time.Millisecond) }
	_, ok = s.Get("counter")
	require.False(t, ok, "incremented value keeps the original deadline")
}

func TestKeysSkipsExpired(t *testing.T) {
	base := time.UnixMilli(1_000_000)
	withFixedClock(t, base)

	s := New()
	s.Save("live", "v", false, 0)
	s.Save("dead", "v", true, base.UnixMilli()-1)

	keys := s.Keys()
	require.Equal(t, []string{"live"}, keys)
}

func TestLoadSnapshotReplacesData(t *testing.T) {
	s := New()
	s.Save("old", "value", false, 0)
	s.LoadSnapshot([]SnapshotEntry{{Key: "new", Value: "v"}})

	_, ok := s.Get("old")
	require.False(t, ok)
	v, ok := s.Get("new")
	require.True(t, ok)
	require.Equal(t, "v", v)
}

func TestStreamAutoSequence(t *testing.T) {
	s := New()

	id, err := s.GenerateID("stream", "5-*")
	require.NoError(t, err)
	require.Equal(t, StreamID{MS: 5, Seq: 0}, id)
	require.NoError(t, s.Append("stream", id, nil))

	id, err = s.GenerateID("stream", "5-*")
	require.NoError(t, err)
	require.Equal(t, StreamID{MS: 5, Seq: 1}, id)
	require.NoError(t, s.Append("stream", id, nil))

	id, err = s.GenerateID("stream", "6-*")
	require.NoError(t, err)
	require.Equal(t, StreamID{MS: 6, Seq: 0}, id)
}

func TestStreamAutoSequenceNeverProducesZeroZero(t *testing.T) {
	s := New()
	id, err := s.GenerateID("stream", "0-*")
	require.NoError(t, err)
	require.Equal(t, StreamID{MS: 0, Seq: 1}, id)
}

func TestAppendRejectsZeroID(t *testing.T) {
	s := New()
	err := s.Append("stream", StreamID{}, nil)
	require.ErrorIs(t, err, ErrZeroID)
}

func TestAppendRejectsNonIncreasingID(t *testing.T) {
	s := New()
	require.NoError(t, s.Append("stream", StreamID{MS: 5, Seq: 0}, nil))
	err := s.Append("stream", StreamID{MS: 5, Seq: 0}, nil)
	require.ErrorIs(t, err, ErrIDTooSmall)
	err = s.Append("stream", StreamID{MS: 4, Seq: 9}, nil)
	require.ErrorIs(t, err, ErrIDTooSmall)
}

func TestAppendWrongKind(t *testing.T) {
	s := New()
	s.Save("str", "v", false, 0)
	err := s.Append("str", StreamID{MS: 1}, nil)
	require.ErrorIs(t, err, ErrWrongKind)
}

func TestLastID(t *testing.T) {
	s := New()
	id, err := s.LastID("absent")
	require.NoError(t, err)
	require.True(t, id.IsZero())

	require.NoError(t, s.Append("stream", StreamID{MS: 3, Seq: 1}, nil))
	id, err = s.LastID("stream")
	require.NoError(t, err)
	require.Equal(t, StreamID{MS: 3, Seq: 1}, id)
}

func TestParseExactID(t *testing.T) {
	id, err := ParseExactID("5-3")
	require.NoError(t, err)
	require.Equal(t, StreamID{MS: 5, Seq: 3}, id)

	id, err = ParseExactID("5")
	require.NoError(t, err)
	require.Equal(t, StreamID{MS: 5}, id)

	_, err = ParseExactID("nope")
	require.ErrorIs(t, err, ErrBadStreamID)
}

func TestRangeMsOnlyBoundsAreAsymmetric(t *testing.T) {
	s := New()
	require.NoError(t, s.Append("stream", StreamID{MS: 5, Seq: 0}, []string{"a"}))
	require.NoError(t, s.Append("stream", StreamID{MS: 5, Seq: 5}, []string{"b"}))
	require.NoError(t, s.Append("stream", StreamID{MS: 6, Seq: 0}, []string{"c"}))

	// A "5" start bound excludes ms==5 entries (strictly greater than).
	start, err := ParseRangeBound("5")
	require.NoError(t, err)
	end, err := ParseRangeBound("+")
	require.NoError(t, err)
	entries, err := s.Range("stream", start, end)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, StreamID{MS: 6, Seq: 0}, entries[0].ID)

	// A "5" end bound includes ms==5 entries (less-than-or-equal).
	start, err = ParseRangeBound("-")
	require.NoError(t, err)
	end, err = ParseRangeBound("5")
	require.NoError(t, err)
	entries, err = s.Range("stream", start, end)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestRangeFullIDBoundsAreInclusive(t *testing.T) {
	s := New()
	require.NoError(t, s.Append("stream", StreamID{MS: 5, Seq: 0}, []string{"a"}))
	require.NoError(t, s.Append("stream", StreamID{MS: 5, Seq: 5}, []string{"b"}))

	start, err := ParseRangeBound("5-0")
	require.NoError(t, err)
	end, err := ParseRangeBound("5-5")
	require.NoError(t, err)
	entries, err := s.Range("stream", start, end)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestReadManyReturnsEntriesAfterID(t *testing.T) {
	s := New()
	require.NoError(t, s.Append("a", StreamID{MS: 1}, []string{"x"}))
	require.NoError(t, s.Append("a", StreamID{MS: 2}, []string{"y"}))
	require.NoError(t, s.Append("b", StreamID{MS: 1}, []string{"z"}))

	result, err := s.ReadMany([]string{"a", "b"}, []StreamID{{MS: 1}, {MS: 1}})
	require.NoError(t, err)
	require.Len(t, result["a"], 1)
	require.Equal(t, StreamID{MS: 2}, result["a"][0].ID)
	_, hasB := result["b"]
	require.False(t, hasB, "no entries after ms=1 in stream b")
}

func TestWaitChanClosesOnAppend(t *testing.T) {
	s := New()
	ch := s.WaitChan("stream")

	select {
	case <-ch:
		t.Fatal("channel closed before any append")
	default:
	}

	require.NoError(t, s.Append("stream", StreamID{MS: 1}, nil))

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("channel did not close after append")
	}
}
