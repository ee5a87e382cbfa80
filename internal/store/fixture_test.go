package store

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// snapshotFixture is one named scenario: a set of entries to load via
// LoadSnapshot plus the keys expected to come back live afterward. Table
// expressed as YAML rather than a Go literal, the way
// boomballa-df2redis/tests/integration's fixtures separate scenario data
// from test code.
type snapshotFixture struct {
	Name        string            `yaml:"name"`
	Entries     []fixtureEntry    `yaml:"entries"`
	WantValues  map[string]string `yaml:"wantValues"`
	WantMissing []string          `yaml:"wantMissing"`
}

type fixtureEntry struct {
	Key       string `yaml:"key"`
	Value     string `yaml:"value"`
	HasExpiry bool   `yaml:"hasExpiry"`
	ExpiryMS  int64  `yaml:"expiryMs"`
}

const snapshotFixturesYAML = `
- name: plain keys, no expiry
  entries:
    - key: foo
      value: bar
    - key: baz
      value: qux
  wantValues:
    foo: bar
    baz: qux

- name: an already-expired entry is still lazily expired on first read
  entries:
    - key: live
      value: "1"
    - key: stale
      value: "2"
      hasExpiry: true
      expiryMs: 1
  wantValues:
    live: "1"
  wantMissing:
    - stale
`

// TestLoadSnapshotFixtures pins LoadSnapshot's contract against a small
// table of named scenarios: LoadSnapshot installs every entry verbatim,
// including its expiry metadata, and the usual lazy-expiry check on Get
// still applies afterward — loading a snapshot is not a way to bypass it.
func TestLoadSnapshotFixtures(t *testing.T) {
	var fixtures []snapshotFixture
	require.NoError(t, yaml.Unmarshal([]byte(snapshotFixturesYAML), &fixtures))
	require.NotEmpty(t, fixtures)

	for _, fx := range fixtures {
		t.Run(fx.Name, func(t *testing.T) {
			s := New()
			entries := make([]SnapshotEntry, len(fx.Entries))
			for i, e := range fx.Entries {
				entries[i] = SnapshotEntry{Key: e.Key, Value: e.Value, HasExpiry: e.HasExpiry, ExpiryMS: e.ExpiryMS}
			}
			s.LoadSnapshot(entries)

			for k, want := range fx.WantValues {
				got, ok := s.Get(k)
				require.True(t, ok, "key %q should be present", k)
				require.Equal(t, want, got)
			}
			for _, k := range fx.WantMissing {
				_, ok := s.Get(k)
				require.False(t, ok, "key %q should be absent", k)
			}
		})
	}
}
