package whitelist_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HexHive/nesCheck/internal/whitelist"
)

func TestFullyWhitelistedPatterns(t *testing.T) {
	cases := map[string]bool{
		"sim_boot":         true,
		"hashtable_insert": true,
		"my_heap_alloc":    true,
		"foo_hashtable":    true,
		"normal_func":      false,
		"malloc":           false,
	}
	for name, want := range cases {
		assert.Equal(t, want, whitelist.FullyWhitelisted(name), name)
	}
}

func TestLoadMissingPathYieldsEmptyList(t *testing.T) {
	l, err := whitelist.Load("")
	require.NoError(t, err)
	assert.False(t, l.InstrumentationOnly("anything"))
}

func TestLoadMissingFileYieldsEmptyList(t *testing.T) {
	l, err := whitelist.Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.False(t, l.InstrumentationOnly("anything"))
}

func TestInstrumentationOnlyConfigAndNesCheckSuffix(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "whitelist.yaml")
	require.NoError(t, os.WriteFile(path, []byte("instrumentationOnly:\n  - active_message_deliver\n"), 0o644))

	l, err := whitelist.Load(path)
	require.NoError(t, err)

	assert.True(t, l.InstrumentationOnly("active_message_deliver"))
	assert.True(t, l.InstrumentationOnly("active_message_deliver_nesCheck"))
	assert.False(t, l.InstrumentationOnly("other_func"))
	assert.True(t, l.InstrumentationOnly("sim_boot"), "fully whitelisted names are also instrumentation-only")
}
