package environment

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshMergesLayersInOrder(t *testing.T) {
	env := New(zerolog.Nop())

	changed, err := env.Refresh(
		Layer{Name: "file", Properties: map[string]string{"a.b": "local", "a.c": "only-local"}},
		Layer{Name: "http", Properties: map[string]string{"a.b": "remote", "d": "x"}},
	)

	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "remote", env.String("a.b"))
	assert.Equal(t, "only-local", env.String("a.c"))
	assert.Equal(t, "x", env.String("d"))
	assert.True(t, env.Exists("a"))
	assert.False(t, env.Exists("missing"))
	assert.Equal(t, []string{"file", "http"}, env.Layers())
	assert.Len(t, env.All(), 3)
}

func TestRefreshReportsChangesOnly(t *testing.T) {
	env := New(zerolog.Nop())
	calls := 0
	env.OnChange(func(*Environment) { calls++ })

	local := Layer{Name: "file", Properties: map[string]string{"a": "1"}}
	remote := Layer{Name: "http", Properties: map[string]string{"b": "2"}}

	changed, err := env.Refresh(local, remote)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = env.Refresh(local, remote)
	require.NoError(t, err)
	assert.False(t, changed)

	// the remote layer being temporarily absent is a change
	changed, err = env.Refresh(local)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "", env.String("b"))

	assert.Equal(t, 2, calls)
}

func TestRefreshEmpty(t *testing.T) {
	env := New(zerolog.Nop())

	changed, err := env.Refresh()

	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, env.All())
}

type sample struct {
	Enabled     bool          `koanf:"enabled"`
	Probability float64       `koanf:"probability"`
	Interval    time.Duration `koanf:"interval"`
	Name        string        `koanf:"name"`
}

func TestUnmarshalConvertsStrings(t *testing.T) {
	env := New(zerolog.Nop())
	_, err := env.Refresh(Layer{Name: "http", Properties: map[string]string{
		"x.enabled":     "true",
		"x.probability": "0.5",
		"x.interval":    "15s",
		"x.name":        "svc",
	}})
	require.NoError(t, err)

	var s sample
	require.NoError(t, env.Unmarshal("x", &s))
	assert.Equal(t, sample{Enabled: true, Probability: 0.5, Interval: 15 * time.Second, Name: "svc"}, s)
}
