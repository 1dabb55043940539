// Package environment merges property layers into a single view.
package environment

import (
	"fmt"
	"maps"
	"sync"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Layer is one named set of flattened properties. Later layers override
// earlier ones.
type Layer struct {
	Name       string
	Properties map[string]string
}

// ChangeListener is called after Refresh changed the merged view.
type ChangeListener func(env *Environment)

type Environment struct {
	mu        sync.RWMutex
	k         *koanf.Koanf
	flat      map[string]string
	layers    []string
	listeners []ChangeListener
	logger    zerolog.Logger
}

func New(log zerolog.Logger) *Environment {
	return &Environment{
		k:      koanf.New("."),
		flat:   map[string]string{},
		logger: log,
	}
}

// OnChange registers fn to run after every change of the merged view.
func (e *Environment) OnChange(fn ChangeListener) {
	e.mu.Lock()
	e.listeners = append(e.listeners, fn)
	e.mu.Unlock()
}

// Refresh rebuilds the merged view from layers and reports whether any
// property was added, removed or changed.
func (e *Environment) Refresh(layers ...Layer) (bool, error) {
	k := koanf.New(".")
	names := make([]string, 0, len(layers))
	for _, layer := range layers {
		values := make(map[string]interface{}, len(layer.Properties))
		for key, v := range layer.Properties {
			values[key] = v
		}
		if err := k.Load(confmap.Provider(values, "."), nil); err != nil {
			return false, errors.Wrapf(err, "loading layer %s", layer.Name)
		}
		names = append(names, layer.Name)
	}

	flat := make(map[string]string)
	for key, v := range k.All() {
		flat[key] = fmt.Sprint(v)
	}

	e.mu.Lock()
	changed := !maps.Equal(e.flat, flat)
	e.k = k
	e.flat = flat
	e.layers = names
	listeners := append([]ChangeListener(nil), e.listeners...)
	e.mu.Unlock()

	if changed {
		e.logger.Debug().Strs("layers", names).Int("properties", len(flat)).Msg("Configuration changed.")
		for _, fn := range listeners {
			fn(e)
		}
	}
	return changed, nil
}

// Layers returns the names of the layers of the last Refresh, lowest first.
func (e *Environment) Layers() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.layers...)
}

func (e *Environment) String(key string) string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.flat[key]
}

func (e *Environment) Exists(key string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.k.Exists(key)
}

// All returns a copy of the merged properties.
func (e *Environment) All() map[string]string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return maps.Clone(e.flat)
}

// Unmarshal decodes the subtree at path into out using koanf struct tags.
// String values are converted to the field types.
func (e *Environment) Unmarshal(path string, out interface{}) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.k.UnmarshalWithConf(path, out, koanf.UnmarshalConf{Tag: "koanf"})
}
