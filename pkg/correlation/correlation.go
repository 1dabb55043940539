// Package correlation switches log-trace correlation on and off at runtime.
package correlation

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
)

const DefaultTraceIDKey = "traceid"

// TracingSettings mirror the inspectit.tracing configuration subtree.
type TracingSettings struct {
	Enabled           bool                   `koanf:"enabled"`
	SampleProbability float64                `koanf:"sample-probability"`
	LogCorrelation    LogCorrelationSettings `koanf:"log-correlation"`
}

type LogCorrelationSettings struct {
	TraceIDMDCInjection TraceIDMDCInjectionSettings `koanf:"trace-id-mdc-injection"`
}

type TraceIDMDCInjectionSettings struct {
	Enabled bool   `koanf:"enabled"`
	Key     string `koanf:"key"`
}

// DefaultTracingSettings are used when the configuration has no tracing subtree.
func DefaultTracingSettings() TracingSettings {
	return TracingSettings{
		Enabled:           true,
		SampleProbability: 1,
		LogCorrelation: LogCorrelationSettings{
			TraceIDMDCInjection: TraceIDMDCInjectionSettings{Key: DefaultTraceIDKey},
		},
	}
}

func (t TracingSettings) Validate() error {
	if t.SampleProbability < 0 || t.SampleProbability > 1 {
		return fmt.Errorf("sample-probability must be between 0 and 1, got %v", t.SampleProbability)
	}
	return nil
}

// LogTraceCorrelator attaches the current trace id to a logger.
type LogTraceCorrelator interface {
	Correlate(log zerolog.Logger, traceID string) zerolog.Logger
}

// NoopCorrelator returns loggers unchanged.
type NoopCorrelator struct{}

func (NoopCorrelator) Correlate(log zerolog.Logger, _ string) zerolog.Logger {
	return log
}

// MDCCorrelator adds the trace id under Key to every event of the logger.
type MDCCorrelator struct {
	Key string
}

func (c MDCCorrelator) Correlate(log zerolog.Logger, traceID string) zerolog.Logger {
	if traceID == "" {
		return log
	}
	return log.With().Str(c.Key, traceID).Logger()
}

type holder struct {
	LogTraceCorrelator
}

// Activator holds the correlator currently in use. It starts out with a
// NoopCorrelator.
type Activator struct {
	current atomic.Pointer[holder]
}

func NewActivator() *Activator {
	a := &Activator{}
	a.current.Store(&holder{NoopCorrelator{}})
	return a
}

// Update selects the correlator for settings.
func (a *Activator) Update(settings TracingSettings) {
	injection := settings.LogCorrelation.TraceIDMDCInjection
	if !injection.Enabled {
		a.current.Store(&holder{NoopCorrelator{}})
		return
	}
	key := strings.TrimSpace(injection.Key)
	if key == "" {
		key = DefaultTraceIDKey
	}
	a.current.Store(&holder{MDCCorrelator{Key: key}})
}

// Current returns the correlator selected by the last Update.
func (a *Activator) Current() LogTraceCorrelator {
	return a.current.Load().LogTraceCorrelator
}

// Unmarshaler is satisfied by *environment.Environment.
type Unmarshaler interface {
	Unmarshal(path string, out interface{}) error
}

// UpdateFrom reads the tracing settings below inspectit.tracing from src and
// applies them. Invalid settings leave the current correlator in place.
func (a *Activator) UpdateFrom(src Unmarshaler) error {
	settings := DefaultTracingSettings()
	if err := src.Unmarshal("inspectit.tracing", &settings); err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	a.Update(settings)
	return nil
}
