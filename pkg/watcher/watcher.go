// watcher.go
// Copyright (C) Andrew Woodlee 2023
// License: Apache-2.0

// Package watcher polls a property source on a schedule and feeds the
// results into the merged environment.
package watcher

import (
	"context"
	"sync"
	"time"

	"git.andrewnw.xyz/CyberShell/remoteconf/pkg/correlation"
	"git.andrewnw.xyz/CyberShell/remoteconf/pkg/environment"
	"git.andrewnw.xyz/CyberShell/remoteconf/pkg/notify"
	"git.andrewnw.xyz/CyberShell/remoteconf/pkg/propertysource"
	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Option configures a Watcher.
type Option func(*Watcher)

// WithLocalProperties sets the layer the HTTP layer is merged on top of.
func WithLocalProperties(props map[string]string) Option {
	return func(w *Watcher) {
		w.local = environment.Layer{Name: "file", Properties: props}
	}
}

// WithFallback makes every poll, not only the first, fall back to the
// persisted file on failure.
func WithFallback(fallback bool) Option {
	return func(w *Watcher) {
		w.fallback = fallback
	}
}

func WithPublisher(p notify.Publisher) Option {
	return func(w *Watcher) {
		w.publisher = p
	}
}

func WithActivator(a *correlation.Activator) Option {
	return func(w *Watcher) {
		w.activator = a
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(w *Watcher) {
		w.logger = log
	}
}

// Watcher serializes all Update calls of one State.
type Watcher struct {
	state     *propertysource.State
	env       *environment.Environment
	interval  time.Duration
	local     environment.Layer
	fallback  bool
	publisher notify.Publisher
	activator *correlation.Activator
	logger    zerolog.Logger

	mu           sync.Mutex
	polls        int
	lastSnapshot *propertysource.Snapshot
}

func New(state *propertysource.State, env *environment.Environment, interval time.Duration, opts ...Option) *Watcher {
	w := &Watcher{
		state:     state,
		env:       env,
		interval:  interval,
		local:     environment.Layer{Name: "file"},
		publisher: notify.NopPublisher{},
		activator: correlation.NewActivator(),
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	w.lastSnapshot = state.CurrentSnapshot()
	env.OnChange(func(e *environment.Environment) {
		if err := w.activator.UpdateFrom(e); err != nil {
			w.logger.Error().Err(err).Msg("Invalid tracing settings, keeping log correlation unchanged.")
		}
	})
	return w
}

// Activator returns the log-trace correlation switch driven by this watcher.
func (w *Watcher) Activator() *correlation.Activator {
	return w.activator
}

// PollNow runs one poll and refreshes the environment. It returns the
// result of State.Update.
func (w *Watcher) PollNow(ctx context.Context) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	useFallback := w.fallback || w.polls == 0
	w.polls++

	log := w.activator.Current().Correlate(w.logger, uuid.NewString())
	ok := w.state.Update(log.WithContext(ctx), useFallback)

	layers := []environment.Layer{w.local}
	snap := w.state.CurrentSnapshot()
	if ok {
		layers = append(layers, environment.Layer{Name: w.state.Name(), Properties: snap.Properties()})
	}
	if _, err := w.env.Refresh(layers...); err != nil {
		log.Error().Err(err).Msg("Could not refresh configuration.")
	}

	if ok && snap != w.lastSnapshot {
		w.lastSnapshot = snap
		event := notify.ChangeEvent{
			Source:     w.state.Name(),
			SnapshotID: snap.ID().String(),
			Checksum:   snap.Checksum(),
			Keys:       snap.Keys(),
			Fallback:   w.state.ErrorCounter() > 0,
			Time:       time.Now(),
		}
		if err := w.publisher.Publish(ctx, event); err != nil {
			log.Error().Err(err).Msg("Could not publish configuration change.")
		}
	}

	log.Debug().Bool("ok", ok).Bool("fallback", useFallback).Int("failures", w.state.ErrorCounter()).Msg("Poll finished.")
	return ok
}

// Start polls immediately and then every interval until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	if w.interval <= 0 {
		return errors.Errorf("poll interval must be positive, got %s", w.interval)
	}

	s := gocron.NewScheduler(time.Local)
	s.SingletonModeAll()
	_, err := s.Every(w.interval).Do(func() {
		w.PollNow(ctx)
	})
	if err != nil {
		return errors.Wrap(err, "scheduling poll")
	}

	w.logger.Info().Str("source", w.state.Name()).Dur("interval", w.interval).Msg("Starting configuration polling")
	s.StartAsync()
	<-ctx.Done()
	s.Stop()
	w.logger.Info().Str("source", w.state.Name()).Msg("Stopped configuration polling")
	return nil
}
