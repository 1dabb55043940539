// state.go
// Copyright (C) Andrew Woodlee 2023
// License: Apache-2.0

package propertysource

import (
	"context"
	"net/url"
	"sync"
	"sync/atomic"

	"git.andrewnw.xyz/CyberShell/remoteconf/pkg/configparser"
	"git.andrewnw.xyz/CyberShell/remoteconf/pkg/remotefetcher"
	"github.com/rs/zerolog"
)

const (
	fetchFailedMsg   = "An I/O problem occurred while fetching configuration."
	parseFailedMsg   = "Fetched configuration could not be parsed."
	persistFailedMsg = "Could not persist fetched configuration."
	fallbackMsg      = "Loaded configuration from persistence file."
)

// Settings describe the single endpoint a State polls.
type Settings struct {
	// URL of the configuration endpoint; it may carry a query string.
	URL string

	// Attributes are appended to URL as query parameters.
	Attributes remotefetcher.Attributes

	// PersistenceFile stores the last fresh body. Empty disables persistence.
	PersistenceFile string
}

type StateOption func(*State)

// WithFetcher replaces the default HTTP fetcher.
func WithFetcher(fetcher remotefetcher.ConfigFetcher) StateOption {
	return func(s *State) {
		s.fetcher = fetcher
	}
}

func WithLogger(log zerolog.Logger) StateOption {
	return func(s *State) {
		s.logger = log
	}
}

// State fetches the configuration of one HTTP endpoint and keeps the
// resulting Snapshot.
//
// Update must not be called concurrently. CurrentSnapshot, ErrorCounter and
// LastError may be called from any goroutine at any time.
type State struct {
	name     string
	settings Settings
	fetcher  remotefetcher.ConfigFetcher
	store    *remotefetcher.FileStore
	logger   zerolog.Logger

	// only touched by Update
	validators *remotefetcher.Validators

	current      atomic.Pointer[Snapshot]
	errorCounter atomic.Int64

	errMu   sync.RWMutex
	lastErr error
}

// NewState returns a State whose current snapshot is empty.
func NewState(name string, settings Settings, opts ...StateOption) *State {
	s := &State{
		name:     name,
		settings: settings,
		store:    remotefetcher.NewFileStore(settings.PersistenceFile),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.fetcher == nil {
		s.fetcher = remotefetcher.NewHTTPFetcher()
	}
	s.logger = s.logger.With().Str("source", name).Logger()
	s.current.Store(newSnapshot(name, nil, ""))
	return s
}

func (s *State) Name() string {
	return s.name
}

func (s *State) Settings() Settings {
	return s.settings
}

// EffectiveRequestURI is the settings URL with all set attributes appended.
func (s *State) EffectiveRequestURI() (*url.URL, error) {
	return remotefetcher.EffectiveRequestURI(s.settings.URL, s.settings.Attributes)
}

// CurrentSnapshot returns the snapshot installed by the last successful Update.
func (s *State) CurrentSnapshot() *Snapshot {
	return s.current.Load()
}

// ErrorCounter is the number of consecutive failed fetches.
func (s *State) ErrorCounter() int {
	return int(s.errorCounter.Load())
}

// LastError is the error of the last Update, or nil if it succeeded. Parse
// failures are reported as *configparser.ParseError, transport failures as
// anything else.
func (s *State) LastError() error {
	s.errMu.RLock()
	defer s.errMu.RUnlock()
	return s.lastErr
}

func (s *State) setLastError(err error) {
	s.errMu.Lock()
	s.lastErr = err
	s.errMu.Unlock()
}

// Update fetches the configuration once and reports whether the current
// snapshot can be used.
//
// A fresh response replaces the snapshot and is persisted. A not-modified
// response keeps the snapshot as is. A failed fetch increments the error
// counter; if useFallback is set and a persisted file exists, it is loaded
// as a new snapshot and Update still returns true.
//
// A logger attached to ctx with zerolog's WithContext, such as one carrying
// a trace id, replaces the State's own logger for this call.
func (s *State) Update(ctx context.Context, useFallback bool) bool {
	log := s.loggerFor(ctx)
	var result remotefetcher.FetchResult
	uri, err := s.EffectiveRequestURI()
	if err != nil {
		result = remotefetcher.FetchResult{Outcome: remotefetcher.Failed, Err: err}
	} else {
		result = s.fetcher.Fetch(ctx, uri.String(), s.validators)
	}

	switch result.Outcome {
	case remotefetcher.Fresh:
		return s.applyFresh(log, result)
	case remotefetcher.NotModified:
		log.Debug().Msg("Configuration has not been modified.")
		s.recovered(log)
		s.setLastError(nil)
		return true
	default:
		return s.applyFailure(log, result.Err, useFallback)
	}
}

func (s *State) loggerFor(ctx context.Context) zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l.With().Str("source", s.name).Logger()
	}
	return s.logger
}

func (s *State) applyFresh(log zerolog.Logger, result remotefetcher.FetchResult) bool {
	props, err := configparser.Parse(result.Body)
	if err != nil {
		// the server answered, so this is not counted as a fetch failure;
		// validators are kept so the next poll fetches the full body again
		log.Error().Err(err).Msg(parseFailedMsg)
		s.setLastError(err)
		return false
	}

	checksum := remotefetcher.Hash(result.Body)
	s.current.Store(newSnapshot(s.name, props, checksum))

	if err := s.store.Write(result.Body); err != nil {
		log.Error().Err(err).Str("file", s.store.Path()).Msg(persistFailedMsg)
	}

	s.validators = result.Validators
	s.recovered(log)
	s.setLastError(nil)
	log.Debug().Str("sha256", checksum).Int("properties", len(props)).Msg("Fetched configuration.")
	return true
}

func (s *State) recovered(log zerolog.Logger) {
	failures := s.errorCounter.Swap(0)
	if failures > 0 {
		log.Info().Int64("failures", failures).
			Msgf("Configuration fetch has been successful after %d unsuccessful attempts.", failures)
	}
}

func (s *State) applyFailure(log zerolog.Logger, fetchErr error, useFallback bool) bool {
	s.setLastError(fetchErr)
	failures := s.errorCounter.Add(1)

	// a failure streak is logged at error level on attempts 1, 2, 4, 8, ...
	event := log.Debug()
	if failures&(failures-1) == 0 {
		event = log.Error()
	}
	event.Err(fetchErr).Int64("failures", failures).Msg(fetchFailedMsg)

	if !useFallback {
		return false
	}

	body, ok, err := s.store.LoadFallback()
	if err != nil {
		log.Error().Err(err).Str("file", s.store.Path()).Msg("Could not read persistence file.")
		return false
	}
	if !ok {
		return false
	}

	props, err := configparser.Parse(body)
	if err != nil {
		log.Error().Err(err).Str("file", s.store.Path()).Msg("Persisted configuration could not be parsed.")
		return false
	}

	s.current.Store(newSnapshot(s.name, props, remotefetcher.Hash(body)))
	log.Info().Str("file", s.store.Path()).Msg(fallbackMsg)
	return true
}
