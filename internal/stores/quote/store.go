// Package quote voices mystery quotes through the text-to-speech endpoint.
package quote

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"whiterabbit/internal/apiclient"
	"whiterabbit/internal/domain"
	"whiterabbit/internal/eventbus"
)

// DefaultVoice is never sent upstream; the backend picks its own default
const DefaultVoice = "default"

// Generator is the subset of the API client the store needs
type Generator interface {
	GenerateTTS(ctx context.Context, req domain.TTSRequest) (*domain.TTSResult, error)
	WarmupTTS(ctx context.Context) (map[string]any, error)
}

// State describes the most recent Play
type State struct {
	MysteryID string
	Voice     string
	AudioURL  string
	Loading   bool
	Error     string
}

// Options configures a Store
type Options struct {
	Logger   *zap.Logger
	Bus      eventbus.EventBus
	OnChange func(State)
}

// audio is generated from the spoken text, so the text is part of the key
type key struct {
	mysteryID string
	text      string
	voice     string
}

// Store caches generated audio URLs per mystery, text and voice. Only one
// generation runs at a time: a new Play cancels the previous one.
type Store struct {
	mu        sync.Mutex
	generator Generator
	cache     map[key]string
	state     State
	seq       uint64
	cancel    context.CancelFunc
	logger    *zap.Logger
	bus       eventbus.EventBus
	onChange  func(State)
}

// New creates a store with an empty cache
func New(generator Generator, opts Options) *Store {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Store{
		generator: generator,
		cache:     make(map[key]string),
		logger:    opts.Logger.Named("quote"),
		bus:       opts.Bus,
		onChange:  opts.OnChange,
	}
}

// Snapshot returns a copy of the current state
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Play returns the audio URL for text spoken in voice, generating it when
// not cached. A superseded call returns context.Canceled and leaves state
// to the newer call.
func (s *Store) Play(ctx context.Context, mysteryID, text, voice string) (string, error) {
	if voice == "" {
		voice = DefaultVoice
	}
	k := key{mysteryID: mysteryID, text: text, voice: voice}

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.seq++
	seq := s.seq
	s.state = State{MysteryID: mysteryID, Voice: voice}

	if url, ok := s.cache[k]; ok {
		s.state.AudioURL = url
		snap := s.state
		s.mu.Unlock()

		s.notify(snap)
		s.publish(domain.QuoteReadyEvent{MysteryID: mysteryID, AudioURL: url, Cached: true})
		return url, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.cancel = cancel
	s.state.Loading = true
	snap := s.state
	s.mu.Unlock()
	s.notify(snap)

	req := domain.TTSRequest{MysteryID: mysteryID, Text: text}
	if voice != DefaultVoice {
		req.VoiceID = voice
	}
	res, err := s.generator.GenerateTTS(ctx, req)

	s.mu.Lock()
	if err == nil {
		s.cache[k] = res.AudioURL
	}
	if seq != s.seq {
		s.mu.Unlock()
		return "", context.Canceled
	}
	s.cancel = nil
	s.state.Loading = false
	switch {
	case err == nil:
		s.state.AudioURL = res.AudioURL
	case errors.Is(err, context.Canceled):
	default:
		s.state.Error = message(err)
	}
	snap = s.state
	s.mu.Unlock()

	s.notify(snap)
	switch {
	case err == nil:
		s.logger.Debug("quote ready", zap.String("mystery", mysteryID), zap.Bool("cached", res.Cached))
		s.publish(domain.QuoteReadyEvent{MysteryID: mysteryID, AudioURL: res.AudioURL, Cached: res.Cached})
		return res.AudioURL, nil
	case snap.Error != "":
		s.logger.Warn("quote generation failed", zap.String("mystery", mysteryID), zap.Error(err))
		s.publish(domain.QuoteFailedEvent{MysteryID: mysteryID, Message: snap.Error})
	}
	return "", err
}

// Warmup asks the backend to load its speech model ahead of the first Play
func (s *Store) Warmup(ctx context.Context) error {
	if _, err := s.generator.WarmupTTS(ctx); err != nil {
		s.logger.Warn("tts warmup failed", zap.Error(err))
		return err
	}
	return nil
}

func message(err error) string {
	if apiErr, ok := apiclient.AsAPIError(err); ok {
		if apiErr.StatusCode == 0 {
			return "Voice service is unavailable"
		}
		if apiErr.Message != "" {
			return apiErr.Message
		}
	}
	return "Could not generate audio"
}

func (s *Store) notify(snap State) {
	if s.onChange != nil {
		s.onChange(snap)
	}
}

func (s *Store) publish(event domain.DomainEvent) {
	if s.bus != nil {
		s.bus.Publish(event)
	}
}
