// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api coordinates access to the LM Studio client for the UI:
// identical concurrent reads collapse into one request, list responses are
// cached for a short TTL so repeated polls within a tick window hit
// memory, and background polling is rate-limited.
package api

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/jeranaias/lmterm/internal/lmstudio"
)

// DefaultCacheTTL is how long list responses stay fresh.
const DefaultCacheTTL = 2 * time.Second

// pollsPerSecond bounds background model-list polling.
const pollsPerSecond = 2

// Service wraps the LM Studio client with request de-duplication and a
// short-lived response cache. Safe for concurrent use.
type Service struct {
	client *lmstudio.Client
	ttl    time.Duration

	group   singleflight.Group
	limiter *rate.Limiter

	mu         sync.Mutex
	models     []lmstudio.Model
	modelsAt   time.Time
	infoID     string
	infoAt     time.Time
	infoCached bool
}

// NewService creates a service around the given client.
func NewService(client *lmstudio.Client) *Service {
	return &Service{
		client:  client,
		ttl:     DefaultCacheTTL,
		limiter: rate.NewLimiter(pollsPerSecond, 1),
	}
}

// SetTTL overrides the response cache TTL. Zero disables caching.
func (s *Service) SetTTL(ttl time.Duration) {
	s.mu.Lock()
	s.ttl = ttl
	s.mu.Unlock()
}

// Client returns the underlying LM Studio client.
func (s *Service) Client() *lmstudio.Client {
	return s.client
}

// =============================================================================
// CACHED READS
// =============================================================================

// ListModels returns the model list, served from cache when fresh.
// Concurrent callers share a single in-flight request.
func (s *Service) ListModels(ctx context.Context) ([]lmstudio.Model, error) {
	s.mu.Lock()
	if s.models != nil && time.Since(s.modelsAt) < s.ttl {
		cached := s.models
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	v, err, _ := s.group.Do("models", func() (interface{}, error) {
		models, err := s.client.ListModels(ctx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.models = models
		s.modelsAt = time.Now()
		s.mu.Unlock()
		return models, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]lmstudio.Model), nil
}

// ModelInfo returns the loaded-model id reported by the info endpoints,
// cached and de-duplicated like ListModels. A cached "no id" result is
// not stored; failures always retry on the next call.
func (s *Service) ModelInfo(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.infoCached && time.Since(s.infoAt) < s.ttl {
		cached := s.infoID
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	v, err, _ := s.group.Do("model-info", func() (interface{}, error) {
		id, err := s.client.ModelInfo(ctx)
		if err != nil {
			return "", err
		}
		s.mu.Lock()
		s.infoID = id
		s.infoAt = time.Now()
		s.infoCached = true
		s.mu.Unlock()
		return id, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// PollModels is ListModels for background polling loops: it waits on the
// rate limiter first so a tight loop cannot hammer the server.
func (s *Service) PollModels(ctx context.Context) ([]lmstudio.Model, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.ListModels(ctx)
}

// Invalidate drops all cached responses. Call after any mutation that
// changes server state (load, unload).
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.models = nil
	s.modelsAt = time.Time{}
	s.infoCached = false
	s.infoID = ""
	s.mu.Unlock()
}

// =============================================================================
// PASSTHROUGH OPERATIONS
// =============================================================================

// CheckRunning reports server reachability.
func (s *Service) CheckRunning(ctx context.Context) error {
	return s.client.CheckRunning(ctx)
}

// Chat sends a non-streaming chat request. Never cached.
func (s *Service) Chat(ctx context.Context, req *lmstudio.ChatRequest) (*lmstudio.ChatResponse, error) {
	return s.client.Chat(ctx, req)
}

// ChatStream sends a streaming chat request. Never cached.
func (s *Service) ChatStream(ctx context.Context, req *lmstudio.ChatRequest, callback lmstudio.StreamCallback) error {
	return s.client.ChatStream(ctx, req, callback)
}

// CompletionProbe issues a minimal completion probe. Never cached: its
// whole point is observing current server state.
func (s *Service) CompletionProbe(ctx context.Context, modelID string) (string, error) {
	return s.client.CompletionProbe(ctx, modelID)
}

// LoadModel loads a model and invalidates cached state.
func (s *Service) LoadModel(ctx context.Context, modelID string) error {
	err := s.client.LoadModel(ctx, modelID)
	s.Invalidate()
	return err
}

// UnloadModel unloads a model and invalidates cached state.
func (s *Service) UnloadModel(ctx context.Context, modelID string) error {
	err := s.client.UnloadModel(ctx, modelID)
	s.Invalidate()
	return err
}

// ForceLoad coerces a load via a full completion and invalidates cached
// state.
func (s *Service) ForceLoad(ctx context.Context, modelID string) error {
	err := s.client.ForceLoad(ctx, modelID)
	s.Invalidate()
	return err
}
