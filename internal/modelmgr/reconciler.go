// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package modelmgr decides which model is loaded on a server whose state
// can change outside the client's control, and drives load/unload
// requests against it. The server's signals are imperfect and
// inconsistently populated, so the reconciler runs an ordered chain of
// probe strategies and takes the first conclusive answer.
package modelmgr

import (
	"context"
	"sync"
	"time"

	"github.com/jeranaias/lmterm/internal/lmstudio"
)

// =============================================================================
// PROBE STRATEGIES
// =============================================================================

// Strategy tags the probe that decided a reconciliation result.
type Strategy int

const (
	StrategyNone          Strategy = iota // no strategy succeeded
	StrategyReadyFlag                     // readiness flag in the model list
	StrategyInfoEndpoint                  // model info extension endpoint
	StrategyCompletion                    // minimal completion probe
	StrategyLastKnownGood                 // previously reconciled id still listed
)

func (s Strategy) String() string {
	switch s {
	case StrategyReadyFlag:
		return "ready-flag"
	case StrategyInfoEndpoint:
		return "info-endpoint"
	case StrategyCompletion:
		return "completion-probe"
	case StrategyLastKnownGood:
		return "last-known-good"
	default:
		return "none"
	}
}

// Result is the outcome of one reconciliation pass.
type Result struct {
	ModelID  string   // the loaded model, "" if none
	Strategy Strategy // which probe decided
}

// Loaded reports whether the pass concluded a model is loaded.
func (r Result) Loaded() bool {
	return r.ModelID != ""
}

// probeFunc is one strategy in the chain. It receives the freshly fetched
// model list and returns (id, true) on a conclusive match. Probe errors
// are swallowed: a failed step just means the chain moves on.
type probeFunc func(ctx context.Context, models []lmstudio.Model) (string, bool)

// =============================================================================
// RECONCILER
// =============================================================================

// api is the slice of the service the reconciler needs.
type api interface {
	ListModels(ctx context.Context) ([]lmstudio.Model, error)
	ModelInfo(ctx context.Context) (string, error)
	CompletionProbe(ctx context.Context, modelID string) (string, error)
}

// Reconciler determines the currently loaded model. It is safe for
// concurrent use; the last known-good id is the only state it keeps.
type Reconciler struct {
	svc api

	mu        sync.Mutex
	lastKnown string
}

// NewReconciler creates a reconciler over the given service.
func NewReconciler(svc api) *Reconciler {
	return &Reconciler{svc: svc}
}

// LastKnown returns the most recently reconciled model id, "" if none.
func (r *Reconciler) LastKnown() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastKnown
}

// SetLastKnown seeds the last known-good id, e.g. after a successful
// explicit load.
func (r *Reconciler) SetLastKnown(id string) {
	r.mu.Lock()
	r.lastKnown = id
	r.mu.Unlock()
}

// Reconcile runs the probe chain and returns a single consistent answer.
// It never blocks indefinitely: every network step is bounded by the
// client's probe timeout, and total failure of all strategies yields a
// "none" result, not an error. The answer is a snapshot; the server can
// change state the moment it returns.
func (r *Reconciler) Reconcile(ctx context.Context) Result {
	models, err := r.svc.ListModels(ctx)
	if err != nil || len(models) == 0 {
		// Unreachable server or empty list: nothing can be loaded.
		return Result{Strategy: StrategyNone}
	}

	chain := []struct {
		strategy Strategy
		probe    probeFunc
	}{
		{StrategyReadyFlag, r.probeReadyFlags},
		{StrategyInfoEndpoint, r.probeInfoEndpoint},
		{StrategyCompletion, r.probeCompletion},
		{StrategyLastKnownGood, r.probeLastKnown},
	}

	for _, step := range chain {
		if id, ok := step.probe(ctx, models); ok {
			r.SetLastKnown(id)
			return Result{ModelID: id, Strategy: step.strategy}
		}
		if ctx.Err() != nil {
			break
		}
	}

	return Result{Strategy: StrategyNone}
}

// probeReadyFlags scans the list for any entry with a truthy
// readiness-like flag.
func (r *Reconciler) probeReadyFlags(ctx context.Context, models []lmstudio.Model) (string, bool) {
	for i := range models {
		if models[i].IsReady() {
			return models[i].ID, true
		}
	}
	return "", false
}

// probeInfoEndpoint asks the info extension endpoints and matches the
// reported id against the list.
func (r *Reconciler) probeInfoEndpoint(ctx context.Context, models []lmstudio.Model) (string, bool) {
	id, err := r.svc.ModelInfo(ctx)
	if err != nil || id == "" {
		return "", false
	}
	if containsModel(models, id) {
		return id, true
	}
	return "", false
}

// probeCompletion issues a minimal completion and reads back the model
// field. If the reported id is not in the list the server is assumed to
// have served the first listed model.
func (r *Reconciler) probeCompletion(ctx context.Context, models []lmstudio.Model) (string, bool) {
	id, err := r.svc.CompletionProbe(ctx, models[0].ID)
	if err != nil {
		return "", false
	}
	if containsModel(models, id) {
		return id, true
	}
	return models[0].ID, true
}

// probeLastKnown reuses the previously reconciled id if it still appears
// in the list.
func (r *Reconciler) probeLastKnown(ctx context.Context, models []lmstudio.Model) (string, bool) {
	last := r.LastKnown()
	if last != "" && containsModel(models, last) {
		return last, true
	}
	return "", false
}

func containsModel(models []lmstudio.Model, id string) bool {
	for i := range models {
		if models[i].ID == id {
			return true
		}
	}
	return false
}

// =============================================================================
// BACKGROUND POLLING
// =============================================================================

// Watch reconciles on the given interval until ctx is canceled, invoking
// onChange whenever the result differs from the previous pass.
func (r *Reconciler) Watch(ctx context.Context, interval time.Duration, onChange func(Result)) {
	var prev Result
	first := true

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		res := r.Reconcile(ctx)
		if first || res != prev {
			onChange(res)
			prev = res
			first = false
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
