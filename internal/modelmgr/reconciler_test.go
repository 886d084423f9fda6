// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package modelmgr

import (
	"context"
	"errors"
	"testing"

	"github.com/jeranaias/lmterm/internal/lmstudio"
)

// fakeService scripts the probe surface for reconciler and driver tests.
type fakeService struct {
	models    []lmstudio.Model
	modelsErr error

	infoID  string
	infoErr error

	probeID  string
	probeErr error
	probed   []string

	loadErr   error
	loaded    []string
	unloadErr error
	unloaded  []string
	forceErr  error
	forced    []string
}

func (f *fakeService) ListModels(ctx context.Context) ([]lmstudio.Model, error) {
	return f.models, f.modelsErr
}

func (f *fakeService) ModelInfo(ctx context.Context) (string, error) {
	return f.infoID, f.infoErr
}

func (f *fakeService) CompletionProbe(ctx context.Context, modelID string) (string, error) {
	f.probed = append(f.probed, modelID)
	return f.probeID, f.probeErr
}

func (f *fakeService) LoadModel(ctx context.Context, modelID string) error {
	f.loaded = append(f.loaded, modelID)
	return f.loadErr
}

func (f *fakeService) UnloadModel(ctx context.Context, modelID string) error {
	f.unloaded = append(f.unloaded, modelID)
	return f.unloadErr
}

func (f *fakeService) ForceLoad(ctx context.Context, modelID string) error {
	f.forced = append(f.forced, modelID)
	return f.forceErr
}

func boolPtr(b bool) *bool { return &b }

var errProbeDown = errors.New("endpoint down")

func TestReconcileReadyFlagWins(t *testing.T) {
	svc := &fakeService{
		models: []lmstudio.Model{
			{ID: "m1"},
			{ID: "m2", Ready: boolPtr(true)},
		},
		// Later strategies would disagree; they must never run.
		infoID:  "m1",
		probeID: "m1",
	}

	res := NewReconciler(svc).Reconcile(context.Background())
	if res.ModelID != "m2" {
		t.Errorf("ModelID = %q, want m2", res.ModelID)
	}
	if res.Strategy != StrategyReadyFlag {
		t.Errorf("Strategy = %v, want ready-flag", res.Strategy)
	}
	if len(svc.probed) != 0 {
		t.Errorf("completion probe ran %d times, want 0", len(svc.probed))
	}
}

func TestReconcileInfoEndpointMatch(t *testing.T) {
	svc := &fakeService{
		models: []lmstudio.Model{{ID: "m1"}, {ID: "m2"}},
		infoID: "m2",
	}

	res := NewReconciler(svc).Reconcile(context.Background())
	if res.ModelID != "m2" || res.Strategy != StrategyInfoEndpoint {
		t.Errorf("got (%q, %v), want (m2, info-endpoint)", res.ModelID, res.Strategy)
	}
}

func TestReconcileInfoIDNotInListFallsThrough(t *testing.T) {
	svc := &fakeService{
		models:  []lmstudio.Model{{ID: "m1"}},
		infoID:  "ghost-model",
		probeID: "m1",
	}

	res := NewReconciler(svc).Reconcile(context.Background())
	if res.Strategy != StrategyCompletion {
		t.Errorf("Strategy = %v, want completion-probe", res.Strategy)
	}
	if res.ModelID != "m1" {
		t.Errorf("ModelID = %q, want m1", res.ModelID)
	}
}

func TestReconcileCompletionProbeMatch(t *testing.T) {
	svc := &fakeService{
		models:  []lmstudio.Model{{ID: "m1"}, {ID: "m2"}},
		infoErr: errProbeDown,
		probeID: "m2",
	}

	res := NewReconciler(svc).Reconcile(context.Background())
	if res.ModelID != "m2" || res.Strategy != StrategyCompletion {
		t.Errorf("got (%q, %v), want (m2, completion-probe)", res.ModelID, res.Strategy)
	}
}

func TestReconcileCompletionProbeUnlistedAssumesFirst(t *testing.T) {
	svc := &fakeService{
		models:  []lmstudio.Model{{ID: "m1"}, {ID: "m2"}},
		infoErr: errProbeDown,
		probeID: "something-else",
	}

	res := NewReconciler(svc).Reconcile(context.Background())
	if res.ModelID != "m1" {
		t.Errorf("ModelID = %q, want first listed m1", res.ModelID)
	}
}

func TestReconcileLastKnownGoodFallback(t *testing.T) {
	svc := &fakeService{
		models:   []lmstudio.Model{{ID: "m1"}, {ID: "m2"}},
		infoErr:  errProbeDown,
		probeErr: errProbeDown,
	}

	rec := NewReconciler(svc)
	rec.SetLastKnown("m2")

	res := rec.Reconcile(context.Background())
	if res.ModelID != "m2" || res.Strategy != StrategyLastKnownGood {
		t.Errorf("got (%q, %v), want (m2, last-known-good)", res.ModelID, res.Strategy)
	}
}

func TestReconcileLastKnownGoneYieldsNone(t *testing.T) {
	svc := &fakeService{
		models:   []lmstudio.Model{{ID: "m1"}},
		infoErr:  errProbeDown,
		probeErr: errProbeDown,
	}

	rec := NewReconciler(svc)
	rec.SetLastKnown("removed-model")

	res := rec.Reconcile(context.Background())
	if res.Loaded() {
		t.Errorf("result = %+v, want none", res)
	}
	if res.Strategy != StrategyNone {
		t.Errorf("Strategy = %v, want none", res.Strategy)
	}
}

func TestReconcileAllFailYieldsNoneNotError(t *testing.T) {
	svc := &fakeService{
		models:   []lmstudio.Model{{ID: "m1"}},
		infoErr:  errProbeDown,
		probeErr: errProbeDown,
	}

	res := NewReconciler(svc).Reconcile(context.Background())
	if res.Loaded() {
		t.Errorf("result = %+v, want none", res)
	}
}

func TestReconcileServerUnreachableYieldsNone(t *testing.T) {
	svc := &fakeService{modelsErr: lmstudio.ErrServerUnreachable}

	res := NewReconciler(svc).Reconcile(context.Background())
	if res.Loaded() || res.Strategy != StrategyNone {
		t.Errorf("result = %+v, want none", res)
	}
}

func TestReconcileUpdatesLastKnown(t *testing.T) {
	svc := &fakeService{
		models: []lmstudio.Model{{ID: "m1", Status: "loaded"}},
	}

	rec := NewReconciler(svc)
	rec.Reconcile(context.Background())
	if rec.LastKnown() != "m1" {
		t.Errorf("LastKnown() = %q, want m1", rec.LastKnown())
	}
}
