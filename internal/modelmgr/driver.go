// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package modelmgr

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jeranaias/lmterm/internal/lmstudio"
)

// =============================================================================
// LOAD STATE
// =============================================================================

// LoadState is the single source of truth for load progress. All
// transitions go through the driver's mutex; there are no standalone
// boolean flags to drift out of sync.
type LoadState int

const (
	StateIdle LoadState = iota
	StateLoading
	StateLoaded
	StateFailed
)

func (s LoadState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ErrLoadInFlight is returned when a load is requested while another is
// already running. The rejected call has no side effects.
var ErrLoadInFlight = errors.New("a model load is already in progress")

// =============================================================================
// DRIVER CONFIGURATION
// =============================================================================

const (
	// DefaultVerifyAttempts is how many completion probes confirm a load.
	DefaultVerifyAttempts = 5

	// DefaultVerifyBackoff is the delay between verification probes.
	DefaultVerifyBackoff = 1 * time.Second
)

// Event reports a driver state change for UI consumption.
type Event struct {
	State   LoadState
	ModelID string
	Err     error
}

// =============================================================================
// DRIVER
// =============================================================================

// loaderAPI is the service surface the driver drives.
type loaderAPI interface {
	LoadModel(ctx context.Context, modelID string) error
	UnloadModel(ctx context.Context, modelID string) error
	ForceLoad(ctx context.Context, modelID string) error
	CompletionProbe(ctx context.Context, modelID string) (string, error)
}

// Driver executes load and unload requests with a single explicit state
// machine. Only one load may be in flight at a time.
type Driver struct {
	svc loaderAPI

	verifyAttempts int
	verifyBackoff  time.Duration

	mu        sync.Mutex
	state     LoadState
	modelID   string
	startedAt time.Time
	lastErr   error

	events chan Event
}

// NewDriver creates a driver over the given service.
func NewDriver(svc loaderAPI) *Driver {
	return &Driver{
		svc:            svc,
		verifyAttempts: DefaultVerifyAttempts,
		verifyBackoff:  DefaultVerifyBackoff,
		state:          StateIdle,
		events:         make(chan Event, 16),
	}
}

// SetVerify overrides the verification poll parameters.
func (d *Driver) SetVerify(attempts int, backoff time.Duration) {
	d.mu.Lock()
	d.verifyAttempts = attempts
	d.verifyBackoff = backoff
	d.mu.Unlock()
}

// Events returns the state-change channel. Events are dropped, never
// blocked on, if the consumer falls behind.
func (d *Driver) Events() <-chan Event {
	return d.events
}

// State returns the current load state and the model it refers to.
func (d *Driver) State() (LoadState, string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state, d.modelID
}

// StartedAt returns when the in-flight load began. The UI uses this to
// keep the loading overlay up for its minimum display time even when the
// load finishes instantly.
func (d *Driver) StartedAt() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.startedAt
}

// LastErr returns the error from the most recent failed transition.
func (d *Driver) LastErr() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

func (d *Driver) transition(state LoadState, modelID string, err error) {
	d.mu.Lock()
	d.state = state
	d.modelID = modelID
	d.lastErr = err
	d.mu.Unlock()

	select {
	case d.events <- Event{State: state, ModelID: modelID, Err: err}:
	default:
	}
}

// =============================================================================
// LOAD
// =============================================================================

// Load loads a model. Returns ErrLoadInFlight immediately, with no side
// effects, if another load is running. Otherwise it tries the REST load
// endpoints, falls back to forcing the load via a full completion, and
// verifies by polling completion probes with backoff before reporting
// Loaded.
func (d *Driver) Load(ctx context.Context, modelID string) error {
	d.mu.Lock()
	if d.state == StateLoading {
		d.mu.Unlock()
		return ErrLoadInFlight
	}
	d.state = StateLoading
	d.modelID = modelID
	d.startedAt = time.Now()
	d.lastErr = nil
	d.mu.Unlock()

	select {
	case d.events <- Event{State: StateLoading, ModelID: modelID}:
	default:
	}

	if err := d.load(ctx, modelID); err != nil {
		d.transition(StateFailed, modelID, err)
		return err
	}

	d.transition(StateLoaded, modelID, nil)
	return nil
}

func (d *Driver) load(ctx context.Context, modelID string) error {
	// The dedicated endpoints are best-effort; a rejection is expected on
	// servers that do not expose them.
	err := d.svc.LoadModel(ctx, modelID)
	if err != nil {
		if lmstudio.IsUnreachable(err) {
			return err
		}
		// Force the load as a completion side effect instead.
		if err := d.svc.ForceLoad(ctx, modelID); err != nil {
			return err
		}
	}

	return d.verify(ctx, modelID)
}

// verify polls completion probes until the server answers with the
// requested model, backing off between attempts.
func (d *Driver) verify(ctx context.Context, modelID string) error {
	d.mu.Lock()
	attempts := d.verifyAttempts
	backoff := d.verifyBackoff
	d.mu.Unlock()

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		got, err := d.svc.CompletionProbe(ctx, modelID)
		if err != nil {
			lastErr = err
			continue
		}
		if got != "" {
			// Any successful completion means a model is serving; an id
			// mismatch still counts since servers often report alias ids.
			return nil
		}
	}

	if lastErr != nil {
		return lastErr
	}
	return lmstudio.ErrLoadRejected
}

// =============================================================================
// UNLOAD
// =============================================================================

// Unload unloads the current model using the same multi-endpoint fallback
// pattern as Load. Rejected while a load is in flight.
func (d *Driver) Unload(ctx context.Context, modelID string) error {
	d.mu.Lock()
	if d.state == StateLoading {
		d.mu.Unlock()
		return ErrLoadInFlight
	}
	d.mu.Unlock()

	if err := d.svc.UnloadModel(ctx, modelID); err != nil {
		d.transition(StateFailed, modelID, err)
		return err
	}

	d.transition(StateIdle, "", nil)
	return nil
}

// =============================================================================
// AUTO-LOAD
// =============================================================================

// AutoLoad implements load-on-startup: if the reconciler concludes no
// model is loaded and a default is configured, load it. Returns the id
// that ended up loaded, "" if none.
func (d *Driver) AutoLoad(ctx context.Context, rec *Reconciler, defaultID string) (string, error) {
	res := rec.Reconcile(ctx)
	if res.Loaded() {
		d.transition(StateLoaded, res.ModelID, nil)
		return res.ModelID, nil
	}

	if defaultID == "" {
		return "", nil
	}

	if err := d.Load(ctx, defaultID); err != nil {
		return "", err
	}
	rec.SetLastKnown(defaultID)
	return defaultID, nil
}
