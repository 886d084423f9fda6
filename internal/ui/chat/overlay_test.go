// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"testing"
	"time"
)

func TestOverlayEnforcesMinimumVisibility(t *testing.T) {
	var o overlayState
	now := time.Now()

	o.show("mistral-7b", now)
	// Load finishes instantly, far inside the minimum window.
	o.finish(nil)

	if o.canHide(now.Add(10 * time.Millisecond)) {
		t.Error("overlay hidden before minimum visibility elapsed")
	}

	rem := o.remaining(now.Add(500 * time.Millisecond))
	if rem <= 0 || rem > minOverlayVisible {
		t.Errorf("remaining = %v, want within (0, %v]", rem, minOverlayVisible)
	}

	if !o.canHide(now.Add(minOverlayVisible)) {
		t.Error("overlay should be dismissible once the window elapses")
	}
}

func TestOverlaySlowLoadHidesImmediately(t *testing.T) {
	var o overlayState
	started := time.Now().Add(-10 * time.Second)

	o.show("llama-70b", started)
	o.finish(nil)

	now := time.Now()
	if got := o.remaining(now); got != 0 {
		t.Errorf("remaining after slow load = %v, want 0", got)
	}
	if !o.canHide(now) {
		t.Error("overlay for a slow load should hide as soon as it finishes")
	}
}

func TestOverlayStaysUpUntilLoadFinishes(t *testing.T) {
	var o overlayState
	// Window long expired, but the load is still running.
	o.show("qwen-72b", time.Now().Add(-time.Minute))

	if o.canHide(time.Now()) {
		t.Error("overlay must not hide while the load is in flight")
	}
}

func TestOverlayHideClearsState(t *testing.T) {
	var o overlayState
	o.show("m", time.Now())
	o.finish(errors.New("no vram"))

	if o.loadErr == nil {
		t.Fatal("finish did not record the error")
	}

	o.hide()
	if o.visible || o.loadDone || o.loadErr != nil || o.modelID != "" {
		t.Errorf("hide left residual state: %+v", o)
	}
}
