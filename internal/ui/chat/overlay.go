// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the interactive chat view for the lmterm TUI.
//
// This file tracks the model-loading overlay. The overlay must stay on
// screen for a minimum duration even when the server answers instantly,
// otherwise fast loads flash an unreadable frame. Dismissal therefore
// requires BOTH the load to have finished and the minimum window to
// have elapsed, measured from the driver's load start time.
package chat

import "time"

// minOverlayVisible is the minimum time the loading overlay stays up.
const minOverlayVisible = 1500 * time.Millisecond

// overlayState tracks the loading overlay lifecycle.
type overlayState struct {
	visible  bool
	modelID  string
	shownAt  time.Time
	loadDone bool
	loadErr  error
}

// show raises the overlay for a model load that started at startedAt.
func (o *overlayState) show(modelID string, startedAt time.Time) {
	o.visible = true
	o.modelID = modelID
	o.shownAt = startedAt
	o.loadDone = false
	o.loadErr = nil
}

// finish records the load outcome. The overlay stays visible until the
// minimum window has also elapsed.
func (o *overlayState) finish(err error) {
	o.loadDone = true
	o.loadErr = err
}

// remaining returns how much of the minimum window is left at now.
// Zero means the window has elapsed.
func (o *overlayState) remaining(now time.Time) time.Duration {
	left := minOverlayVisible - now.Sub(o.shownAt)
	if left < 0 {
		return 0
	}
	return left
}

// canHide reports whether the overlay may be dismissed at now.
func (o *overlayState) canHide(now time.Time) bool {
	return o.visible && o.loadDone && o.remaining(now) == 0
}

// hide clears the overlay.
func (o *overlayState) hide() {
	o.visible = false
	o.modelID = ""
	o.loadDone = false
	o.loadErr = nil
}
