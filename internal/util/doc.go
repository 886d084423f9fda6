// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small shared helpers for the lmterm application:
// atomic file writes, rune- and width-aware string truncation, and
// platform data/config directory resolution.
package util
