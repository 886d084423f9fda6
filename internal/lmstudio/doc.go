// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package lmstudio provides the HTTP client for LM Studio-compatible
// inference servers. The server speaks the OpenAI chat-completion protocol
// under /v1 plus LM-Studio-specific extensions (model info and load/unload
// endpoints) that are best-effort: they vary between server versions and
// the client treats every extension endpoint as optional.
package lmstudio
