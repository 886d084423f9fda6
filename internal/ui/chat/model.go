// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the interactive chat view for the lmterm TUI.
package chat

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/lmterm/internal/api"
	"github.com/jeranaias/lmterm/internal/config"
	"github.com/jeranaias/lmterm/internal/lmstudio"
	"github.com/jeranaias/lmterm/internal/model"
	"github.com/jeranaias/lmterm/internal/modelmgr"
	"github.com/jeranaias/lmterm/internal/storage"
	"github.com/jeranaias/lmterm/internal/tts"
	"github.com/jeranaias/lmterm/internal/ui/styles"
)

// =============================================================================
// CHAT STATE
// =============================================================================

// State represents the current state of the chat view.
type State int

const (
	StateReady     State = iota // Ready for input
	StateStreaming              // Receiving a streaming response
	StateLoading                // Model load in progress, overlay up
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	state State

	// Styling
	theme *styles.Theme

	// Dimensions
	width  int
	height int
	ready  bool

	// Configuration snapshot taken at startup; live-reload arrives via
	// the config watcher before the program starts.
	cfg *config.Config

	// Conversation
	conversation *model.Conversation

	// Backends
	svc    *api.Service
	driver *modelmgr.Driver
	rec    *modelmgr.Reconciler
	store  *storage.ChatStore
	speech tts.Engine

	// Server / model status
	serverUp bool
	modelID  string

	// Streaming
	streamBuf      *StreamingBuffer
	streamCh       chan tea.Msg
	streamingMsgID string
	streamStart    time.Time
	cancelMgr      *cancelManager // pointer: Bubble Tea copies the Model on every update

	// Loading overlay
	overlay overlayState

	// UI components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	keyMap   KeyMap

	// Toggles
	hideThinking bool
	autoScroll   bool
	showBanner   bool

	// Model picker
	showPicker   bool
	pickerModels []lmstudio.Model
	pickerIndex  int

	// Help overlay
	showHelp bool

	// Transient status bar note
	statusNote string
}

// New creates the chat model. The theme, service, driver, reconciler
// and store must be non-nil; speech may be a no-op engine.
func New(theme *styles.Theme, cfg *config.Config, svc *api.Service,
	driver *modelmgr.Driver, rec *modelmgr.Reconciler,
	store *storage.ChatStore, speech tts.Engine) Model {

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a message..."
	ti.CharLimit = 4096
	ti.Focus()

	vp := viewport.New(80, 20)
	vp.SetContent("")

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 30,
	}
	sp.Style = theme.Spinner

	conv := model.NewConversation()
	conv.SystemPrompt = cfg.Chat.SystemPrompt
	conv.AutoTitle = cfg.Chat.AutoTitles

	return Model{
		state:        StateReady,
		theme:        theme,
		cfg:          cfg,
		conversation: conv,
		svc:          svc,
		driver:       driver,
		rec:          rec,
		store:        store,
		speech:       speech,
		modelID:      cfg.Model.DefaultID,
		streamBuf:    NewStreamingBuffer(),
		cancelMgr:    newCancelManager(),
		viewport:     vp,
		input:        ti,
		spinner:      sp,
		keyMap:       DefaultKeyMap(),
		hideThinking: cfg.Chat.HideThinking,
		autoScroll:   cfg.UI.AutoScroll,
		showBanner:   cfg.UI.ModelBanner,
	}
}

// Resume continues a previously saved conversation.
func (m *Model) Resume(conv *model.Conversation) {
	if conv == nil {
		return
	}
	m.conversation = conv
	if conv.Model != "" {
		m.modelID = conv.Model
	}
}

// Init starts the background probes: server health, the model listing
// for the picker and the startup reconcile/auto-load.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		checkServerCmd(m.svc),
		listModelsCmd(m.svc),
		resolveModelCmd(m.rec),
		m.spinner.Tick,
	)
}

// Conversation exposes the current conversation, used on exit to save.
func (m Model) Conversation() *model.Conversation {
	return m.conversation
}

// streaming reports whether a response is currently being received.
func (m Model) streaming() bool {
	return m.state == StateStreaming
}
