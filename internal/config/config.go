// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for lmterm.
//
// Settings live in TOML at ~/.config/lmterm/config.toml with sensible
// defaults, environment variable overrides (LMTERM_*), and validation.
// A flat-key JSON import is provided for migrating settings exported from
// the mobile client.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/lmterm/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete lmterm configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	Server ServerConfig `toml:"server" json:"server"`
	Model  ModelConfig  `toml:"model" json:"model"`
	Chat   ChatConfig   `toml:"chat" json:"chat"`
	UI     UIConfig     `toml:"ui" json:"ui"`
	TTS    TTSConfig    `toml:"tts" json:"tts"`
}

// ServerConfig locates the inference server.
type ServerConfig struct {
	// Host is the server IP or hostname.
	Host string `toml:"host" json:"host"`
	// Port is the server port.
	Port int `toml:"port" json:"port"`
}

// BaseURL builds the http base URL for the configured server.
func (s ServerConfig) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", s.Host, s.Port)
}

// ModelConfig contains model selection configuration.
type ModelConfig struct {
	// DefaultID is loaded on startup when the server reports no model.
	DefaultID string `toml:"default_id" json:"default_id"`
}

// ChatConfig contains generation and conversation configuration.
type ChatConfig struct {
	// Temperature for completions, 0..2.
	Temperature float64 `toml:"temperature" json:"temperature"`
	// SystemPrompt prepended to every conversation.
	SystemPrompt string `toml:"system_prompt" json:"system_prompt"`
	// UserSystemPrompt marks SystemPrompt as user-authored rather than
	// the built-in default, so upgrades never overwrite it.
	UserSystemPrompt bool `toml:"user_system_prompt" json:"user_system_prompt"`
	// HideThinking hides <think> spans in assistant output.
	HideThinking bool `toml:"hide_thinking" json:"hide_thinking"`
	// AutoTitles derives chat titles from the first user message.
	AutoTitles bool `toml:"auto_titles" json:"auto_titles"`
	// ReasoningTimeoutSecs cancels generation when only thinking content
	// has arrived for this long. 0 disables the timeout.
	ReasoningTimeoutSecs int `toml:"reasoning_timeout_secs" json:"reasoning_timeout_secs"`
}

// UIConfig contains terminal UI configuration.
type UIConfig struct {
	// AutoScroll follows streaming output.
	AutoScroll bool `toml:"auto_scroll" json:"auto_scroll"`
	// LightTheme selects the light color theme.
	LightTheme bool `toml:"light_theme" json:"light_theme"`
	// ModelBanner shows the loaded-model banner above the chat.
	ModelBanner bool `toml:"model_banner" json:"model_banner"`
}

// TTSConfig contains text-to-speech configuration.
type TTSConfig struct {
	// Enabled turns on spoken responses where an engine is available.
	Enabled bool `toml:"enabled" json:"enabled"`
	// Voice passed to the engine; engine-specific, may be empty.
	Voice string `toml:"voice" json:"voice"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// CurrentVersion is written to new config files.
const CurrentVersion = "1.0"

// DefaultSystemPrompt is used until the user writes their own.
const DefaultSystemPrompt = "You are a helpful assistant."

// Default returns a config populated with defaults.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 1234,
		},
		Chat: ChatConfig{
			Temperature:          0.7,
			SystemPrompt:         DefaultSystemPrompt,
			AutoTitles:           true,
			ReasoningTimeoutSecs: 120,
		},
		UI: UIConfig{
			AutoScroll:  true,
			ModelBanner: true,
		},
	}
}

// =============================================================================
// FILE LOCATIONS
// =============================================================================

// Path returns the config file path.
func Path() (string, error) {
	dir, err := util.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the config file, filling defaults for missing fields and
// applying environment overrides. A missing file yields the defaults,
// not an error.
func Load() (*Config, error) {
	cfg, err := LoadFileOnly()
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// LoadFileOnly reads the config file without applying environment
// overrides. Callers that write the result back (config set) use this
// so LMTERM_* values never get persisted into the file.
func LoadFileOnly() (*Config, error) {
	cfg := Default()

	path, err := Path()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); err == nil {
		if err := loadTOML(cfg, path); err != nil {
			return nil, err
		}
	}

	fillDefaults(cfg)
	return cfg, nil
}

// LoadFromPath reads a config from an explicit path.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := loadTOML(cfg, path); err != nil {
		return nil, err
	}
	fillDefaults(cfg)
	cfg.ApplyEnvOverrides()
	return cfg, nil
}

func loadTOML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

// fillDefaults replaces zero values that have non-zero defaults. Boolean
// fields keep whatever the file said; their file-absent case is covered
// by starting from Default().
func fillDefaults(cfg *Config) {
	def := Default()
	if cfg.Version == "" {
		cfg.Version = def.Version
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = def.Server.Host
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Chat.Temperature == 0 {
		cfg.Chat.Temperature = def.Chat.Temperature
	}
	if cfg.Chat.SystemPrompt == "" && !cfg.Chat.UserSystemPrompt {
		cfg.Chat.SystemPrompt = def.Chat.SystemPrompt
	}
	if cfg.Chat.ReasoningTimeoutSecs == 0 {
		cfg.Chat.ReasoningTimeoutSecs = def.Chat.ReasoningTimeoutSecs
	}
}

// =============================================================================
// SAVING
// =============================================================================

// Save writes the config atomically to the default path.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config atomically to an explicit path.
func SaveTo(cfg *Config, path string) error {
	var sb strings.Builder
	if err := toml.NewEncoder(&sb).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return util.AtomicWriteFile(path, []byte(sb.String()), 0600)
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes a single invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors aggregates validation failures.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return "invalid configuration: " + strings.Join(msgs, "; ")
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if strings.TrimSpace(c.Server.Host) == "" {
		errs = append(errs, ValidationError{
			Field:   "server.host",
			Message: "server host is required",
		})
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be 1-65535, got %d", c.Server.Port),
		})
	}
	if c.Chat.Temperature < 0 || c.Chat.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "chat.temperature",
			Message: fmt.Sprintf("temperature must be 0-2, got %g", c.Chat.Temperature),
		})
	}
	if c.Chat.ReasoningTimeoutSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "chat.reasoning_timeout_secs",
			Message: "reasoning timeout cannot be negative",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies LMTERM_* environment variables on top of the
// loaded configuration.
func (c *Config) ApplyEnvOverrides() {
	if host := os.Getenv("LMTERM_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("LMTERM_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if model := os.Getenv("LMTERM_MODEL"); model != "" {
		c.Model.DefaultID = model
	}
	if v := os.Getenv("LMTERM_HIDE_THINKING"); v != "" {
		c.Chat.HideThinking = envTrue(v)
	}
	if v := os.Getenv("LMTERM_LIGHT_THEME"); v != "" {
		c.UI.LightTheme = envTrue(v)
	}
}

func envTrue(v string) bool {
	return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a value using dot notation (e.g. "server.host").
func (c *Config) Get(key string) (interface{}, error) {
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)

		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return nil, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			return field.Interface(), nil
		}

		if field.Kind() != reflect.Struct {
			return nil, fmt.Errorf("field %q is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}

	return nil, fmt.Errorf("invalid key: %s", key)
}

// Set sets a value using dot notation (e.g. "chat.temperature").
func (c *Config) Set(key string, value interface{}) error {
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)

		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			if !field.CanSet() {
				return fmt.Errorf("cannot set field: %s", key)
			}
			return setFieldValue(field, value)
		}

		if field.Kind() != reflect.Struct {
			return fmt.Errorf("field %q is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}

	return fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go
// field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} with string
// type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			field.SetBool(envTrue(strVal))
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}

	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"server.host",
		"server.port",
		"model.default_id",
		"chat.temperature",
		"chat.system_prompt",
		"chat.user_system_prompt",
		"chat.hide_thinking",
		"chat.auto_titles",
		"chat.reasoning_timeout_secs",
		"ui.auto_scroll",
		"ui.light_theme",
		"ui.model_banner",
		"tts.enabled",
		"tts.voice",
	}
}

// Clone returns a deep copy of the config.
func (c *Config) Clone() *Config {
	dup := *c
	return &dup
}

// =============================================================================
// LEGACY JSON IMPORT
// =============================================================================

// legacySettings is the flat key-value settings blob the mobile client
// exports from its local storage.
type legacySettings struct {
	ServerIP                  string   `json:"serverIp"`
	ServerPort                string   `json:"serverPort"`
	Temperature               *float64 `json:"temperature"`
	SystemPrompt              string   `json:"systemPrompt"`
	IsUserCreatedSystemPrompt *bool    `json:"isUserCreatedSystemPrompt"`
	HideThinking              *bool    `json:"hideThinking"`
	AutoGenerateTitles        *bool    `json:"autoGenerateTitles"`
	AutoScrollEnabled         *bool    `json:"autoScrollEnabled"`
	LightThemeEnabled         *bool    `json:"lightThemeEnabled"`
	ReasoningTimeout          *int     `json:"reasoningTimeout"`
	DefaultModelID            string   `json:"defaultModelId"`
	TTSVoice                  string   `json:"ttsVoice"`
	ModelBannerVisible        *bool    `json:"modelBannerVisible"`
}

// ImportLegacyJSON merges a flat-key JSON settings export into the
// config. Absent keys leave the current values untouched.
func (c *Config) ImportLegacyJSON(data []byte) error {
	var legacy legacySettings
	if err := json.Unmarshal(data, &legacy); err != nil {
		return fmt.Errorf("failed to parse settings export: %w", err)
	}

	if legacy.ServerIP != "" {
		c.Server.Host = legacy.ServerIP
	}
	if legacy.ServerPort != "" {
		if p, err := strconv.Atoi(legacy.ServerPort); err == nil {
			c.Server.Port = p
		}
	}
	if legacy.Temperature != nil {
		c.Chat.Temperature = *legacy.Temperature
	}
	if legacy.SystemPrompt != "" {
		c.Chat.SystemPrompt = legacy.SystemPrompt
	}
	if legacy.IsUserCreatedSystemPrompt != nil {
		c.Chat.UserSystemPrompt = *legacy.IsUserCreatedSystemPrompt
	}
	if legacy.HideThinking != nil {
		c.Chat.HideThinking = *legacy.HideThinking
	}
	if legacy.AutoGenerateTitles != nil {
		c.Chat.AutoTitles = *legacy.AutoGenerateTitles
	}
	if legacy.AutoScrollEnabled != nil {
		c.UI.AutoScroll = *legacy.AutoScrollEnabled
	}
	if legacy.LightThemeEnabled != nil {
		c.UI.LightTheme = *legacy.LightThemeEnabled
	}
	if legacy.ReasoningTimeout != nil {
		c.Chat.ReasoningTimeoutSecs = *legacy.ReasoningTimeout
	}
	if legacy.DefaultModelID != "" {
		c.Model.DefaultID = legacy.DefaultModelID
	}
	if legacy.TTSVoice != "" {
		c.TTS.Voice = legacy.TTSVoice
		c.TTS.Enabled = true
	}
	if legacy.ModelBannerVisible != nil {
		c.UI.ModelBanner = *legacy.ModelBannerVisible
	}

	return nil
}

// =============================================================================
// GLOBAL SINGLETON
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global config, loading it on first use. Load errors
// fall back to defaults so the UI always has a config to work with.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			cfg = Default()
		}
		globalConfigMu.Lock()
		globalConfig = cfg
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal re-reads the config file into the global config.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalConfigMu.Lock()
	globalConfig = cfg
	globalConfigMu.Unlock()
	return nil
}

// SetGlobal replaces the global config.
func SetGlobal(cfg *Config) {
	globalConfigOnce.Do(func() {})
	globalConfigMu.Lock()
	globalConfig = cfg
	globalConfigMu.Unlock()
}

// ResetGlobalForTesting clears the global config so tests start fresh.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	globalConfig = nil
	globalConfigMu.Unlock()
	globalConfigOnce = sync.Once{}
}
