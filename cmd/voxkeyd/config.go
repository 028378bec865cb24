// cmd/voxkeyd/config.go
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	ListenAddr  string `json:"listen_addr" yaml:"listen_addr" env:"VOXKEY_LISTEN_ADDR"`
	TokenFile   string `json:"token_file" yaml:"token_file" env:"VOXKEY_TOKEN_FILE"`
	TokenHeader string `json:"token_header" yaml:"token_header" env:"VOXKEY_TOKEN_HEADER"`

	// Paste sequencing
	SettleMs        int   `json:"settle_ms" yaml:"settle_ms" env:"VOXKEY_SETTLE_MS"`
	VerifyClipboard bool  `json:"verify_clipboard" yaml:"verify_clipboard" env:"VOXKEY_VERIFY_CLIPBOARD"`
	VerifyTimeoutMs int   `json:"verify_timeout_ms" yaml:"verify_timeout_ms" env:"VOXKEY_VERIFY_TIMEOUT_MS"`
	MaxTextLen      int   `json:"max_text_len" yaml:"max_text_len" env:"VOXKEY_MAX_TEXT_LEN"`

	// Transcription
	DeepgramBaseURL string `json:"deepgram_base_url" yaml:"deepgram_base_url" env:"VOXKEY_DEEPGRAM_BASE_URL"`
	DeepgramLiveURL string `json:"deepgram_live_url" yaml:"deepgram_live_url" env:"VOXKEY_DEEPGRAM_LIVE_URL"`
	Model           string `json:"model" yaml:"model" env:"VOXKEY_MODEL"`
	SmartFormat     *bool  `json:"smart_format" yaml:"smart_format" env:"VOXKEY_SMART_FORMAT"`
	MaxAudioMB      int    `json:"max_audio_mb" yaml:"max_audio_mb" env:"VOXKEY_MAX_AUDIO_MB"`

	// Desktop notification when a transcription finishes or fails.
	Notify *bool `json:"notify" yaml:"notify" env:"VOXKEY_NOTIFY"`

	LogLevel string `json:"log_level" yaml:"log_level" env:"VOXKEY_LOG_LEVEL"`
}

var cfg ServerConfig

const (
	defaultYAML = "voxkeyd.yaml"
	defaultYML  = "voxkeyd.yml"
	defaultJSON = "voxkeyd.json"
)

// loadConfig reads voxkeyd.yaml/yml/json if present, overlays .env and
// process environment, then fills defaults. A missing config file is fine;
// the daemon runs on defaults.
func loadConfig() error {
	if path := pickConfigPath(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return fmt.Errorf("parsing %s: %w", path, err)
			}
		case ".json":
			if err := json.Unmarshal(data, &cfg); err != nil {
				return fmt.Errorf("parsing %s: %w", path, err)
			}
		}
	}

	// .env is optional; real environment wins over it.
	_ = godotenv.Load()
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("environment: %w", err)
	}

	applyDefaults()
	return nil
}

func pickConfigPath() string {
	for _, p := range []string{defaultYAML, defaultYML, defaultJSON} {
		if fileExists(p) {
			return p
		}
	}
	return ""
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func applyDefaults() {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "127.0.0.1:60770"
	}
	if cfg.TokenFile == "" {
		cfg.TokenFile = "voxkey_token.txt"
	}
	if cfg.TokenHeader == "" {
		cfg.TokenHeader = "X-VoxKey-Token"
	}

	if cfg.SettleMs == 0 {
		cfg.SettleMs = 100
	}
	if cfg.VerifyTimeoutMs == 0 {
		cfg.VerifyTimeoutMs = 1000
	}
	if cfg.MaxTextLen == 0 {
		cfg.MaxTextLen = 65536
	}

	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	if cfg.SmartFormat == nil {
		v := true
		cfg.SmartFormat = &v
	}
	if cfg.MaxAudioMB == 0 {
		cfg.MaxAudioMB = 25
	}

	if cfg.Notify == nil {
		v := false
		cfg.Notify = &v
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

func settleInterval() time.Duration {
	return time.Duration(cfg.SettleMs) * time.Millisecond
}

func verifyTimeout() time.Duration {
	return time.Duration(cfg.VerifyTimeoutMs) * time.Millisecond
}

func boolDeref(ptr *bool, def bool) bool {
	if ptr == nil {
		return def
	}
	return *ptr
}
