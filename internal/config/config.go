package config

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/stridefit/stride/internal/credentials"
)

const (
	appName    = "stride"
	configFile = "config.json"
)

const (
	defaultAppURL  = "https://app.stridefit.com"
	defaultAuthURL = "https://api.stridefit.com"
)

type Config struct {
	AppURL         string   `json:"app_url"`
	AuthURL        string   `json:"auth_url"`
	AuthAPIKey     string   `json:"auth_api_key,omitempty"`
	Theme          string   `json:"theme,omitempty"`
	MaxRetries     int      `json:"max_retries,omitempty"`
	RetryDelayMs   int      `json:"retry_delay_ms,omitempty"`
	LogoutSettleMs int      `json:"logout_settle_ms,omitempty"`
	VideoHosts     []string `json:"video_hosts,omitempty"`

	// ControlKey signs tokens for the loopback control server. Held in
	// the keyring, never in the config file.
	ControlKey string `json:"-"`
}

func Load() (*Config, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, err
	}
	appDir := filepath.Join(configDir, appName)

	path := filepath.Join(appDir, configFile)
	var cfg Config

	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	} else {
		cfg.AppURL = defaultAppURL
		cfg.AuthURL = defaultAuthURL
		if err := os.MkdirAll(appDir, 0700); err != nil {
			return nil, err
		}
		out, _ := json.MarshalIndent(cfg, "", "  ")
		_ = os.WriteFile(path, out, 0600)
		log.Printf("Generated new config at: %s", path)
	}

	if cfg.AppURL == "" {
		cfg.AppURL = defaultAppURL
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}

	cfg.ControlKey, err = credentials.LoadAppSecret("control_key")
	if err != nil {
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, err
		}
		cfg.ControlKey = base64.StdEncoding.EncodeToString(secret)
		// No keyring available means the key is per-run only; retry
		// tokens just stop surviving restarts.
		if err := credentials.StoreAppSecret("control_key", cfg.ControlKey); err != nil {
			log.Printf("Could not persist control key: %v", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STRIDE_APP_URL"); v != "" {
		cfg.AppURL = v
	}
	if v := os.Getenv("STRIDE_AUTH_URL"); v != "" {
		cfg.AuthURL = v
	}
	if v := os.Getenv("STRIDE_AUTH_API_KEY"); v != "" {
		cfg.AuthAPIKey = v
	}
	if v := os.Getenv("STRIDE_THEME"); v != "" {
		cfg.Theme = v
	}
	if v := os.Getenv("STRIDE_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxRetries = n
		}
	}
}
