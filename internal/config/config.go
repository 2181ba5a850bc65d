package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"avatarcall/internal/sdppatch"
	"avatarcall/internal/webrtc"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// DefaultSignalURL is the signaling endpoint used when none is configured.
const DefaultSignalURL = "https://trulience.uk/sdp"

// Config holds the application configuration.
type Config struct {
	Destination   string             `yaml:"destination"`
	SignalURL     string             `yaml:"signal_url"`
	SignalTimeout time.Duration      `yaml:"signal_timeout"`
	SDPPatch      sdppatch.Rules     `yaml:"sdp_patch"`
	ICEServers    []webrtc.ICEServer `yaml:"ice_servers"`
	AudioFile     string             `yaml:"audio_file"`
	VideoOut      string             `yaml:"video_out"`
	LogLevel      string             `yaml:"log_level"`
}

// Default returns the configuration used before any file or variable is applied.
func Default() *Config {
	return &Config{
		SignalURL:     DefaultSignalURL,
		SignalTimeout: 15 * time.Second,
		SDPPatch:      sdppatch.Default(),
		VideoOut:      "-",
		LogLevel:      "info",
	}
}

// Load reads configuration from a .env file (if present), an optional YAML
// file named by AVATAR_CONFIG, and environment variables, in increasing
// order of precedence.
func Load() (*Config, error) {
	// godotenv.Load does not overwrite existing env vars
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("AVATAR_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("AVATAR_DEST"); ok {
		c.Destination = v
	}
	if v, ok := lookup("AVATAR_SIGNAL_URL"); ok && v != "" {
		c.SignalURL = v
	}
	if v, ok := lookup("AVATAR_SIGNAL_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("AVATAR_SIGNAL_TIMEOUT: %w", err)
		}
		c.SignalTimeout = d
	}
	if v, ok := lookup("AVATAR_SDP_PATCH"); ok {
		rules, err := sdppatch.ParseRules(v)
		if err != nil {
			return fmt.Errorf("AVATAR_SDP_PATCH: %w", err)
		}
		c.SDPPatch = rules
	}
	if v, ok := lookup("AVATAR_ICE_SERVERS"); ok {
		c.ICEServers = parseICEServers(v)
	}
	if v, ok := lookup("AVATAR_AUDIO_FILE"); ok {
		c.AudioFile = v
	}
	if v, ok := lookup("AVATAR_VIDEO_OUT"); ok && v != "" {
		c.VideoOut = v
	}
	if v, ok := lookup("AVATAR_LOG_LEVEL"); ok && v != "" {
		c.LogLevel = v
	}
	return nil
}

// parseICEServers turns "stun:a,turn:user:pass@b" into server entries.
func parseICEServers(s string) []webrtc.ICEServer {
	var servers []webrtc.ICEServer
	for _, raw := range strings.Split(s, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		srv := webrtc.ICEServer{URLs: []string{raw}}
		if scheme, rest, ok := strings.Cut(raw, ":"); ok && strings.HasPrefix(scheme, "turn") {
			if creds, host, ok := strings.Cut(rest, "@"); ok {
				user, pass, _ := strings.Cut(creds, ":")
				srv = webrtc.ICEServer{
					URLs:       []string{scheme + ":" + host},
					Username:   user,
					Credential: pass,
				}
			}
		}
		servers = append(servers, srv)
	}
	return servers
}

// Validate checks the fields the call cannot start without.
func (c *Config) Validate() error {
	if c.Destination == "" {
		return fmt.Errorf("AVATAR_DEST environment variable is required")
	}
	if !strings.Contains(c.Destination, ":") {
		return fmt.Errorf("AVATAR_DEST %q must contain ':'", c.Destination)
	}
	if c.SignalURL == "" {
		return fmt.Errorf("AVATAR_SIGNAL_URL must not be empty")
	}
	if c.SignalTimeout < 0 {
		return fmt.Errorf("AVATAR_SIGNAL_TIMEOUT must not be negative")
	}
	return nil
}
