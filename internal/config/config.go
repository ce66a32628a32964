package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/PixPMusic/gopher-deck/internal/ddj400"
	"github.com/PixPMusic/gopher-deck/internal/engine"
)

// DefaultPortName is matched against MIDI port names when none is configured
const DefaultPortName = "DDJ-400"

// EngineConfig locates the mixing engine's OSC endpoint
type EngineConfig struct {
	Host       string `json:"host"`
	SendPort   int    `json:"send_port"`
	ListenAddr string `json:"listen_addr"` // where the engine sends values back
	// QueryTimeoutMS bounds a value lookup; 0 uses the bridge default
	QueryTimeoutMS int `json:"query_timeout_ms,omitempty"`
}

// DeckConfig holds the user-tunable parts of the mapping. Zero values fall
// back to the stock DDJ-400 behaviour.
type DeckConfig struct {
	VinylMode          *bool     `json:"vinyl_mode,omitempty"`
	ScratchRPM         float64   `json:"scratch_rpm,omitempty"`
	ScratchResolution  int       `json:"scratch_resolution,omitempty"`
	BendScale          float64   `json:"bend_scale,omitempty"`
	HighspeedScale     float64   `json:"highspeed_scale,omitempty"`
	LoopAdjustMultiply float64   `json:"loop_adjust_multiply,omitempty"`
	TempoRanges        []float64 `json:"tempo_ranges,omitempty"`
}

// Config holds application configuration
type Config struct {
	FirstLaunchCompleted bool         `json:"first_launch_completed"`
	OpenAtStartup        bool         `json:"open_at_startup"`
	InPort               string       `json:"in_port"`  // MIDI input port name or substring
	OutPort              string       `json:"out_port"` // MIDI output port name or substring
	Engine               EngineConfig `json:"engine"`
	MappingFile          string       `json:"mapping_file,omitempty"` // empty uses the built-in table
	LogLevel             string       `json:"log_level"`
	Deck                 DeckConfig   `json:"deck"`
}

// Default returns the configuration used when no file exists
func Default() *Config {
	return &Config{
		InPort:   DefaultPortName,
		OutPort:  DefaultPortName,
		LogLevel: "info",
		Engine: EngineConfig{
			Host:       "127.0.0.1",
			SendPort:   9000,
			ListenAddr: "127.0.0.1:9001",
		},
	}
}

// configDir returns the platform-appropriate config directory
func configDir() (string, error) {
	configHome, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configHome, "gopher-deck"), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from the default location
func Load() (*Config, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

// LoadFrom reads the config at path, returning defaults if not found
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the controller cannot run with
func (c *Config) Validate() error {
	if c.Engine.SendPort < 0 || c.Engine.SendPort > 65535 {
		return fmt.Errorf("engine send_port %d out of range", c.Engine.SendPort)
	}
	if c.Engine.QueryTimeoutMS < 0 {
		return fmt.Errorf("engine query_timeout_ms %d is negative", c.Engine.QueryTimeoutMS)
	}
	for _, r := range c.Deck.TempoRanges {
		if r <= 0 || r > 1 {
			return fmt.Errorf("tempo range %v must be in (0, 1]", r)
		}
	}
	if c.Deck.ScratchResolution < 0 {
		return fmt.Errorf("scratch_resolution %d is negative", c.Deck.ScratchResolution)
	}
	return nil
}

// Save writes the config to the default location
func (c *Config) Save() error {
	configPath, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(configPath)
}

// SaveTo writes the config to path
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ControllerSettings overlays the configured deck values on the defaults
func (c *Config) ControllerSettings() ddj400.Settings {
	s := ddj400.DefaultSettings()
	d := c.Deck
	if d.VinylMode != nil {
		s.VinylMode = *d.VinylMode
	}
	if d.ScratchRPM > 0 {
		s.ScratchRPM = d.ScratchRPM
	}
	if d.ScratchResolution > 0 {
		s.ScratchResolution = d.ScratchResolution
	}
	if d.BendScale > 0 {
		s.BendScale = d.BendScale
	}
	if d.HighspeedScale > 0 {
		s.HighspeedScale = d.HighspeedScale
	}
	if d.LoopAdjustMultiply > 0 {
		s.LoopAdjustMultiply = d.LoopAdjustMultiply
	}
	if len(d.TempoRanges) > 0 {
		s.TempoRanges = append([]float64(nil), d.TempoRanges...)
	}
	return s
}

// SetVinylMode stores the vinyl mode choice
func (c *Config) SetVinylMode(on bool) {
	c.Deck.VinylMode = &on
}

// OSC returns the engine bridge configuration
func (c *Config) OSC() engine.OSCConfig {
	return engine.OSCConfig{
		Host:         c.Engine.Host,
		SendPort:     c.Engine.SendPort,
		ListenAddr:   c.Engine.ListenAddr,
		QueryTimeout: time.Duration(c.Engine.QueryTimeoutMS) * time.Millisecond,
	}
}
