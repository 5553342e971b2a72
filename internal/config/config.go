// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"analyzer/pkg/bitint"
)

// Core constants that bound the streaming analysis pipeline.
const (
	// Default values for the analysis configuration.
	DefaultDeviceID    = MinDeviceID // System default input device
	DefaultChannels    = 1           // Mono capture
	DefaultSampleRate  = 44100       // CD-quality audio
	DefaultBlockSize   = 1024        // Samples delivered per input callback
	DefaultFrameLength = 2048        // Analysis window, 2x block size
	DefaultHopLength   = 1024        // Window advance, windows overlap by half

	// Pitch estimation defaults.
	DefaultMinFrequency  = 80.0   // Lower bound of the search range (Hz)
	DefaultMaxFrequency  = 1000.0 // Upper bound of the search range (Hz)
	DefaultBandLow       = 75.0   // Aggregate f0 sanity band (Hz)
	DefaultBandHigh      = 1200.0
	DefaultVoicingFloor  = 0.5 // Sub-frame estimates at or below this are dropped
	DefaultNoteSharpness = 12.0

	// Volume defaults. The gain is a device calibration value, not a
	// correctness parameter; quiet interfaces may need 10x or more.
	DefaultGain        = 1.0
	DefaultVolumeScale = 200.0

	// Hardware and processing limits.
	MinDeviceID   = -1     // -1 selects the system default device
	MinSampleRate = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate = 192000 // Maximum supported sample rate (Hz)
	MaxFrameLen   = 8192   // Maximum analysis window (power of 2)
)

// Config is the main application configuration, loaded from YAML with
// environment variable overrides applied on top.
type Config struct {
	Debug    bool   `yaml:"debug"`
	LogLevel string `yaml:"log_level"`

	Audio     AudioConfig     `yaml:"audio"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Notes     NotesConfig     `yaml:"notes"`
	Recording RecordingConfig `yaml:"recording"`
	Transport TransportConfig `yaml:"transport"`
}

// AudioConfig holds capture settings.
type AudioConfig struct {
	InputDevice int     `yaml:"input_device"` // PortAudio device index, -1 for default
	SampleRate  float64 `yaml:"sample_rate"`  // Hz
	BlockSize   int     `yaml:"block_size"`   // Samples per input callback
	Channels    int     `yaml:"channels"`     // 1 for mono
	LowLatency  bool    `yaml:"low_latency"`  // Request low latency from the device
	Gain        float64 `yaml:"gain"`         // Input gain multiplier, applied before RMS
	AutoSelect  bool    `yaml:"auto_select"`  // Reuse the persisted device at startup
}

// AnalysisConfig holds the framing and pitch estimation settings.
type AnalysisConfig struct {
	FrameLength  int           `yaml:"frame_length"`  // Analysis window in samples
	HopLength    int           `yaml:"hop_length"`    // Window advance in samples
	MinFrequency float64       `yaml:"min_frequency"` // Pitch search lower bound (Hz)
	MaxFrequency float64       `yaml:"max_frequency"` // Pitch search upper bound (Hz)
	BandLow      float64       `yaml:"band_low"`      // Aggregate f0 sanity band (Hz)
	BandHigh     float64       `yaml:"band_high"`
	VoicingFloor float64       `yaml:"voicing_floor"` // Sub-frame voicing cutoff [0,1]
	VolumeScale  float64       `yaml:"volume_scale"`  // RMS to percent multiplier
	GateFloor    float64       `yaml:"gate_floor"`    // Peak amplitude below this skips estimation
	PollInterval time.Duration `yaml:"poll_interval"` // Consumer idle sleep
}

// NotesConfig holds the note mapping settings.
type NotesConfig struct {
	TablePath string  `yaml:"table_path"` // Optional YAML note table, builtin fallback
	Sharpness float64 `yaml:"sharpness"`  // Confidence falloff constant K
}

// RecordingConfig holds the raw capture recording settings.
type RecordingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	OutputFile string `yaml:"output_file"`
	BitDepth   int    `yaml:"bit_depth"`
}

// TransportConfig holds the presentation publishing settings.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`
	WebSocketAddr    string        `yaml:"websocket_addr"`
	UDPEnabled       bool          `yaml:"udp_enabled"`
	UDPTargetAddress string        `yaml:"udp_target_address"`
	PublishInterval  time.Duration `yaml:"publish_interval"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Debug:    false,
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice: DefaultDeviceID,
			SampleRate:  DefaultSampleRate,
			BlockSize:   DefaultBlockSize,
			Channels:    DefaultChannels,
			LowLatency:  false,
			Gain:        DefaultGain,
			AutoSelect:  true,
		},
		Analysis: AnalysisConfig{
			FrameLength:  DefaultFrameLength,
			HopLength:    DefaultHopLength,
			MinFrequency: DefaultMinFrequency,
			MaxFrequency: DefaultMaxFrequency,
			BandLow:      DefaultBandLow,
			BandHigh:     DefaultBandHigh,
			VoicingFloor: DefaultVoicingFloor,
			VolumeScale:  DefaultVolumeScale,
			GateFloor:    0.001,
			PollInterval: 10 * time.Millisecond,
		},
		Notes: NotesConfig{
			TablePath: "",
			Sharpness: DefaultNoteSharpness,
		},
		Recording: RecordingConfig{
			Enabled:    false,
			OutputFile: "",
			BitDepth:   16,
		},
		Transport: TransportConfig{
			WebSocketEnabled: false,
			WebSocketAddr:    ":8080",
			UDPEnabled:       false,
			UDPTargetAddress: "127.0.0.1:9090",
			PublishInterval:  50 * time.Millisecond, // ~20Hz presentation rate
		},
	}
}

// Load reads configuration from a YAML file. If path is empty, it checks
// "config.yaml" in the working directory and falls back to defaults when no
// file exists. Environment overrides are applied after file loading, then the
// result is validated.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		} else {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the loaded configuration for values the pipeline cannot
// operate with. The framing constraint matters most: a frame longer than the
// ring buffer can never be served, so the buffer is sized from FrameLength
// and FrameLength itself is bounded here.
func (c *Config) Validate() error {
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		return fmt.Errorf("sample_rate %.0f out of range [%d, %d]", c.Audio.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if c.Audio.BlockSize <= 0 {
		return fmt.Errorf("block_size must be positive, got %d", c.Audio.BlockSize)
	}
	if c.Audio.Channels < 1 {
		return fmt.Errorf("channels must be at least 1, got %d", c.Audio.Channels)
	}
	if !bitint.IsPowerOfTwo(c.Analysis.FrameLength) || c.Analysis.FrameLength > MaxFrameLen {
		return fmt.Errorf("frame_length must be a power of 2 <= %d, got %d", MaxFrameLen, c.Analysis.FrameLength)
	}
	if c.Analysis.HopLength <= 0 || c.Analysis.HopLength > c.Analysis.FrameLength {
		return fmt.Errorf("hop_length must be in (0, frame_length], got %d", c.Analysis.HopLength)
	}
	if c.Analysis.MinFrequency <= 0 || c.Analysis.MaxFrequency <= c.Analysis.MinFrequency {
		return fmt.Errorf("invalid frequency range [%.1f, %.1f]", c.Analysis.MinFrequency, c.Analysis.MaxFrequency)
	}
	// The pitch tracker operates on sub-frames of frame_length/2 and can
	// search lags up to three quarters of a sub-frame. A min_frequency whose
	// period exceeds that span could never be resolved.
	if maxLag := math.Ceil(c.Audio.SampleRate/c.Analysis.MinFrequency) + 2; maxLag > 3.0*float64(c.Analysis.FrameLength)/8.0 {
		return fmt.Errorf("min_frequency %.1f Hz needs a %.0f-sample lag, more than frame_length %d can resolve",
			c.Analysis.MinFrequency, maxLag, c.Analysis.FrameLength)
	}
	if c.Analysis.VoicingFloor < 0 || c.Analysis.VoicingFloor > 1 {
		return fmt.Errorf("voicing_floor must be in [0, 1], got %.2f", c.Analysis.VoicingFloor)
	}
	if c.Audio.Gain <= 0 {
		return fmt.Errorf("gain must be positive, got %.3f", c.Audio.Gain)
	}
	if c.Analysis.PollInterval <= 0 {
		c.Analysis.PollInterval = 10 * time.Millisecond
	}
	return nil
}

// applyEnvOverrides applies ANALYZER_* environment variables on top of the
// loaded configuration.
func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("ANALYZER_DEBUG"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Debug = b
		}
	}
	if val, ok := os.LookupEnv("ANALYZER_DEVICE"); ok {
		if id, err := strconv.Atoi(val); err == nil {
			c.Audio.InputDevice = id
		}
	}
	if val, ok := os.LookupEnv("ANALYZER_GAIN"); ok {
		if g, err := strconv.ParseFloat(val, 64); err == nil && g > 0 {
			c.Audio.Gain = g
		}
	}
	if val, ok := os.LookupEnv("ANALYZER_WS_ADDR"); ok {
		c.Transport.WebSocketAddr = val
		c.Transport.WebSocketEnabled = true
	}
	if val, ok := os.LookupEnv("ANALYZER_PUBLISH_INTERVAL"); ok {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			c.Transport.PublishInterval = d
		}
	}
}
