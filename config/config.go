// Package config loads rangeclip settings.
// Precedence, lowest first: defaults, YAML file, .env file, RANGECLIP_*
// environment variables. Command-line flags are applied by cmd on top.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultMaxSpan         = 90.0
	DefaultMinSpan         = 1.0 / 30
	DefaultOverviewCount   = 5
	DefaultPreviewInterval = 10.0
	DefaultDebounce        = 300 * time.Millisecond
	DefaultSeekTimeout     = 5 * time.Second
	DefaultTickInterval    = 250 * time.Millisecond
	DefaultFlushTimeout    = 5 * time.Second
	DefaultThumbWidth      = 320
	DefaultThumbQuality    = 80
	DefaultLogLevel        = "info"
	DefaultMpvSocket       = "/tmp/rangeclip-mpv.sock"

	// EnvConfig names the YAML file when --config is not given.
	EnvConfig = "RANGECLIP_CONFIG"
	// EnvFile names the dotenv file; ".env" in the working directory otherwise.
	EnvFile = "RANGECLIP_ENV_FILE"

	DBFilename  = "rangeclip.db"
	LogFilename = "rangeclip.log"
)

// Config is the full settings set.
type Config struct {
	MaxSpan         float64       `yaml:"max_span"`
	MinSpan         float64       `yaml:"min_span"`
	OverviewCount   int           `yaml:"overview_count"`
	PreviewInterval float64       `yaml:"preview_interval"`
	Debounce        time.Duration `yaml:"debounce"`
	SeekTimeout     time.Duration `yaml:"seek_timeout"`
	TickInterval    time.Duration `yaml:"tick_interval"`
	FlushTimeout    time.Duration `yaml:"flush_timeout"`
	ThumbWidth      int           `yaml:"thumb_width"`
	ThumbQuality    int           `yaml:"thumb_quality"`
	// OutputDir is where exports land; next to the source when empty.
	OutputDir    string   `yaml:"output_dir"`
	DataDir      string   `yaml:"data_dir"`
	MpvBinary    string   `yaml:"mpv_binary"`
	MpvSocket    string   `yaml:"mpv_socket"`
	MpvArgs      []string `yaml:"mpv_args"`
	FfmpegBinary string   `yaml:"ffmpeg_binary"`
	LogLevel     string   `yaml:"log_level"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		MaxSpan:         DefaultMaxSpan,
		MinSpan:         DefaultMinSpan,
		OverviewCount:   DefaultOverviewCount,
		PreviewInterval: DefaultPreviewInterval,
		Debounce:        DefaultDebounce,
		SeekTimeout:     DefaultSeekTimeout,
		TickInterval:    DefaultTickInterval,
		FlushTimeout:    DefaultFlushTimeout,
		ThumbWidth:      DefaultThumbWidth,
		ThumbQuality:    DefaultThumbQuality,
		DataDir:         defaultDataDir(),
		MpvSocket:       DefaultMpvSocket,
		LogLevel:        DefaultLogLevel,
	}
}

// DefaultPath is ~/.config/rangeclip/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "rangeclip", "config.yaml")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".rangeclip"
	}
	return filepath.Join(home, ".rangeclip")
}

// Load builds the settings. An explicit path (argument or RANGECLIP_CONFIG)
// must exist; the default path is optional.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfig)
		explicit = path != ""
	}
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return Config{}, err
			}
		}
	}

	envFile := os.Getenv(EnvFile)
	if envFile == "" {
		envFile = ".env"
	}
	// godotenv never overrides variables already set in the environment.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides fields from RANGECLIP_* variables.
func (c *Config) applyEnv() error {
	floats := map[string]*float64{
		"RANGECLIP_MAX_SPAN":         &c.MaxSpan,
		"RANGECLIP_MIN_SPAN":         &c.MinSpan,
		"RANGECLIP_PREVIEW_INTERVAL": &c.PreviewInterval,
	}
	for name, dst := range floats {
		if v := os.Getenv(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", name, err)
			}
			*dst = f
		}
	}

	ints := map[string]*int{
		"RANGECLIP_OVERVIEW_COUNT": &c.OverviewCount,
		"RANGECLIP_THUMB_WIDTH":    &c.ThumbWidth,
		"RANGECLIP_THUMB_QUALITY":  &c.ThumbQuality,
	}
	for name, dst := range ints {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", name, err)
			}
			*dst = n
		}
	}

	durations := map[string]*time.Duration{
		"RANGECLIP_DEBOUNCE":      &c.Debounce,
		"RANGECLIP_SEEK_TIMEOUT":  &c.SeekTimeout,
		"RANGECLIP_TICK_INTERVAL": &c.TickInterval,
		"RANGECLIP_FLUSH_TIMEOUT": &c.FlushTimeout,
	}
	for name, dst := range durations {
		if v := os.Getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", name, err)
			}
			*dst = d
		}
	}

	strs := map[string]*string{
		"RANGECLIP_OUTPUT_DIR":    &c.OutputDir,
		"RANGECLIP_DATA_DIR":      &c.DataDir,
		"RANGECLIP_MPV_BINARY":    &c.MpvBinary,
		"RANGECLIP_MPV_SOCKET":    &c.MpvSocket,
		"RANGECLIP_FFMPEG_BINARY": &c.FfmpegBinary,
		"RANGECLIP_LOG_LEVEL":     &c.LogLevel,
	}
	for name, dst := range strs {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("RANGECLIP_MPV_ARGS"); v != "" {
		c.MpvArgs = strings.Fields(v)
	}
	return nil
}

// Validate rejects settings the pipelines cannot run with.
func (c Config) Validate() error {
	var errs []error
	if !(c.MaxSpan > 0) {
		errs = append(errs, fmt.Errorf("max_span must be positive, got %v", c.MaxSpan))
	}
	if !(c.MinSpan > 0) || c.MinSpan > c.MaxSpan {
		errs = append(errs, fmt.Errorf("min_span must be in (0, max_span], got %v", c.MinSpan))
	}
	if c.OverviewCount < 1 {
		errs = append(errs, fmt.Errorf("overview_count must be at least 1, got %d", c.OverviewCount))
	}
	if !(c.PreviewInterval > 0) {
		errs = append(errs, fmt.Errorf("preview_interval must be positive, got %v", c.PreviewInterval))
	}
	for name, d := range map[string]time.Duration{
		"debounce":      c.Debounce,
		"seek_timeout":  c.SeekTimeout,
		"tick_interval": c.TickInterval,
		"flush_timeout": c.FlushTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	if c.ThumbWidth < 1 {
		errs = append(errs, fmt.Errorf("thumb_width must be at least 1, got %d", c.ThumbWidth))
	}
	if c.ThumbQuality < 1 || c.ThumbQuality > 100 {
		errs = append(errs, fmt.Errorf("thumb_quality must be in [1, 100], got %d", c.ThumbQuality))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir must be set"))
	}
	return errors.Join(errs...)
}

// DBPath returns the export journal location.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, DBFilename)
}

// LogPath returns the TUI log file location.
func (c Config) LogPath() string {
	return filepath.Join(c.DataDir, LogFilename)
}
