package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/menta2k/image-tracer/pkg/schedule"
	"github.com/menta2k/image-tracer/pkg/types"
)

// Primary engine names
const (
	EnginePotrace  = "potrace"
	EngineOllama   = "ollama"
	EngineLlamaCpp = "llamacpp"
	EngineNone     = "none"
)

// Config holds the application configuration
type Config struct {
	Trace    TraceConfig     `json:"trace" toml:"trace" yaml:"trace"`
	Engine   EngineConfig    `json:"engine" toml:"engine" yaml:"engine"`
	Schedule schedule.Config `json:"schedule" toml:"schedule" yaml:"schedule"`
	Input    InputConfig     `json:"input" toml:"input" yaml:"input"`
	Output   OutputConfig    `json:"output" toml:"output" yaml:"output"`
}

// TraceConfig holds the trace settings
type TraceConfig struct {
	Threshold    int     `json:"threshold" toml:"threshold" yaml:"threshold"`
	TurdSize     int     `json:"turd_size" toml:"turd_size" yaml:"turd_size"`
	AlphaMax     float64 `json:"alpha_max" toml:"alpha_max" yaml:"alpha_max"`
	OptCurve     bool    `json:"opt_curve" toml:"opt_curve" yaml:"opt_curve"`
	OptTolerance float64 `json:"opt_tolerance" toml:"opt_tolerance" yaml:"opt_tolerance"`
	TurnPolicy   string  `json:"turn_policy" toml:"turn_policy" yaml:"turn_policy"`
	BlackOnWhite bool    `json:"black_on_white" toml:"black_on_white" yaml:"black_on_white"`
	Color        string  `json:"color" toml:"color" yaml:"color"`
	FillColor    string  `json:"fill_color" toml:"fill_color" yaml:"fill_color"`
	StrokeWidth  float64 `json:"stroke_width" toml:"stroke_width" yaml:"stroke_width"`
}

// EngineConfig selects and configures the primary engine
type EngineConfig struct {
	Primary        string `json:"primary" toml:"primary" yaml:"primary"`
	PotracePath    string `json:"potrace_path" toml:"potrace_path" yaml:"potrace_path"`
	URL            string `json:"url" toml:"url" yaml:"url"`
	Model          string `json:"model" toml:"model" yaml:"model"`
	TimeoutSeconds int    `json:"timeout_seconds" toml:"timeout_seconds" yaml:"timeout_seconds"`
}

// InputConfig holds configuration for image loading
type InputConfig struct {
	MaxDimension     int      `json:"max_dimension" toml:"max_dimension" yaml:"max_dimension"`
	SupportedFormats []string `json:"supported_formats" toml:"supported_formats" yaml:"supported_formats"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	OutputDir    string `json:"output_dir" toml:"output_dir" yaml:"output_dir"`
	Prefix       string `json:"prefix" toml:"prefix" yaml:"prefix"`
	Suffix       string `json:"suffix" toml:"suffix" yaml:"suffix"`
	DebugFormat  string `json:"debug_format" toml:"debug_format" yaml:"debug_format"`
	DebugQuality int    `json:"debug_quality" toml:"debug_quality" yaml:"debug_quality"`
}

// Default returns a configuration with default values
func Default() *Config {
	s := types.DefaultSettings()
	return &Config{
		Trace: TraceConfig{
			Threshold:    int(s.Threshold),
			TurdSize:     s.TurdSize,
			AlphaMax:     s.AlphaMax,
			OptCurve:     s.OptCurve,
			OptTolerance: s.OptTolerance,
			TurnPolicy:   s.TurnPolicy.String(),
			BlackOnWhite: s.BlackOnWhite,
			Color:        s.Color,
			FillColor:    s.FillColor,
			StrokeWidth:  s.StrokeWidth,
		},
		Engine: EngineConfig{
			Primary:        EnginePotrace,
			PotracePath:    "potrace",
			Model:          "qwen2.5vl:7b",
			TimeoutSeconds: 60,
		},
		Schedule: schedule.DefaultConfig(),
		Input: InputConfig{
			MaxDimension:     0,
			SupportedFormats: []string{"jpg", "jpeg", "png", "gif", "bmp", "webp"},
		},
		Output: OutputConfig{
			OutputDir:    "./output",
			Prefix:       "",
			Suffix:       "",
			DebugFormat:  "png",
			DebugQuality: 92,
		},
	}
}

// LoadFromFile loads configuration from a JSON, TOML or YAML file, picked by
// extension. Fields missing from the file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	switch formatOf(filename) {
	case "toml":
		err = toml.Unmarshal(data, config)
	case "yaml":
		err = yaml.Unmarshal(data, config)
	default:
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration in the format matching the file extension
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	switch formatOf(filename) {
	case "toml":
		data, err = toml.Marshal(c)
	case "yaml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Trace.Threshold < 0 || c.Trace.Threshold > 255 {
		return fmt.Errorf("trace.threshold must be between 0 and 255")
	}

	if _, err := types.ParseTurnPolicy(c.Trace.TurnPolicy); err != nil {
		return fmt.Errorf("trace.turn_policy: %w", err)
	}

	settings, _ := c.Settings()
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("trace: %w", err)
	}

	switch c.Engine.Primary {
	case EnginePotrace, EngineOllama, EngineLlamaCpp, EngineNone:
	default:
		return fmt.Errorf("engine.primary must be one of potrace, ollama, llamacpp, none (got %q)", c.Engine.Primary)
	}

	if c.Engine.TimeoutSeconds < 0 {
		return fmt.Errorf("engine.timeout_seconds must not be negative")
	}

	if c.Schedule.BinarizeRows < 0 || c.Schedule.ScanRows < 0 {
		return fmt.Errorf("schedule rows must not be negative")
	}

	if c.Input.MaxDimension < 0 {
		return fmt.Errorf("input.max_dimension must not be negative")
	}

	if len(c.Input.SupportedFormats) == 0 {
		return fmt.Errorf("input.supported_formats cannot be empty")
	}

	if c.Output.DebugQuality < 1 || c.Output.DebugQuality > 100 {
		return fmt.Errorf("output.debug_quality must be between 1 and 100")
	}

	return nil
}

// Settings converts the trace section into engine settings
func (c *Config) Settings() (types.Settings, error) {
	policy, err := types.ParseTurnPolicy(c.Trace.TurnPolicy)
	if err != nil {
		return types.Settings{}, err
	}
	return types.Settings{
		Threshold:    uint8(max(0, min(255, c.Trace.Threshold))),
		TurdSize:     c.Trace.TurdSize,
		AlphaMax:     c.Trace.AlphaMax,
		OptCurve:     c.Trace.OptCurve,
		OptTolerance: c.Trace.OptTolerance,
		TurnPolicy:   policy,
		BlackOnWhite: c.Trace.BlackOnWhite,
		Color:        c.Trace.Color,
		FillColor:    c.Trace.FillColor,
		StrokeWidth:  c.Trace.StrokeWidth,
	}, nil
}

// Timeout returns the primary engine timeout
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Engine.TimeoutSeconds) * time.Second
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "image-tracer", "config.json")
}

func formatOf(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".toml":
		return "toml"
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}
