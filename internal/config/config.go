package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"image-compressor-go/internal/compressor"

	"github.com/spf13/viper"
)

// Config represents the main configuration structure
type Config struct {
	OutputDirectory string         `mapstructure:"output_directory"`
	InputDirectory  string         `mapstructure:"input_directory"`
	Files           []string       `mapstructure:"files"`
	Quality         string         `mapstructure:"quality"`
	Scale           ScaleConfig    `mapstructure:"scale"`
	Output          OutputConfig   `mapstructure:"output"`
	Metadata        MetadataConfig `mapstructure:"metadata"`
	Server          ServerConfig   `mapstructure:"server"`
	Logging         LoggingConfig  `mapstructure:"logging"`

	scale   compressor.Scale
	quality compressor.Quality
}

// ScaleConfig holds either a ratio or a WIDTHxHEIGHT dimension, never both
type ScaleConfig struct {
	Ratio     *float64 `mapstructure:"ratio"`
	Dimension string   `mapstructure:"dimension"`
}

// OutputConfig contains encoder settings
type OutputConfig struct {
	JPEGQuality int `mapstructure:"jpeg_quality"`
}

// MetadataConfig controls copying EXIF tags into the resized images
type MetadataConfig struct {
	Preserve bool `mapstructure:"preserve"`
}

// ServerConfig contains the HTTP API settings
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
	JSON       bool   `mapstructure:"json"`
}

// ValidationError is returned for configuration that cannot be used to start a run
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// IsValidationError reports whether err is or wraps a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// DefaultDimension is used when neither a ratio nor a dimension is configured
const DefaultDimension = "100x100"

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		OutputDirectory: "compressed",
		Quality:         "fastest",
		Output: OutputConfig{
			JPEGQuality: 95,
		},
		Metadata: MetadataConfig{
			Preserve: false,
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level:      "info",
			FilePath:   "compressor.log",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     30,
			Compress:   true,
		},
	}
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config file in current directory and home directory
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.compressor")
		v.AddConfigPath("/etc/compressor")
	}

	// Enable environment variable support
	v.SetEnvPrefix("COMPRESSOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return config, nil
}

// bindEnvKeys registers keys so Unmarshal sees values only present in the environment
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"output_directory", "input_directory", "quality",
		"scale.ratio", "scale.dimension",
		"output.jpeg_quality", "metadata.preserve", "server.port",
		"logging.level", "logging.file_path", "logging.json",
	} {
		_ = v.BindEnv(key)
	}
}

// Validate validates the configuration and resolves the typed scale and quality
func (c *Config) Validate() error {
	if c.OutputDirectory == "" {
		c.OutputDirectory = "compressed"
	}

	if c.InputDirectory != "" && len(c.Files) > 0 {
		return &ValidationError{Field: "input", Message: "input directory and file list are mutually exclusive"}
	}

	quality, err := compressor.ParseQuality(c.Quality)
	if err != nil {
		return &ValidationError{Field: "quality", Message: err.Error()}
	}
	c.quality = quality

	scale, err := c.Scale.resolve()
	if err != nil {
		return err
	}
	c.scale = scale

	if c.Output.JPEGQuality < 1 || c.Output.JPEGQuality > 100 {
		return &ValidationError{Field: "output.jpeg_quality", Message: fmt.Sprintf("%d is outside 1-100", c.Output.JPEGQuality)}
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return &ValidationError{Field: "logging.level", Message: fmt.Sprintf("%s (valid: debug, info, warn, error)", c.Logging.Level)}
	}

	return nil
}

func (s ScaleConfig) resolve() (compressor.Scale, error) {
	if s.Ratio != nil && s.Dimension != "" {
		return compressor.Scale{}, &ValidationError{Field: "scale", Message: "ratio and dimension are mutually exclusive"}
	}

	if s.Ratio != nil {
		r := *s.Ratio
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return compressor.Scale{}, &ValidationError{Field: "scale.ratio", Message: fmt.Sprintf("%g is not a finite number", r)}
		}
		if r <= 0 {
			return compressor.Scale{}, &ValidationError{Field: "scale.ratio", Message: fmt.Sprintf("%g must be greater than zero", r)}
		}
		return compressor.Ratio(*s.Ratio), nil
	}

	dim := s.Dimension
	if dim == "" {
		dim = DefaultDimension
	}
	scale, err := compressor.ParseDimension(dim)
	if err != nil {
		return compressor.Scale{}, &ValidationError{Field: "scale.dimension", Message: err.Error()}
	}
	return scale, nil
}

// GetScale returns the scale resolved by Validate
func (c *Config) GetScale() compressor.Scale {
	return c.scale
}

// GetQuality returns the quality resolved by Validate
func (c *Config) GetQuality() compressor.Quality {
	return c.quality
}

// IsDirectoryMode returns true if images are discovered from a directory
func (c *Config) IsDirectoryMode() bool {
	return len(c.Files) == 0
}

// GetInputDirectory returns the directory to scan, defaulting to the working directory
func (c *Config) GetInputDirectory() string {
	if c.InputDirectory != "" {
		return c.InputDirectory
	}
	return "."
}
