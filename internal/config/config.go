package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/watermark-remover/internal/inpaint"
	"github.com/ironsheep/watermark-remover/internal/ocr"
	"github.com/ironsheep/watermark-remover/internal/watermark"
)

// EnvPrefix prefixes every environment variable the tool reads.
const EnvPrefix = "WMREMOVE_"

// OCRConfig enables the text hint layer.
type OCRConfig struct {
	Enabled     bool `yaml:"enabled"`
	ocr.Options `yaml:",inline"`
}

// Config is the runtime configuration of the CLI and the MCP server.
type Config struct {
	// Params are the removal parameters.
	Params watermark.Params `yaml:",inline"`

	// Filler names the inpaint strategy.
	Filler string `yaml:"filler"`

	// OCR configures the optional text hint layer.
	OCR OCRConfig `yaml:"ocr"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Params:   watermark.DefaultParams(),
		Filler:   inpaint.DefaultName,
		OCR:      OCRConfig{Options: ocr.DefaultOptions()},
		LogLevel: "info",
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file
// keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from WMREMOVE_* variables looked up with
// lookup (os.LookupEnv in production).
//
// Recognized variables: LOG_LEVEL, INPAINT_RADIUS, ALPHA_THRESHOLD,
// WHITE_THRESHOLD, WHITE_METRIC, FILLER.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}
	ints := []struct {
		name string
		dst  *int
	}{
		{"INPAINT_RADIUS", &c.Params.InpaintRadius},
		{"ALPHA_THRESHOLD", &c.Params.AlphaThreshold},
		{"WHITE_THRESHOLD", &c.Params.WhiteThreshold},
	}
	for _, iv := range ints {
		v, ok := get(iv.name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s=%q: %w", EnvPrefix, iv.name, v, err)
		}
		*iv.dst = n
	}
	if v, ok := get("WHITE_METRIC"); ok {
		c.Params.WhiteMetric = watermark.WhiteMetric(v)
	}
	if v, ok := get("FILLER"); ok {
		c.Filler = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	return nil
}

// Validate reports settings that cannot be normalized away.
func (c Config) Validate() error {
	if _, ok := watermark.ParseWhiteMetric(string(c.Params.WhiteMetric)); !ok {
		return fmt.Errorf("unknown white metric %q (want luma, min or lightness)", c.Params.WhiteMetric)
	}
	if _, err := inpaint.New(c.Filler); err != nil {
		return err
	}
	return nil
}
