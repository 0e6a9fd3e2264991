// Package config handles impostor tool configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	impostor "github.com/flywave/go-impostor"
	"github.com/flywave/go-impostor/mst"
)

// Config holds all tool settings.
type Config struct {
	Impostor impostor.Options `yaml:"impostor"`
	Render   RenderConfig     `yaml:"render"`
	Output   OutputConfig     `yaml:"output"`
	Logging  LoggingConfig    `yaml:"logging"`
}

// RenderConfig holds software rasterizer settings.
type RenderConfig struct {
	Supersample int     `yaml:"supersample"`
	Ambient     float64 `yaml:"ambient"`
	Background  string  `yaml:"background"` // #rrggbb or #rrggbbaa, empty for transparent
}

// OutputConfig holds where and how builds are written.
type OutputConfig struct {
	Dir     string   `yaml:"dir"`
	Formats []string `yaml:"formats"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	File    string `yaml:"file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	raster := impostor.DefaultRasterOptions()
	return &Config{
		Impostor: impostor.DefaultOptions(),
		Render: RenderConfig{
			Supersample: raster.Supersample,
			Ambient:     raster.Ambient,
		},
		Output: OutputConfig{
			Dir:     "out",
			Formats: []string{mst.FormatMST, mst.FormatGLB, mst.ImagePNG},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// ParseColor reads #rrggbb or #rrggbbaa.
func ParseColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return color.RGBA{}, fmt.Errorf("colour %q: want #rrggbb or #rrggbbaa", s)
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("colour %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// RasterOptions converts the render section.
func (r RenderConfig) RasterOptions() (impostor.RasterOptions, error) {
	opts := impostor.RasterOptions{Supersample: r.Supersample, Ambient: r.Ambient}
	if r.Background != "" {
		bg, err := ParseColor(r.Background)
		if err != nil {
			return opts, err
		}
		opts.Background = bg
	}
	return opts, nil
}

var levels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs error
	if err := c.Impostor.Validate(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("impostor: %w", err))
	}
	if c.Render.Supersample < 1 || c.Render.Supersample > 8 {
		errs = multierr.Append(errs, fmt.Errorf("render: supersample %d outside [1,8]", c.Render.Supersample))
	}
	if c.Render.Ambient < 0 || c.Render.Ambient > 1 {
		errs = multierr.Append(errs, fmt.Errorf("render: ambient %g outside [0,1]", c.Render.Ambient))
	}
	if _, err := c.Render.RasterOptions(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("render: %w", err))
	}
	if c.Output.Dir == "" {
		errs = multierr.Append(errs, errors.New("output: dir is empty"))
	}
	if len(c.Output.Formats) == 0 {
		errs = multierr.Append(errs, errors.New("output: no formats"))
	}
	for _, f := range c.Output.Formats {
		if !mst.IsOutputFormat(f) {
			errs = multierr.Append(errs, fmt.Errorf("output: unknown format %q", f))
		}
	}
	if !levels[c.Logging.Level] {
		errs = multierr.Append(errs, fmt.Errorf("logging: unknown level %q", c.Logging.Level))
	}
	return errs
}
