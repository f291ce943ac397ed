// Package config loads isiscam settings from defaults, a YAML file and the
// environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"runtime"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	yml "gopkg.in/yaml.v2"

	"github.com/pspoerri/isiscam/internal/camera"
)

// FileName is the default configuration file.
const FileName = "isiscam.yml"

// EnvPrefix prefixes environment overrides, e.g. ISISCAM_BROWSE_MAXDIM.
const EnvPrefix = "ISISCAM_"

// Instrument adds a camera to the instrument registry.
type Instrument struct {
	Spacecraft string `koanf:"Spacecraft" yaml:"Spacecraft"`
	Instrument string `koanf:"Instrument" yaml:"Instrument"`
	NaifIKCode int    `koanf:"NaifIKCode" yaml:"NaifIKCode"`

	// Type is a camera type name such as "LineScan" or "Framing".
	Type string `koanf:"Type" yaml:"Type"`
}

// Browse controls browse image rendering.
type Browse struct {
	Format  string `koanf:"Format" yaml:"Format"`
	Quality int    `koanf:"Quality" yaml:"Quality"`
	MaxDim  int    `koanf:"MaxDim" yaml:"MaxDim"`
}

// Config holds the settings shared by the isiscam commands.
type Config struct {
	// Addr is the listen address of camsrv.
	Addr string `koanf:"Addr" yaml:"Addr"`

	// Threads bounds concurrent ISIS jobs.
	Threads int `koanf:"Threads" yaml:"Threads"`
	// Keep retains intermediate cubes.
	Keep bool `koanf:"Keep" yaml:"Keep"`
	// Retries is the number of extra attempts for a failing job.
	Retries int `koanf:"Retries" yaml:"Retries"`
	// ISISRoot overrides $ISISROOT.
	ISISRoot string `koanf:"ISISRoot" yaml:"ISISRoot"`

	Instruments []Instrument `koanf:"Instruments" yaml:"Instruments"`
	Browse      Browse       `koanf:"Browse" yaml:"Browse"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Addr:    ":8000",
		Threads: runtime.NumCPU(),
		Retries: 0,
		Browse: Browse{
			Format:  "png",
			Quality: 85,
			MaxDim:  1024,
		},
	}
}

// Load merges the defaults, the YAML file at path and ISISCAM_ environment
// variables. A missing file is not an error; an empty path skips the file.
func Load(path string) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("loading defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", path, err)
		}
	}

	// Environment names are upper case; map them back onto known keys.
	known := make(map[string]string)
	for _, key := range k.Keys() {
		known[strings.ToLower(key)] = key
	}
	envKey := func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return known[strings.ReplaceAll(s, "_", ".")]
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("loading environment: %w", err)
	}

	var c Config
	if err := k.Unmarshal("", &c); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.Threads < 1 {
		return fmt.Errorf("config: Threads must be at least 1, got %d", c.Threads)
	}
	if c.Retries < 0 {
		return fmt.Errorf("config: Retries must not be negative, got %d", c.Retries)
	}
	if c.Browse.MaxDim < 0 {
		return fmt.Errorf("config: Browse.MaxDim must not be negative, got %d", c.Browse.MaxDim)
	}
	for i, inst := range c.Instruments {
		if _, err := camera.ParseType(inst.Type); err != nil {
			return fmt.Errorf("config: Instruments[%d]: %w", i, err)
		}
		if inst.Instrument == "" && inst.NaifIKCode == 0 {
			return fmt.Errorf("config: Instruments[%d]: need Instrument or NaifIKCode", i)
		}
	}
	return nil
}

// Registry returns the default instrument registry extended with the
// configured instruments. Configured entries take precedence.
func (c Config) Registry() (*camera.Registry, error) {
	reg := camera.DefaultRegistry()
	for i, inst := range c.Instruments {
		t, err := camera.ParseType(inst.Type)
		if err != nil {
			return nil, fmt.Errorf("config: Instruments[%d]: %w", i, err)
		}
		reg.Register(camera.Entry{
			Spacecraft: inst.Spacecraft,
			Instrument: inst.Instrument,
			NaifIKCode: inst.NaifIKCode,
			Type:       t,
		})
	}
	return reg, nil
}

// Write encodes c as YAML.
func Write(w io.Writer, c Config) error {
	return yml.NewEncoder(w).Encode(c)
}
