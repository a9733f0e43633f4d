// Package config loads blobstack run configuration from TOML, YAML or JSON.
//
// A configuration file has up to six sections:
//
//	[synth]    cell count, shape, dtype, seed and blob parameters
//	[chunk]    chunk size for the batch driver
//	[output]   stack output path and compression
//	[regions]  region table outputs (CSV, SQLite, adjacency graph)
//	[roi]      ROI set output directory and name
//	[logging]  log level and optional rotating log file
//
// Every file is decoded into a generic document first and validated against
// an embedded JSON schema, so TOML, YAML and JSON inputs are checked by the
// same rules. Relative paths are resolved against the directory of the
// configuration file.
package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/blobstack/pkg/errors"
	"github.com/matzehuels/blobstack/pkg/pipeline"
	"github.com/matzehuels/blobstack/pkg/synth"
	"github.com/matzehuels/blobstack/pkg/volume"
)

//go:embed schema.json
var schemaJSON string

// Config is a complete run configuration.
type Config struct {
	Synth   SynthConfig   `json:"synth"`
	Chunk   ChunkConfig   `json:"chunk"`
	Output  OutputConfig  `json:"output"`
	Regions RegionsConfig `json:"regions"`
	ROI     ROIConfig     `json:"roi"`
	Logging LogConfig     `json:"logging"`
}

// SynthConfig is the [synth] section.
type SynthConfig struct {
	NumCells int          `json:"num_cells"`
	Shape    []int        `json:"shape"` // x, y, z
	DType    string       `json:"dtype"`
	Seed     uint64       `json:"seed"`
	Params   synth.Params `json:"params"`
}

// ChunkConfig is the [chunk] section. Size 0 disables chunking.
type ChunkConfig struct {
	Size int `json:"size"`
}

// OutputConfig is the [output] section.
type OutputConfig struct {
	Path     string `json:"path"`
	Compress bool   `json:"compress"`
}

// RegionsConfig is the [regions] section. Empty paths skip that output.
type RegionsConfig struct {
	CSV       string `json:"csv"`
	SQLite    string `json:"sqlite"`
	Graph     string `json:"graph"`
	Resegment bool   `json:"resegment"`
}

// ROIConfig is the [roi] section. An empty Dir skips ROI export.
type ROIConfig struct {
	Dir  string `json:"dir"`
	Name string `json:"name"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	s := pipeline.DefaultShape
	return Config{
		Synth: SynthConfig{
			NumCells: pipeline.DefaultNumCells,
			Shape:    []int{s.X, s.Y, s.Z},
			DType:    pipeline.DefaultDType.String(),
			Seed:     pipeline.DefaultSeed,
			Params:   synth.DefaultParams(),
		},
		Output:  OutputConfig{Path: "blobs.tif"},
		ROI:     ROIConfig{Name: "roi"},
		Logging: LogConfig{Level: "info"},
	}
}

// Load reads, validates and decodes the configuration file at path. The
// format follows the extension: .toml, .yaml/.yml or .json. Keys absent from
// the file keep their Default values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "config %s", path)
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data, Format(path))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.resolvePaths(filepath.Dir(path)); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Format returns the format name for a file extension: "toml", "yaml" or
// "json". Unknown extensions are treated as TOML.
func Format(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	default:
		return "toml"
	}
}

// Parse decodes data in the given format, validates it and applies it over
// Default.
func Parse(data []byte, format string) (Config, error) {
	doc := map[string]any{}
	var err error
	switch format {
	case "toml":
		err = toml.Unmarshal(data, &doc)
	case "yaml":
		err = yaml.Unmarshal(data, &doc)
	case "json":
		err = json.Unmarshal(data, &doc)
	default:
		return Config{}, errors.New(errors.ErrCodeInvalidConfig, "unknown config format %q", format)
	}
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode %s", format)
	}

	// Normalize to JSON values so every format is validated and decoded alike.
	raw, err := json.Marshal(doc)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "normalize %s", format)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "normalize %s", format)
	}
	if err := Validate(generic); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode %s", format)
	}
	return cfg, nil
}

// Validate checks a decoded JSON document against the configuration schema.
func Validate(doc any) error {
	sch, err := jsonschema.CompileString("blobstack.schema.json", schemaJSON)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "compile config schema")
	}
	if err := sch.Validate(doc); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "invalid configuration")
	}
	return nil
}

// ToOptions maps the configuration onto pipeline options.
func (c Config) ToOptions() (pipeline.Options, error) {
	shape, err := volume.ShapeOf(c.Synth.Shape)
	if err != nil {
		return pipeline.Options{}, err
	}
	dtype, err := volume.ParseDType(c.Synth.DType)
	if err != nil {
		return pipeline.Options{}, err
	}
	opts := pipeline.Options{
		NumCells:  c.Synth.NumCells,
		Shape:     shape,
		DType:     dtype,
		Seed:      c.Synth.Seed,
		ChunkSize: c.Chunk.Size,
		Params:    c.Synth.Params,
		Resegment: c.Regions.Resegment,
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return pipeline.Options{}, err
	}
	return opts, nil
}

// resolvePaths makes every relative output path absolute with respect to dir.
func (c *Config) resolvePaths(dir string) error {
	for _, p := range []*string{
		&c.Output.Path,
		&c.Regions.CSV,
		&c.Regions.SQLite,
		&c.Regions.Graph,
		&c.ROI.Dir,
		&c.Logging.Logfile,
	} {
		abs, err := toAbsolute(*p, dir)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve %q", *p)
		}
		*p = abs
	}
	return nil
}

func toAbsolute(p, dir string) (string, error) {
	if p == "" || filepath.IsAbs(p) {
		return p, nil
	}
	return filepath.Abs(filepath.Join(dir, p))
}
