package cli

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/ladzaretti/sqlsplit/partwriter"
	"github.com/ladzaretti/sqlsplit/splitter"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	// defaultConfigName is the default name of the configuration file
	// expected under the user's home directory.
	defaultConfigName = ".sqlsplit.toml"

	// envConfigPathKey is the environment variable key for overriding
	// the config file path.
	envConfigPathKey = "SQLSPLIT_CONFIG_PATH"
)

type ConfigError struct {
	Opt string
	Err error
}

func (e *ConfigError) Error() string {
	if len(e.Opt) == 0 {
		return "config: " + e.Err.Error()
	}

	return "config: " + strings.Join([]string{e.Opt, e.Err.Error()}, ": ")
}

func (e *ConfigError) Unwrap() error { return e.Err }

// FileConfig represents the full structure of the configuration file.
//
//nolint:tagalign,tagliatelle
type FileConfig struct {
	Split SplitConfig `toml:"split" yaml:"split" json:"split"`

	path string // path to the loaded config file. Empty if no config file was used.
}

// SplitConfig holds the settings of the split run. Zero values fall back to
// the built-in defaults.
//
//nolint:tagalign,tagliatelle
type SplitConfig struct {
	OutputDir   string `toml:"output_dir,commented" comment:"Directory receiving the parts (default: the input file's directory)" yaml:"output_dir,omitempty" json:"output_dir,omitempty"`
	Prefix      string `toml:"prefix,commented" comment:"File name prefix of each part, followed by the part number and '.sql'" yaml:"prefix,omitempty" json:"prefix,omitempty" validate:"omitempty,excludesall=/\\"`
	Parts       *int   `toml:"parts,commented" comment:"Number of parts to produce (default: 10)" yaml:"parts,omitempty" json:"parts,omitempty" validate:"omitempty,gte=1"`
	StartMarker string `toml:"start_marker,commented" comment:"Case-insensitive text marking the first statement; earlier lines form the header" yaml:"start_marker,omitempty" json:"start_marker,omitempty" validate:"omitempty,trimmed"`
	Terminator  string `toml:"terminator,commented" comment:"Text ending a statement when found at the end of a line" yaml:"terminator,omitempty" json:"terminator,omitempty" validate:"omitempty,trimmed"`
}

// ResolvedConfig is the effective configuration of a split run after
// applying defaults, the config file and command-line flags, in that order.
//
//nolint:tagliatelle
type ResolvedConfig struct {
	InputPath   string `json:"input_path,omitempty"`
	OutputDir   string `json:"output_dir"`
	Prefix      string `json:"prefix"`
	PartCount   int    `json:"part_count"`
	StartMarker string `json:"start_marker"`
	Terminator  string `json:"terminator"`
}

func newFileConfig() *FileConfig {
	return &FileConfig{}
}

// defaultFileConfig returns a config populated with the built-in defaults.
func defaultFileConfig() *FileConfig {
	parts := splitter.DefaultPartCount

	return &FileConfig{
		Split: SplitConfig{
			Prefix:      partwriter.DefaultPrefix,
			Parts:       &parts,
			StartMarker: splitter.DefaultStartMarker,
			Terminator:  splitter.DefaultTerminator,
		},
	}
}

// Resolve merges c over the built-in defaults.
func (c *FileConfig) Resolve() ResolvedConfig {
	r := ResolvedConfig{
		OutputDir:   c.Split.OutputDir,
		Prefix:      cmp.Or(c.Split.Prefix, partwriter.DefaultPrefix),
		PartCount:   splitter.DefaultPartCount,
		StartMarker: cmp.Or(c.Split.StartMarker, splitter.DefaultStartMarker),
		Terminator:  cmp.Or(c.Split.Terminator, splitter.DefaultTerminator),
	}

	if c.Split.Parts != nil {
		r.PartCount = *c.Split.Parts
	}

	return r
}

// LoadFileConfig loads the config from the given or default path.
func LoadFileConfig(path string) (*FileConfig, error) {
	defaultPath, err := defaultConfigPath()
	if err != nil {
		return nil, err
	}

	configPath := cmp.Or(path, defaultPath)

	c, err := parseFileConfig(configPath)
	if err != nil {
		// config file not found at default location; fallback to empty config
		if len(path) == 0 && errors.Is(err, fs.ErrNotExist) { //nolint:revive // clearer with explicit fallback logic
			c = newFileConfig()
		} else {
			return nil, err
		}
	} else {
		c.path = configPath
	}

	return c, c.validate()
}

func defaultConfigPath() (string, error) {
	if p, ok := os.LookupEnv(envConfigPathKey); ok {
		return p, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: user home dir: %w", err)
	}

	return filepath.Join(home, defaultConfigName), nil
}

func parseFileConfig(path string) (*FileConfig, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config: stat file: %w", err)
	}

	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	config := newFileConfig()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)

		// a document without content decodes to io.EOF; treat it as an empty config.
		if err := dec.Decode(config); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("config: parse file: %w", err)
		}
	default:
		dec := toml.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()

		if err := dec.Decode(config); err != nil {
			return nil, fmt.Errorf("config: parse file: %w", err)
		}
	}

	return config, nil
}

var configValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report fields by their config file key.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("toml"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	_ = v.RegisterValidation("trimmed", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return strings.TrimSpace(s) == s
	})

	return v
}

func (c *FileConfig) validate() error {
	if c == nil {
		return &ConfigError{Err: errors.New("cannot validate a nil config")}
	}

	err := configValidator.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ConfigError{Err: err}
	}

	fe := verrs[0]

	// drop the root struct name: "FileConfig.split.parts" -> "split.parts"
	_, opt, _ := strings.Cut(fe.Namespace(), ".")

	return &ConfigError{Opt: opt, Err: validationMessage(fe)}
}

func validationMessage(fe validator.FieldError) error {
	switch fe.Tag() {
	case "gte":
		return fmt.Errorf("must be at least %s", fe.Param())
	case "excludesall":
		return errors.New("must not contain path separators")
	case "trimmed":
		return errors.New("must not start or end with whitespace")
	default:
		return fmt.Errorf("failed %q validation", fe.Tag())
	}
}
