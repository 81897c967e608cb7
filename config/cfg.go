package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"

	"grimoire/common"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	RemoteConfig struct {
		BaseURL   string        `yaml:"base_url" validate:"required,url"`
		Timeout   time.Duration `yaml:"timeout" validate:"gt=0"`
		Token     SecretString  `yaml:"token,omitempty"`
		UserAgent string        `yaml:"user_agent"`
	}

	CacheConfig struct {
		Enable bool   `yaml:"enable"`
		Path   string `yaml:"path" sanitize:"path_clean,assure_dir_exists_for_file" validate:"required_if=Enable true,omitempty,filepath"`
	}

	PreferencesConfig struct {
		Path     string  `yaml:"path" sanitize:"path_clean,assure_dir_exists_for_file" validate:"required,filepath"`
		FontSize int     `yaml:"font_size" validate:"min=10,max=32"`
		Volume   float64 `yaml:"volume" validate:"gte=0,lte=1"`
		Muted    bool    `yaml:"muted"`
	}

	ViewerConfig struct {
		Transition  time.Duration `yaml:"transition" validate:"gte=0"`
		Style       string        `yaml:"style" validate:"oneof=auto dark light notty"`
		ReopenAtEnd bool          `yaml:"reopen_last_page"`
	}

	MediaConfig struct {
		Backend common.MediaBackend `yaml:"backend" validate:"gte=0"`
		Probe   bool                `yaml:"probe"`
		Tick    time.Duration       `yaml:"tick" validate:"gt=0"`
		Formats []string            `yaml:"formats" validate:"min=1,dive,required"`
	}

	AdminConfig struct {
		User     string       `yaml:"user" validate:"required"`
		Password SecretString `yaml:"password"`
	}

	ExportConfig struct {
		OutputNameTemplate string `yaml:"output_name_template"`
		Language           string `yaml:"language" validate:"required"`
		Genre              string `yaml:"genre" validate:"required"`
	}

	Config struct {
		Version     int               `yaml:"version" validate:"eq=1"`
		Remote      RemoteConfig      `yaml:"remote"`
		Cache       CacheConfig       `yaml:"cache"`
		Preferences PreferencesConfig `yaml:"preferences"`
		Viewer      ViewerConfig      `yaml:"viewer"`
		Media       MediaConfig       `yaml:"media"`
		Admin       AdminConfig       `yaml:"admin"`
		Export      ExportConfig      `yaml:"export"`
		Logging     LoggingConfig     `yaml:"logging"`
		Reporting   ReporterConfig    `yaml:"reporting"`
	}
)

const (
	// NOTE: must match yaml field name above
	OutputNameTemplateFieldName TemplateFieldName = "output_name_template"
)

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(OutputNameTemplateFieldName)),
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
