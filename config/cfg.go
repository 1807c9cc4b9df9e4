package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	validator "github.com/go-playground/validator/v10"
	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"

	"docflow/common"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	// All geometry is in points (1/72 inch).
	FrameConfig struct {
		X      float64 `yaml:"x" validate:"gte=0"`
		Y      float64 `yaml:"y" validate:"gte=0"`
		Width  float64 `yaml:"width" validate:"gt=0"`
		Height float64 `yaml:"height" validate:"gt=0"`
	}

	PageConfig struct {
		Width          float64     `yaml:"width" validate:"gt=0"`
		Height         float64     `yaml:"height" validate:"gt=0"`
		Frame          FrameConfig `yaml:"frame"`
		FooterTemplate string      `yaml:"footer_template"`
		OrnamentPath   string      `yaml:"ornament_path" sanitize:"assure_file_access"`
	}

	StylesConfig struct {
		Levels          int     `yaml:"levels" validate:"min=1,max=64"`
		HeadingFont     string  `yaml:"heading_font" validate:"oneof=Go-Regular Go-Bold Go-Italic Go-Mono"`
		HeadingBaseSize float64 `yaml:"heading_base_size" validate:"gt=0"`
		TOCFont         string  `yaml:"toc_font" validate:"oneof=Go-Regular Go-Bold Go-Italic Go-Mono"`
		TOCSize         float64 `yaml:"toc_size" validate:"gt=0"`
		BodyFont        string  `yaml:"body_font" validate:"oneof=Go-Regular Go-Bold Go-Italic Go-Mono"`
		BodySize        float64 `yaml:"body_size" validate:"gt=0"`
		Delta           float64 `yaml:"delta" validate:"gte=0"`
		Epsilon         float64 `yaml:"epsilon" validate:"gte=0"`
	}

	TOCConfig struct {
		Title     string `yaml:"title"`
		MaxPasses int    `yaml:"max_passes" validate:"min=1,max=100"`
	}

	RasterConfig struct {
		DPI   float64 `yaml:"dpi" validate:"min=36,max=600"`
		Width int     `yaml:"width" validate:"gte=0"`
	}

	OutputConfig struct {
		Format                common.OutputFmt `yaml:"format" validate:"gte=0"`
		NameTemplate          string           `yaml:"name_template"`
		FileNameTransliterate bool             `yaml:"file_name_transliterate"`
		FixZip                bool             `yaml:"fix_zip"`
		Raster                RasterConfig     `yaml:"raster"`
	}

	DocumentConfig struct {
		Page   PageConfig   `yaml:"page"`
		Styles StylesConfig `yaml:"styles"`
		TOC    TOCConfig    `yaml:"toc"`
		Output OutputConfig `yaml:"output"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Document  DocumentConfig `yaml:"document"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

const (
	// NOTE: must match yaml field name above, alternative is to use struct
	// field name and reflection which I want to avoid for now
	OutputNameTemplateFieldName TemplateFieldName = "name_template"
	FooterTemplateFieldName     TemplateFieldName = "footer_template"
)

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(OutputNameTemplateFieldName)),
	gencfg.WithDoNotExpandField(string(FooterTemplateFieldName)),
)

// checkGeometry makes sure drawable frame fits on the page, field level
// validation cannot see both structures at once.
func checkGeometry(sl validator.StructLevel) {
	cfg, ok := sl.Current().Interface().(Config)
	if !ok {
		return
	}
	page := cfg.Document.Page
	if page.Frame.X+page.Frame.Width > page.Width {
		sl.ReportError(page.Frame.Width, "Document.Page.Frame.Width", "width", "frame_fits_page", "")
	}
	if page.Frame.Y+page.Frame.Height > page.Height {
		sl.ReportError(page.Frame.Height, "Document.Page.Frame.Height", "height", "frame_fits_page", "")
	}
}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, fmt.Errorf("failed to sanitize configuration: %w", err)
		}
		if err := gencfg.Validate(cfg, gencfg.WithAdditionalChecks(checkGeometry)); err != nil {
			return nil, fmt.Errorf("failed to validate configuration: %w", err)
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration tamplate to provide
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

	// overwrite cfg values with values from the file
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
