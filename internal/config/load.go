package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix recognized for environment-variable overrides
// of any config key, e.g. NPAWATCH_LLM_API_KEY overrides llm.api_key.
const EnvPrefix = "NPAWATCH"

// Load reads, validates, and decodes the run configuration at path.
//
// The file is first decoded and schema-validated as written on disk
// (rejecting unknown keys), then re-read through viper so that
// NPAWATCH_*-prefixed environment variables can override individual
// values — secrets such as llm.api_key or telegram.bot_token are
// typically supplied this way rather than committed to the file.
// Defaults are applied last.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes validates and decodes raw YAML config bytes.
func LoadFromBytes(data []byte) (*Config, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("config file is empty")
	}

	jsonData, err := yamlToJSON(data)
	if err != nil {
		return nil, err
	}
	if err := ValidateRaw(jsonData); err != nil {
		return nil, err
	}

	cfg, err := decodeWithEnvOverrides(data)
	if err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

func decodeWithEnvOverrides(data []byte) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only reaches keys viper already knows, so bind every
	// Config key explicitly; keys absent from the file can then still be
	// supplied through the environment.
	var bindKeys func(t reflect.Type, prefix string)
	bindKeys = func(t reflect.Type, prefix string) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			key := prefix + f.Tag.Get("mapstructure")
			if f.Type.Kind() == reflect.Struct {
				bindKeys(f.Type, key+".")
				continue
			}
			_ = v.BindEnv(key)
		}
	}
	bindKeys(reflect.TypeOf(Config{}), "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// yamlToJSON decodes YAML into a generic value and re-encodes as JSON,
// preserving every key (including unrecognized ones) so schema
// validation can enforce additionalProperties:false.
func yamlToJSON(data []byte) ([]byte, error) {
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	jsonData, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("failed to convert config to JSON: %w", err)
	}
	return jsonData, nil
}
