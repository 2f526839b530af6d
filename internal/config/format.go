package config

import (
	stdjson "encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/gitship/gitship/internal/constants"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/v2"
	gotoml "github.com/pelletier/go-toml/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

func GetConfigFormat(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json", nil
	case ".yaml", ".yml":
		return "yaml", nil
	case ".toml":
		return "toml", nil
	default:
		return "", fmt.Errorf("unsupported config file type for %s (must be .json, .yaml, .yml or .toml)", path)
	}
}

func GetConfigParser(format string) (koanf.Parser, error) {
	switch format {
	case "json":
		return json.Parser(), nil
	case "yaml", "yml":
		return yaml.Parser(), nil
	case "toml":
		return toml.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config format: %s", format)
	}
}

// Marshal renders v in the given config format.
func Marshal(v any, format string) ([]byte, error) {
	switch format {
	case "json":
		return stdjson.MarshalIndent(v, "", "  ")
	case "yaml", "yml":
		return yamlv3.Marshal(v)
	case "toml":
		return gotoml.Marshal(v)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func Save(cfg *Config, path string) error {
	format, err := GetConfigFormat(path)
	if err != nil {
		return err
	}
	data, err := Marshal(cfg, format)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, constants.ModeFileDefault)
}

// CheckUnknownFields reports the first koanf key that does not map onto a field of t.
// Map-typed fields accept any key at their level, slices end the walk since koanf does not
// flatten them.
func CheckUnknownFields(t reflect.Type, keys []string, format string) error {
	for _, key := range keys {
		if err := checkKey(t, strings.Split(key, "."), format); err != nil {
			return fmt.Errorf("unknown field '%s' in config", key)
		}
	}
	return nil
}

func checkKey(t reflect.Type, parts []string, format string) error {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if len(parts) == 0 {
		return nil
	}

	switch t.Kind() {
	case reflect.Map:
		return checkKey(t.Elem(), parts[1:], format)
	case reflect.Slice, reflect.Array:
		return nil
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			name := tagName(f, format)
			if name == "-" {
				continue
			}
			if name == parts[0] {
				return checkKey(f.Type, parts[1:], format)
			}
		}
		return fmt.Errorf("unknown field %s", parts[0])
	default:
		return fmt.Errorf("%s is not a nested field", parts[0])
	}
}

func tagName(f reflect.StructField, format string) string {
	if format == "yml" {
		format = "yaml"
	}
	tag := f.Tag.Get(format)
	if tag == "" {
		return f.Name
	}
	return strings.Split(tag, ",")[0]
}

// GetFieldNameForFormat returns the name a struct field has in the given file format, so
// error messages use the spelling the user wrote.
func GetFieldNameForFormat(v any, fieldName, format string) string {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if f, ok := t.FieldByName(fieldName); ok {
		if name := tagName(f, format); name != "" && name != "-" {
			return name
		}
	}
	return fieldName
}
