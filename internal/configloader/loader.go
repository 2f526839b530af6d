package configloader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"

	"github.com/getsops/sops/v3/decrypt"
	"github.com/gitship/gitship/internal/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	supportedExtensions  = []string{".json", ".yaml", ".yml", ".toml"}
	supportedConfigNames = []string{"gitship.yaml", "gitship.yml", "gitship.json", "gitship.toml"}
)

// Load finds, parses, decodes, interpolates and validates the gitship config at configPath.
func Load(configPath string) (config.Config, error) {
	cfg, err := LoadRaw(configPath)
	if err != nil {
		return config.Config{}, err
	}

	if err := InterpolateEnvVars(cfg.Env); err != nil {
		return config.Config{}, fmt.Errorf("env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("config invalid: %w", err)
	}

	return cfg, nil
}

// LoadRaw parses and decodes the config file without interpolation or validation.
func LoadRaw(configPath string) (config.Config, error) {
	configFile, err := FindConfigFile(configPath)
	if err != nil {
		return config.Config{}, err
	}

	format, err := config.GetConfigFormat(configFile)
	if err != nil {
		return config.Config{}, err
	}

	parser, err := config.GetConfigParser(format)
	if err != nil {
		return config.Config{}, err
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(configFile), parser); err != nil {
		return config.Config{}, EnhanceConfigError(configFile, format, err)
	}

	if k.Exists("sops") {
		plain, err := decryptSops(configFile, format)
		if err != nil {
			return config.Config{}, err
		}
		k = koanf.New(".")
		if err := k.Load(bytesProvider(plain), parser); err != nil {
			return config.Config{}, fmt.Errorf("failed to load decrypted config: %w", err)
		}
	}

	if err := config.CheckUnknownFields(reflect.TypeOf(config.Config{}), k.Keys(), format); err != nil {
		return config.Config{}, err
	}

	var cfg config.Config
	decoderConfig := &mapstructure.DecoderConfig{
		TagName:          format,
		Result:           &cfg,
		WeaklyTypedInput: true,
	}

	unmarshalConf := koanf.UnmarshalConf{
		Tag:           format,
		DecoderConfig: decoderConfig,
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return config.Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Format = format

	return cfg, nil
}

// decryptSops decrypts a sops-managed config. TOML is not a sops store format.
func decryptSops(configFile, format string) ([]byte, error) {
	if format == "toml" {
		return nil, errors.New("sops encrypted config must be yaml or json")
	}
	plain, err := decrypt.File(configFile, format)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt config with sops: %w", err)
	}
	return plain, nil
}

// bytesProvider feeds the decrypted sops document to koanf.
type bytesProvider []byte

func (b bytesProvider) ReadBytes() ([]byte, error) { return b, nil }

func (b bytesProvider) Read() (map[string]any, error) {
	return nil, errors.New("bytes provider does not support Read")
}

// FindConfigFile finds a gitship config file based on the given path.
// The path may point at a config file or at a directory containing one.
func FindConfigFile(path string) (string, error) {
	if path == "" {
		path = "."
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	stat, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("config file not found in path '%s'", absPath)
	}

	if !stat.IsDir() {
		if !slices.Contains(supportedExtensions, strings.ToLower(filepath.Ext(absPath))) {
			return "", fmt.Errorf("file %s is not a valid gitship config file (must be .json, .yaml, .yml, or .toml)", absPath)
		}
		return absPath, nil
	}

	for _, configName := range supportedConfigNames {
		configPath := filepath.Join(absPath, configName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}
	}

	dirName := path
	if path == "." {
		if cwd, err := os.Getwd(); err == nil {
			dirName = filepath.Base(cwd)
		}
	}

	return "", fmt.Errorf("no gitship config file found in directory %s (looking for: %s)",
		dirName, strings.Join(supportedConfigNames, ", "))
}
