package configloader

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Validator interface {
	Validate() error
}

// Sources names where configuration is read from, lowest priority first after the defaults.
type Sources struct {
	ConfigFile string
	EnvFile    string
	EnvPrefix  string
}

// DefaultSources returns config.yaml and .env in the working directory, and <SERVICE>_ prefixed env vars.
func DefaultSources(serviceName string) Sources {
	return Sources{
		ConfigFile: "config.yaml",
		EnvFile:    ".env",
		EnvPrefix:  fmt.Sprintf("%s_", strings.ToUpper(serviceName)),
	}
}

// Load reads the configuration of serviceName from the default sources.
func Load[T Validator](serviceName string, defaults map[string]any) (T, error) {
	return LoadFrom[T](DefaultSources(serviceName), defaults)
}

// LoadFrom merges defaults, the yaml file, the .env file and the environment, in that order,
// then unmarshals and validates the result.
func LoadFrom[T Validator](src Sources, defaults map[string]any) (T, error) {
	var cfg T
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return cfg, fmt.Errorf("error loading defaults: %w", err)
	}

	// 2. Load configuration from yaml file
	if err := k.Load(file.Provider(src.ConfigFile), yaml.Parser()); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("WARN: error loading YAML config file '%s': %v", src.ConfigFile, err)
		}
	}

	// Env var names are upper case; map them back onto the camelCase keys known so far.
	known := make(map[string]string)
	for _, key := range k.Keys() {
		known[strings.ToLower(key)] = key
	}
	envTransformer := func(key string) string {
		key = strings.ToLower(key)
		key = strings.TrimPrefix(key, strings.ToLower(src.EnvPrefix))
		key = strings.ReplaceAll(key, "_", ".")
		if original, ok := known[key]; ok {
			return original
		}
		return key
	}

	// 3. Load environment variables from .env file
	if envFileMap, err := godotenv.Read(src.EnvFile); err == nil {
		envMap := make(map[string]any)
		for key, value := range envFileMap {
			if !strings.HasPrefix(strings.ToUpper(key), src.EnvPrefix) {
				continue
			}
			envMap[envTransformer(key)] = value
		}
		if err := k.Load(confmap.Provider(envMap, "."), nil); err != nil {
			log.Printf("WARN: error loading .env config: %v", err)
		}
	} else if !os.IsNotExist(err) {
		log.Printf("WARN: error reading .env file: %v", err)
	}

	// 4. Load environment variables from the system, the highest priority
	if err := k.Load(env.Provider(src.EnvPrefix, ".", envTransformer), nil); err != nil {
		log.Printf("WARN: error loading system env vars: %v", err)
	}

	// 5. Unmarshal the configuration into the Config struct
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("error unmarshalling config: %w", err)
	}

	// 6. Validate the configuration
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}
