package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables that supply answers.
const EnvPrefix = "ARCHER_"

// Answers is the raw, unvalidated input for an install. It is read from an
// answers file, the environment and CLI flags, and written back by
// "archer init" and after a confirmed interactive session.
type Answers struct {
	Hostname     string `koanf:"hostname" yaml:"hostname,omitempty"`
	Username     string `koanf:"username" yaml:"username,omitempty"`
	Password     string `koanf:"password" yaml:"password,omitempty"`
	PasswordHash string `koanf:"passwordHash" yaml:"passwordHash,omitempty"`
	Timezone     string `koanf:"timezone" yaml:"timezone,omitempty"`
	Locale       string `koanf:"locale" yaml:"locale,omitempty"`
	Device       string `koanf:"device" yaml:"device,omitempty"`
	Swap         string `koanf:"swap" yaml:"swap,omitempty"`
	Desktop      string `koanf:"desktop" yaml:"desktop,omitempty"`
}

// answerEnvKeys maps environment suffixes to answer keys.
var answerEnvKeys = map[string]string{
	"HOSTNAME":      "hostname",
	"USERNAME":      "username",
	"PASSWORD":      "password",
	"PASSWORD_HASH": "passwordHash",
	"TIMEZONE":      "timezone",
	"LOCALE":        "locale",
	"DEVICE":        "device",
	"SWAP":          "swap",
	"DESKTOP":       "desktop",
}

// envAnswer translates ARCHER_PASSWORD_HASH into passwordHash. Empty
// variables and variables that are not answers (timeouts, workers) map to ""
// and are skipped.
func envAnswer(key, value string) (string, any) {
	if value == "" {
		return "", nil
	}
	return answerEnvKeys[strings.TrimPrefix(key, EnvPrefix)], value
}

// LoadAnswers merges, in increasing precedence, the answers file at path
// (skipped when path is empty), ARCHER_* environment variables and
// overrides. Empty override values are ignored.
func LoadAnswers(path string, overrides map[string]string) (*Answers, error) {
	k := koanf.New(".")

	// 1. Answers file
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("failed to read answers file: %w", err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load answers from %s: %w", path, err)
		}
	}

	// 2. Environment
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envAnswer), nil); err != nil {
		return nil, fmt.Errorf("failed to load answers from environment: %w", err)
	}

	// 3. Flags
	flags := make(map[string]any, len(overrides))
	for key, val := range overrides {
		if val != "" {
			flags[key] = val
		}
	}
	if err := k.Load(confmap.Provider(flags, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load answer overrides: %w", err)
	}

	// 4. Unmarshal; swap may be a YAML integer
	var a Answers
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &a,
			WeaklyTypedInput: true,
		},
	}
	if err := k.UnmarshalWithConf("", &a, unmarshalConf); err != nil {
		return nil, fmt.Errorf("failed to decode answers: %w", err)
	}

	return &a, nil
}

// WriteAnswers stores answers as YAML with owner-only permissions. A
// plaintext password is never written; callers store PasswordHash instead.
func WriteAnswers(path string, a *Answers) error {
	out := *a
	out.Password = ""

	data, err := yamlv3.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal answers: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	header := []byte("# archer answers file\n# Use with: archer install --answers " + path + "\n\n")
	if err := os.WriteFile(path, append(header, data...), 0o600); err != nil {
		return fmt.Errorf("failed to write answers file: %w", err)
	}
	return nil
}
