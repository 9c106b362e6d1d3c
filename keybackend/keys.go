package keybackend

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// KeyPair is one gateway credential.
type KeyPair struct {
	AccessKey string `json:"access_key" mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `json:"secret_key" mapstructure:"secret_key" yaml:"secret_key"`
}

// KeysConfig lists gateway credentials inline and/or in a key file.
type KeysConfig struct {
	Inline []KeyPair `mapstructure:"inline" yaml:"inline,omitempty"`
	File   string    `mapstructure:"file" yaml:"file,omitempty"`
}

// ReadKeyFile reads a list of key pairs from path. Files ending in .yaml or
// .yml are decoded as YAML, everything else as JSON:
//
//	[{"access_key": "GATEWAY", "secret_key": "..."}]
//
// Pairs missing either half are dropped.
func ReadKeyFile(path string) ([]KeyPair, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("read key file %s: %w", path, err)
	}

	var pairs []KeyPair
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &pairs)
	default:
		err = json.Unmarshal(data, &pairs)
	}
	if err != nil {
		return nil, fmt.Errorf("decode key file %s: %w", path, err)
	}

	return complete(pairs), nil
}

// NewSecretStore builds a store from cfg. Keys read from cfg.File replace
// inline keys with the same access key.
func NewSecretStore(cfg KeysConfig) (*MapSecretStore, error) {
	keys := make(map[string]string)
	for _, p := range complete(cfg.Inline) {
		keys[p.AccessKey] = p.SecretKey
	}

	if cfg.File != "" {
		pairs, err := ReadKeyFile(cfg.File)
		if err != nil {
			return nil, err
		}
		for _, p := range pairs {
			keys[p.AccessKey] = p.SecretKey
		}
	}

	return &MapSecretStore{keys: keys}, nil
}

func complete(pairs []KeyPair) []KeyPair {
	out := make([]KeyPair, 0, len(pairs))
	for _, p := range pairs {
		if p.AccessKey != "" && p.SecretKey != "" {
			out = append(out, p)
		}
	}
	return out
}
