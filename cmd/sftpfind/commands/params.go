package commands

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Params is the option set of one find invocation, keyed the way playbooks
// and params files name them. JSON documents parse as well.
type Params struct {
	Path           string `yaml:"path"`
	Pattern        string `yaml:"pattern"`
	Host           string `yaml:"host"`
	Port           uint   `yaml:"port"`
	Username       string `yaml:"username"`
	Method         string `yaml:"method"`
	Password       string `yaml:"password"`
	PrivateKeyPath string `yaml:"private_key_path"`
	PrivateKeyType string `yaml:"private_key_type"`
	Passphrase     string `yaml:"passphrase"`
}

// loadParams reads a params file. Unknown keys are rejected.
func loadParams(path string) (*Params, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- params path is operator input
	if err != nil {
		return nil, err
	}

	return parseParams(data)
}

func parseParams(data []byte) (*Params, error) {
	params := &Params{}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(params); err != nil {
		if errors.Is(err, io.EOF) {
			return params, nil
		}
		return nil, fmt.Errorf("parse params: %w", err)
	}

	return params, nil
}
