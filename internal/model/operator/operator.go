package operator

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Operator is an administrator allowed to read the contact inbox.
type Operator struct {
	Username     string `yaml:"username"`
	DisplayName  string `yaml:"displayName,omitempty"`
	PasswordHash string `yaml:"passwordHash"`
}

type operatorsFile struct {
	Operators []Operator `yaml:"operators"`
}

// LoadFile reads the operator list from a YAML file.
func LoadFile(path string) ([]Operator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read operators file: %w", err)
	}

	var parsed operatorsFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse operators file %s: %w", path, err)
	}

	for i, op := range parsed.Operators {
		if strings.TrimSpace(op.Username) == "" {
			return nil, fmt.Errorf("operators file %s: entry %d has no username", path, i)
		}
		if strings.TrimSpace(op.PasswordHash) == "" {
			return nil, fmt.Errorf("operators file %s: operator %q has no passwordHash", path, op.Username)
		}
	}
	return parsed.Operators, nil
}
