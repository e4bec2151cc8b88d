package config

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/revware/pr-sentinel/internal/core"
)

// RepoConfigFile is the policy file looked up in a reviewed repository.
const RepoConfigFile = ".pr-sentinel.yml"

var (
	ErrRepoConfigNotFound = errors.New("repo config file not found")
	ErrRepoConfigParsing  = errors.New("repo config parsing failed")
)

// ParseRepoConfig parses the raw contents of a .pr-sentinel.yml file.
// Callers that fail to fetch the file should fall back to
// core.DefaultRepoConfig.
func ParseRepoConfig(data []byte) (*core.RepoConfig, error) {
	cfg := core.DefaultRepoConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRepoConfigParsing, err)
	}
	return cfg, nil
}
