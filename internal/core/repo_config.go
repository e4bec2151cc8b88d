package core

import (
	"path"
	"strings"
)

// RepoConfig represents the structure of the .pr-sentinel.yml policy
// file committed to a reviewed repository. The pipeline reads it and
// never writes it.
type RepoConfig struct {
	// Enabled turns automated reviews on or off for the repository.
	Enabled bool `yaml:"enabled"`

	// Model overrides the service-wide model choice.
	Model string `yaml:"model"`

	// High-performance exclusion of entire directories by name.
	// Example: ["dist", "vendor", "docs"]
	ExcludeDirs []string `yaml:"exclude_dirs"`

	// Exclusion of files by extension. The leading dot is optional.
	// Example: [".md", "lock", ".svg"]
	ExcludeExts []string `yaml:"exclude_exts"`

	// MaxFiles caps how many changed files the chunked fallback will
	// send to the model. Zero means no cap.
	MaxFiles int `yaml:"max_files"`

	// Custom instructions appended to the review prompt.
	CustomInstructions []string `yaml:"custom_instructions"`
}

// DefaultRepoConfig returns the policy used when a repository carries no
// .pr-sentinel.yml.
func DefaultRepoConfig() *RepoConfig {
	return &RepoConfig{Enabled: true}
}

// ShouldReviewFile applies the directory and extension filters to a
// changed-file path.
func (c *RepoConfig) ShouldReviewFile(filePath string) bool {
	for _, dir := range c.ExcludeDirs {
		dir = strings.Trim(dir, "/")
		if dir == "" {
			continue
		}
		if filePath == dir || strings.HasPrefix(filePath, dir+"/") || strings.Contains(filePath, "/"+dir+"/") {
			return false
		}
	}

	ext := strings.TrimPrefix(path.Ext(filePath), ".")
	for _, excluded := range c.ExcludeExts {
		if strings.TrimPrefix(excluded, ".") == ext && ext != "" {
			return false
		}
	}
	return true
}
