// Package profiles ships the built-in domain profiles as embedded YAML.
// A profile pre-fills the domain-specific fields of a generation config.
package profiles

import (
	"embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/traingen/go-traingen/internal/config"
)

//go:embed *.yaml
var embeddedFiles embed.FS

// Profile is a named, pre-filled starting point for a generation config
type Profile struct {
	Name            string `yaml:"-"` // Set during loading
	Description     string `yaml:"description"`
	Domain          string `yaml:"domain"`
	ExpertRole      string `yaml:"expert_role"`
	TaskDescription string `yaml:"task_description"`
	UserQuery       string `yaml:"user_query,omitempty"`
}

// ProfileMap holds all built-in profiles keyed by lowercase name
type ProfileMap map[string]Profile

// LoadBuiltinProfiles loads the embedded domain profiles
func LoadBuiltinProfiles() (ProfileMap, error) {
	profiles := make(ProfileMap)

	entries, err := embeddedFiles.ReadDir(".")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded profiles: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !isYAMLFile(entry.Name()) {
			continue
		}

		data, err := embeddedFiles.ReadFile(entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read embedded profile file %s: %w", entry.Name(), err)
		}

		var fileProfiles map[string]Profile
		if err := yaml.Unmarshal(data, &fileProfiles); err != nil {
			return nil, fmt.Errorf("failed to parse embedded profile file %s: %w", entry.Name(), err)
		}

		for name, profile := range fileProfiles {
			profile.Name = name
			profiles[strings.ToLower(name)] = profile
		}
	}

	return profiles, nil
}

// Get returns a profile by case-insensitive name
func (p ProfileMap) Get(name string) (Profile, bool) {
	profile, ok := p[strings.ToLower(name)]
	return profile, ok
}

// Names returns the available profile names
func (p ProfileMap) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	return names
}

// ApplyTo copies the profile's domain fields into a generation config,
// leaving fields the caller already set untouched
func (pr Profile) ApplyTo(cfg *config.GenerationConfig) {
	if cfg.Domain == "" {
		cfg.Domain = pr.Domain
	}
	if cfg.ExpertRole == "" {
		cfg.ExpertRole = pr.ExpertRole
	}
	if cfg.TaskDescription == "" {
		cfg.TaskDescription = pr.TaskDescription
	}
}

func isYAMLFile(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}
