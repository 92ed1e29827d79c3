package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	pkgLogger "github.com/traingen/go-traingen/pkg/logger"
)

// Settings represents the main application settings
type Settings struct {
	LLM LLMSettings `json:"llm"`
	Run RunSettings `json:"run"`
}

// LLMSettings contains LLM client configuration
type LLMSettings struct {
	Backend   string `json:"backend"`              // "ollama", "anthropic", "openai", or "gemini"
	Model     string `json:"model"`                // model name
	MaxTokens int    `json:"max_tokens,omitempty"` // maximum tokens for model responses (0 = use model default)
}

// RunSettings contains generation run behavior configuration
type RunSettings struct {
	LogLevel string `json:"log_level"`
}

// LoadSettings loads application settings from a JSON file
func LoadSettings(configPath string) (*Settings, error) {
	// If config path is empty, search in order of preference
	if configPath == "" {
		configPath = findSettingsFile()
		if configPath == "" {
			// No settings file found, create default one and return defaults
			return createDefaultSettingsFile()
		}
	}

	// Check if specified file exists, create defaults if not
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		settings, _ := createSettingsFileAtPath(configPath)
		return settings, nil
	}

	// Read and parse the configuration file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}

	// Apply defaults for missing fields
	applyDefaults(&settings)

	return &settings, nil
}

// GetDefaultSettings returns default application settings
func GetDefaultSettings() *Settings {
	return &Settings{
		LLM: LLMSettings{
			Backend:   "openai",
			Model:     "gpt-4o-mini",
			MaxTokens: 0, // 0 = use model-specific defaults
		},
		Run: RunSettings{
			LogLevel: "info",
		},
	}
}

// applyDefaults fills in missing fields with default values
func applyDefaults(settings *Settings) {
	defaults := GetDefaultSettings()

	if settings.LLM.Backend == "" {
		settings.LLM.Backend = defaults.LLM.Backend
	}
	if settings.LLM.Model == "" {
		settings.LLM.Model = defaults.LLM.Model
	}
	if settings.Run.LogLevel == "" {
		settings.Run.LogLevel = defaults.Run.LogLevel
	}
}

// ValidateSettings validates the settings configuration
func ValidateSettings(settings *Settings) error {
	switch settings.LLM.Backend {
	case "ollama", "anthropic", "openai", "gemini":
	default:
		return fmt.Errorf("unsupported LLM backend: %s (must be 'ollama', 'anthropic', 'openai', or 'gemini')", settings.LLM.Backend)
	}

	if settings.LLM.Model == "" {
		return fmt.Errorf("LLM model is required")
	}

	if settings.LLM.Backend == "anthropic" && os.Getenv("ANTHROPIC_API_KEY") == "" {
		return fmt.Errorf("Anthropic API key is required (set ANTHROPIC_API_KEY environment variable)")
	}
	if settings.LLM.Backend == "openai" && os.Getenv("OPENAI_API_KEY") == "" {
		return fmt.Errorf("OpenAI API key is required (set OPENAI_API_KEY environment variable)")
	}
	if settings.LLM.Backend == "gemini" && os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY environment variable)")
	}

	return nil
}

// findSettingsFile searches for settings.json in order of preference:
// 1. .traingen/settings.json in current directory
// 2. $HOME/.traingen/settings.json
// Returns empty string if none found
func findSettingsFile() string {
	currentDirPath := filepath.Join(".traingen", "settings.json")
	if _, err := os.Stat(currentDirPath); err == nil {
		return currentDirPath
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		homeDirPath := filepath.Join(homeDir, ".traingen", "settings.json")
		if _, err := os.Stat(homeDirPath); err == nil {
			return homeDirPath
		}
	}

	return ""
}

// createDefaultSettingsFile creates a default settings.json file in ~/.traingen/
func createDefaultSettingsFile() (*Settings, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return GetDefaultSettings(), nil // Fall back to defaults without file creation
	}

	settingsPath := filepath.Join(homeDir, ".traingen", "settings.json")
	return createSettingsFileAtPath(settingsPath)
}

// createSettingsFileAtPath creates a default settings file at the specified path
func createSettingsFileAtPath(settingsPath string) (*Settings, error) {
	settings := GetDefaultSettings()

	if err := os.MkdirAll(filepath.Dir(settingsPath), 0755); err != nil {
		return settings, nil // Return defaults if directory creation fails
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return settings, nil
	}

	if err := os.WriteFile(settingsPath, data, 0644); err != nil {
		return settings, nil
	}

	pkgLogger.NewComponentLogger("settings").Info("Created default settings file", "path", settingsPath)

	return settings, nil
}
