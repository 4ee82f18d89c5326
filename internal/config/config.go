package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Viper keys for everything the app persists between sessions: the
// user-supplied API key and the default generation settings.
const (
	KeyUserAPIKey       = "api.user_key"
	KeyStoryLength      = "story.length"
	KeyStoryGenre       = "story.genre"
	KeyStoryLanguage    = "story.language"
	KeyImageStyle       = "image.style"
	KeyNarrationEnabled = "narration.enabled"
	KeyNarrationEngine  = "narration.engine"
	KeyNarrationVoice   = "narration.voice"
	KeyOutputDir        = "output.dir"
	KeyPacing           = "pipeline.pace"
)

func SetDefaults() {
	viper.SetDefault(KeyStoryLength, "medium")
	viper.SetDefault(KeyStoryGenre, "fantasy")
	viper.SetDefault(KeyStoryLanguage, "English")
	viper.SetDefault(KeyImageStyle, "whimsical")
	viper.SetDefault(KeyNarrationEnabled, true)
	viper.SetDefault(KeyNarrationEngine, "auto")
	viper.SetDefault(KeyNarrationVoice, "Kore")
	viper.SetDefault(KeyOutputDir, "./storybooks")
	viper.SetDefault(KeyPacing, "1s")
}

// Init points viper at the storyweaver config file and reads it if present.
func Init() {
	viper.SetConfigName("storyweaver")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.storyweaver")
	viper.AddConfigPath(".")
	viper.ReadInConfig()
}

// UserAPIKey returns the saved user key, preferring the environment so a
// shell-scoped key never has to touch the config file.
func UserAPIKey() string {
	if key := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); key != "" {
		return key
	}
	return strings.TrimSpace(viper.GetString(KeyUserAPIKey))
}

// Save writes the current viper state to the config file, creating
// ~/.storyweaver on first save.
func Save() error {
	if err := viper.WriteConfig(); err == nil {
		return nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to locate home directory: %w", err)
	}
	dir := filepath.Join(home, ".storyweaver")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return viper.WriteConfigAs(filepath.Join(dir, "storyweaver.yaml"))
}
