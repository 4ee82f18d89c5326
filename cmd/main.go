package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"storyweaver/internal/cli"
	"storyweaver/internal/cli/scheme/colours"
	"storyweaver/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {

	config.SetDefaults()

	app := cli.NewApp()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		app.Cancel()
		fmt.Println("\n" + colours.Warning.Sprint("👋 Goodbye! Sweet dreams! 🌙"))
		os.Exit(0)
	}()

	rootCmd := &cobra.Command{
		Use:   "storyweaver",
		Short: "📚 Weave illustrated, narrated storybooks from a single prompt",
		Long: `
┌─────────────────────────────────────┐
│  📚 Welcome to StoryWeaver! ✨     │
│  Turn one sentence into a whole     │
│  illustrated, narrated storybook 👶 │
└─────────────────────────────────────┘

StoryWeaver writes a children's story from your prompt, illustrates every
page, narrates it aloud and can bind it all into a PDF. Perfect for
bedtime! 🌙
		`,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	// Generate command
	generateCmd := &cobra.Command{
		Use:   "generate [prompt]",
		Short: "✨ Generate a new storybook",
		Long:  "Write, illustrate and narrate a brand new story from your prompt",
		Args:  cobra.MinimumNArgs(1),
		RunE:  app.Generate,
	}

	// Export command
	exportCmd := &cobra.Command{
		Use:   "export [story-dir]",
		Short: "📄 Export a storybook as a PDF",
		Long:  "Compose a saved story (the most recent one by default) into a PDF booklet",
		Args:  cobra.MaximumNArgs(1),
		RunE:  app.Export,
	}

	// Play command
	playCmd := &cobra.Command{
		Use:   "play [story-dir]",
		Short: "🔊 Read a saved storybook aloud",
		Long:  "Play the narration of a saved story (the most recent one by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  app.Play,
	}

	// Keys commands
	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "🔑 Manage API keys",
		Long:  "Set, inspect or test the API keys used for generation",
	}
	keysSetCmd := &cobra.Command{
		Use:   "set [key]",
		Short: "🔑 Save your API key",
		Args:  cobra.ExactArgs(1),
		RunE:  app.SetKey,
	}
	keysShowCmd := &cobra.Command{
		Use:   "show",
		Short: "👀 Show the configured keys (masked)",
		RunE:  app.ShowKeys,
	}
	keysTestCmd := &cobra.Command{
		Use:   "test [key]",
		Short: "🔍 Test an API key with a minimal call",
		Args:  cobra.MaximumNArgs(1),
		RunE:  app.TestKey,
	}
	keysCmd.AddCommand(keysSetCmd, keysShowCmd, keysTestCmd)

	// Settings command
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "⚙️ Show or change the default settings",
		Long:  "Display the persisted defaults, updating any given as flags",
		RunE:  app.Settings,
	}

	// Add flags
	generateCmd.Flags().StringP("length", "l", viper.GetString(config.KeyStoryLength), "Story length: short, medium or long")
	generateCmd.Flags().StringP("genre", "g", viper.GetString(config.KeyStoryGenre), "Story genre: fantasy, sci-fi, mystery, adventure or funny")
	generateCmd.Flags().StringP("style", "s", viper.GetString(config.KeyImageStyle), "Illustration style: whimsical, cartoon, realistic or watercolor")
	generateCmd.Flags().String("language", viper.GetString(config.KeyStoryLanguage), "Language to write the story in")
	generateCmd.Flags().Bool("narrate", viper.GetBool(config.KeyNarrationEnabled), "Narrate each page aloud")
	generateCmd.Flags().Bool("pdf", false, "Export the finished story as a PDF")
	generateCmd.Flags().Bool("play", false, "Play the narration when the story is done")
	generateCmd.Flags().StringP("out", "o", "", "PDF output path (with --pdf)")
	exportCmd.Flags().StringP("out", "o", "", "PDF output path")
	settingsCmd.Flags().StringP("length", "l", viper.GetString(config.KeyStoryLength), "Default story length")
	settingsCmd.Flags().StringP("genre", "g", viper.GetString(config.KeyStoryGenre), "Default story genre")
	settingsCmd.Flags().StringP("style", "s", viper.GetString(config.KeyImageStyle), "Default illustration style")
	settingsCmd.Flags().String("language", viper.GetString(config.KeyStoryLanguage), "Default story language")
	settingsCmd.Flags().Bool("narrate", viper.GetBool(config.KeyNarrationEnabled), "Narrate stories by default")
	settingsCmd.Flags().String("engine", viper.GetString(config.KeyNarrationEngine), "Narration engine: auto, gemini, googleclassic or mock")
	settingsCmd.Flags().String("voice", viper.GetString(config.KeyNarrationVoice), "Narrator voice")
	settingsCmd.Flags().String("output", viper.GetString(config.KeyOutputDir), "Directory stories are saved under")

	rootCmd.AddCommand(generateCmd, exportCmd, playCmd, keysCmd, settingsCmd)

	if err := rootCmd.Execute(); err != nil {
		colours.Error.Printf("❌ Error: %v\n", err)
		os.Exit(1)
	}
}

// Configuration management with Viper
func init() {
	config.Init()
}
