// Package cli is the terminal front end: it wires the generation pipeline,
// asset store, exporter and player together and renders progress as the
// pipeline moves.
package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"storyweaver/internal/assets"
	"storyweaver/internal/audio"
	"storyweaver/internal/cli/scheme/colours"
	"storyweaver/internal/config"
	"storyweaver/internal/credentials"
	"storyweaver/internal/export"
	"storyweaver/internal/gen"
	"storyweaver/internal/story"
	"storyweaver/internal/story/narrate"
	"storyweaver/internal/weaver"
)

// App holds everything the commands share: one keyring, one provider client,
// one asset store and one playback handle.
type App struct {
	keys   *credentials.Keyring
	client *gen.Client
	store  *assets.Store
	player *audio.Player

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewApp() *App {
	keys := credentials.NewKeyring(config.UserAPIKey())
	return &App{
		keys:   keys,
		client: gen.New(keys, gen.WithVoice(viper.GetString(config.KeyNarrationVoice))),
		store:  assets.NewStore(viper.GetString(config.KeyOutputDir)),
		player: audio.NewPlayer(),
	}
}

// Cancel aborts the active run and silences playback. Safe to call from the
// signal handler.
func (a *App) Cancel() {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	a.player.Stop()
}

func (a *App) runContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()
	return ctx, cancel
}

// Generate runs the whole pipeline for the prompt given on the command line.
func (a *App) Generate(cmd *cobra.Command, args []string) error {
	prompt := strings.TrimSpace(strings.Join(args, " "))
	if prompt == "" {
		return errors.New("tell me what the story should be about, e.g. storyweaver generate \"a dragon who is afraid of fire\"")
	}

	settings := story.Settings{
		Length:    story.Length(flagString(cmd, "length")),
		Genre:     story.Genre(flagString(cmd, "genre")),
		Style:     story.ImageStyle(flagString(cmd, "style")),
		Language:  flagString(cmd, "language"),
		Narration: flagBool(cmd, "narrate"),
	}

	ctx, cancel := a.runContext()
	defer cancel()

	var narrator weaver.Narrator
	if settings.Narration {
		engine, err := narrate.NewEngine(ctx, viper.GetString(config.KeyNarrationEngine), a.client)
		if err != nil {
			return err
		}
		colours.Info.Printf("🎙️  Narration engine: %s\n", engine.Name())
		narrator = engine
	}

	w := weaver.New(a.client, a.keys, a.store,
		weaver.WithObserver(progressPrinter{}),
		weaver.WithPace(viper.GetDuration(config.KeyPacing)),
		weaver.WithNarrator(narrator),
	)

	colours.Title.Println("\n📚 Weaving your storybook... ✨")
	st, err := w.Generate(ctx, prompt, settings)
	if err != nil {
		if st != nil && w.Dir() != nil {
			colours.Warning.Printf("💾 Finished pages were kept in %s\n", w.Dir().Path())
		}
		return err
	}

	printStory(st)
	colours.Info.Printf("💾 Saved to %s\n", w.Dir().Path())

	if flagBool(cmd, "pdf") {
		if err := a.composePDF(ctx, st, w.Dir(), flagString(cmd, "out")); err != nil {
			return err
		}
	}
	if flagBool(cmd, "play") {
		return a.playStory(st)
	}
	return nil
}

// Export composes a PDF from a saved story: the directory given as an
// argument, or the most recent one.
func (a *App) Export(cmd *cobra.Command, args []string) error {
	dir, err := a.resolveDir(args)
	if err != nil {
		return err
	}
	st, err := dir.Load()
	if err != nil {
		return err
	}

	ctx, cancel := a.runContext()
	defer cancel()
	return a.composePDF(ctx, st, dir, flagString(cmd, "out"))
}

func (a *App) composePDF(ctx context.Context, st *story.Story, dir *assets.StoryDir, out string) error {
	if out == "" {
		out = filepath.Join(dir.Path(), export.Filename(st.Title))
	}

	// Without a key the cover page is skipped rather than failing the export.
	var covers export.CoverSource
	if a.client.HasCredentials() {
		covers = a.client
	} else {
		colours.Warning.Println("🔑 No API key configured, exporting without a cover page")
	}

	colours.Progress.Println("📄 Composing your PDF storybook...")
	if err := export.NewComposer(covers).Compose(ctx, st, out); err != nil {
		return err
	}
	colours.Success.Printf("✅ Storybook exported to %s\n", out)
	return nil
}

// Play reads a saved story aloud, paragraph by paragraph.
func (a *App) Play(cmd *cobra.Command, args []string) error {
	dir, err := a.resolveDir(args)
	if err != nil {
		return err
	}
	st, err := dir.Load()
	if err != nil {
		return err
	}
	return a.playStory(st)
}

func (a *App) playStory(st *story.Story) error {
	colours.Title.Printf("\n🔊 %s\n\n", st.Title)
	played := 0
	for _, seg := range st.Segments {
		colours.Story.Println(seg.Paragraph)
		fmt.Println()
		if seg.AudioPath == "" {
			continue
		}
		if err := a.player.Play(seg.AudioPath); err != nil {
			return err
		}
		a.player.Wait()
		played++
	}
	if played == 0 {
		colours.Warning.Println("🔇 This story has no narration clips. Generate with --narrate to add them.")
	}
	return nil
}

func (a *App) resolveDir(args []string) (*assets.StoryDir, error) {
	if len(args) > 0 {
		return assets.OpenDir(args[0]), nil
	}
	return a.store.Latest()
}

// SetKey stores the user's API key in the config file.
func (a *App) SetKey(cmd *cobra.Command, args []string) error {
	key := strings.TrimSpace(args[0])
	if key == "" {
		return errors.New("the key must not be empty")
	}
	viper.Set(config.KeyUserAPIKey, key)
	if err := config.Save(); err != nil {
		return err
	}
	a.keys.SetUserKey(key)
	colours.Success.Println("🔑 API key saved.")
	return nil
}

// ShowKeys prints the configured keys, masked.
func (a *App) ShowKeys(cmd *cobra.Command, args []string) error {
	user := config.UserAPIKey()
	if user == "" {
		colours.Warning.Println("🔑 No user API key configured. Set one with: storyweaver keys set <key>")
	} else {
		colours.Info.Printf("🔑 User key: %s\n", maskKey(user))
	}
	if fallbacks := a.keys.Len() - boolToInt(user != ""); fallbacks > 0 {
		colours.Info.Printf("🗝️  Built-in fallback keys: %d\n", fallbacks)
	}
	return nil
}

// TestKey verifies a key (the argument, or the configured one) with a minimal
// generation call.
func (a *App) TestKey(cmd *cobra.Command, args []string) error {
	key := config.UserAPIKey()
	if len(args) > 0 {
		key = strings.TrimSpace(args[0])
	}

	ctx, cancel := a.runContext()
	defer cancel()

	colours.Progress.Println("🔍 Testing API key...")
	err := a.client.TestKey(ctx, key)
	if err != nil {
		colours.Error.Printf("❌ %s\n", gen.KeyVerdict(err))
		return err
	}
	colours.Success.Printf("✅ %s\n", gen.KeyVerdict(nil))
	return nil
}

// Settings shows the persisted defaults, updating any the flags change.
func (a *App) Settings(cmd *cobra.Command, args []string) error {
	changed := false
	set := func(flag, key string) {
		if cmd.Flags().Changed(flag) {
			viper.Set(key, flagString(cmd, flag))
			changed = true
		}
	}
	set("length", config.KeyStoryLength)
	set("genre", config.KeyStoryGenre)
	set("style", config.KeyImageStyle)
	set("language", config.KeyStoryLanguage)
	set("engine", config.KeyNarrationEngine)
	set("voice", config.KeyNarrationVoice)
	set("output", config.KeyOutputDir)
	if cmd.Flags().Changed("narrate") {
		viper.Set(config.KeyNarrationEnabled, flagBool(cmd, "narrate"))
		changed = true
	}

	if changed {
		if err := config.Save(); err != nil {
			return err
		}
		colours.Success.Println("⚙️  Settings saved.")
	}

	colours.Title.Println("\n⚙️  Current settings")
	colours.Info.Printf("  Story length:     %s\n", viper.GetString(config.KeyStoryLength))
	colours.Info.Printf("  Genre:            %s\n", viper.GetString(config.KeyStoryGenre))
	colours.Info.Printf("  Image style:      %s\n", viper.GetString(config.KeyImageStyle))
	colours.Info.Printf("  Language:         %s\n", viper.GetString(config.KeyStoryLanguage))
	colours.Info.Printf("  Narration:        %v (%s, voice %s)\n",
		viper.GetBool(config.KeyNarrationEnabled),
		viper.GetString(config.KeyNarrationEngine),
		viper.GetString(config.KeyNarrationVoice))
	colours.Info.Printf("  Output directory: %s\n", viper.GetString(config.KeyOutputDir))
	return nil
}

// progressPrinter renders pipeline progress on the terminal.
type progressPrinter struct{}

func (progressPrinter) StateChanged(s weaver.State) {
	switch s {
	case weaver.StateStoryRequested:
		colours.Progress.Println("✍️  Writing your story...")
	case weaver.StateStoryReady:
		colours.Success.Println("📖 Story written! Bringing the pages to life...")
	case weaver.StateDone:
		colours.Success.Println("🎉 Your storybook is complete!")
	}
}

func (progressPrinter) SegmentUpdated(seg story.Segment, index, total int) {
	switch {
	case seg.LoadingImage:
		colours.Progress.Printf("🎨 Working on page %d of %d...\n", index+1, total)
	case seg.ImagePath != "" && !seg.LoadingAudio:
		colours.Success.Printf("✅ Page %d of %d ready\n", index+1, total)
	}
}

func (progressPrinter) RunFailed(err error) {
	colours.Warning.Println("💔 The run stopped early; finished pages are kept.")
}

func printStory(st *story.Story) {
	colours.Title.Printf("\n📖 %s\n\n", st.Title)
	for _, seg := range st.Segments {
		colours.Story.Println(seg.Paragraph)
		fmt.Println()
	}
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func flagString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}

func flagBool(cmd *cobra.Command, name string) bool {
	v, _ := cmd.Flags().GetBool(name)
	return v
}
