package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"storyloom/internal/cli/scheme/colours"
	"storyloom/internal/config"
	"storyloom/internal/story/nest"
	"storyloom/internal/telemetry"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		colours.Warning.Printf("⚠️ Could not read .env: %v\n", err)
	}

	config.SetDefaults()

	var (
		app             *nest.StoryNest
		shutdownTracing func(context.Context) error
		closeLog        func()
	)

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		if app != nil {
			app.Stop()
			app.Cancel()
		}
		if shutdownTracing != nil {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			_ = shutdownTracing(ctx)
			cancel()
		}
		fmt.Println("\n" + colours.Warning.Sprint("👋 Goodbye! Sweet dreams! 🌙"))
		os.Exit(0)
	}()

	rootCmd := &cobra.Command{
		Use:   "storyloom",
		Short: "📖 An illustrated, narrated storybook for the terminal",
		Long: `
┌─────────────────────────────────────┐
│  📚 Welcome to Storyloom! 🧶        │
│  Illustrated stories, read aloud    │
│  one page at a time 👶✨            │
└─────────────────────────────────────┘

Storyloom pages through a story, painting a picture and reading each
page aloud as you go. Turn the pages yourself or sit back in movie mode. 🎬
		`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.BindEnv(); err != nil {
				return err
			}
			if err := config.ReadFile(); err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			closeLog, err = setupLogging(cfg.Log)
			if err != nil {
				return err
			}
			shutdownTracing, err = telemetry.Setup(cfg.Telemetry.TraceFile)
			if err != nil {
				return err
			}

			app, err = nest.NewStoryNest(cfg)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if app != nil {
				app.Cancel()
			}
			if closeLog != nil {
				defer closeLog()
			}
			if shutdownTracing != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return shutdownTracing(ctx)
			}
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			app.ShowWelcome()
		},
	}

	readCmd := &cobra.Command{
		Use:   "read [story-id]",
		Short: "📖 Read a story page by page",
		Long:  "Read a story by its ID, turning the pages yourself",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Read(cmd, args)
		},
	}

	movieCmd := &cobra.Command{
		Use:   "movie [story-id]",
		Short: "🎬 Watch a story play on its own",
		Long:  "Read a story with the pages turning automatically after each narration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Movie(cmd, args)
		},
	}

	episodesCmd := &cobra.Command{
		Use:   "episodes [story-id]",
		Short: "📄 List the pages of a story",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.ListEpisodes(cmd, args)
		},
	}

	storiesCmd := &cobra.Command{
		Use:   "stories",
		Short: "📋 List available stories",
		Long:  "Display the built-in story and every script in the story library directory",
		Run: func(cmd *cobra.Command, args []string) {
			app.ListStories(cmd, args)
		},
	}

	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "⚙️ Show narration and playback settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.ShowSettings(cmd, args)
		},
	}

	// Add flags
	flags := rootCmd.PersistentFlags()
	flags.StringP("story", "s", "", "ID of the story to read")
	flags.String("script", "", "Path to a YAML story script")
	flags.StringP("engine", "e", "", "Narration engine: auto, gemini, googleclassic or mock")
	flags.String("illustrator", "", "Illustration engine: auto, gemini or mock")
	flags.StringP("backend", "b", "", "Audio backend: beep, oto or null")
	flags.StringP("voice", "v", "", "Optional voice to use for reading")
	settingsCmd.Flags().Bool("voices", false, "List the voices of the narration engine")

	for key, flag := range map[string]string{
		"story.id":          "story",
		"story.script":      "script",
		"tts.type":          "engine",
		"illustration.type": "illustrator",
		"audio.backend":     "backend",
		"tts.voice":         "voice",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			colours.Error.Printf("❌ Error: %v\n", err)
			os.Exit(1)
		}
	}

	rootCmd.AddCommand(readCmd, movieCmd, episodesCmd, storiesCmd, settingsCmd)

	if err := rootCmd.Execute(); err != nil {
		colours.Error.Printf("❌ Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogging(cfg config.Log) (func(), error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	logrus.SetLevel(level)

	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if cfg.File == "" {
		return func() {}, nil
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logrus.SetOutput(f)
	return func() { f.Close() }, nil
}
