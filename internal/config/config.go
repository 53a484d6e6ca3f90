package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "STORYLOOM"

type Config struct {
	TTS          TTS          `mapstructure:"tts"`
	Illustration Illustration `mapstructure:"illustration"`
	Gemini       Gemini       `mapstructure:"gemini"`
	Retry        Retry        `mapstructure:"retry"`
	Audio        Audio        `mapstructure:"audio"`
	Playback     Playback     `mapstructure:"playback"`
	Story        Story        `mapstructure:"story"`
	Log          Log          `mapstructure:"log"`
	Telemetry    Telemetry    `mapstructure:"telemetry"`
	UI           UI           `mapstructure:"ui"`
}

type TTS struct {
	Type         string `mapstructure:"type"`
	Voice        string `mapstructure:"voice"`
	Tone         string `mapstructure:"tone"`
	LanguageCode string `mapstructure:"language_code"`
	ClassicVoice string `mapstructure:"classic_voice"`
}

type Illustration struct {
	Type string `mapstructure:"type"`
}

type Gemini struct {
	APIKey            string `mapstructure:"api_key"`
	ImageModel        string `mapstructure:"image_model"`
	SpeechModel       string `mapstructure:"speech_model"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
}

type Retry struct {
	MaxAttempts  int           `mapstructure:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	MaxJitter    time.Duration `mapstructure:"max_jitter"`
}

type Audio struct {
	Backend string        `mapstructure:"backend"`
	Buffer  time.Duration `mapstructure:"buffer"`
}

type Playback struct {
	AutoAdvance      bool          `mapstructure:"auto_advance"`
	AutoAdvanceDelay time.Duration `mapstructure:"auto_advance_delay"`
}

type Story struct {
	ID         string `mapstructure:"id"`
	Script     string `mapstructure:"script"`
	LibraryDir string `mapstructure:"library_dir"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

type Telemetry struct {
	TraceFile string `mapstructure:"trace_file"`
}

type UI struct {
	NoticeTTL time.Duration `mapstructure:"notice_ttl"`
}

func SetDefaults() {
	viper.SetDefault("tts.type", "auto") // Auto-select best engine
	viper.SetDefault("tts.voice", "Puck")
	viper.SetDefault("tts.tone", "")
	viper.SetDefault("tts.language_code", "en-US")
	viper.SetDefault("tts.classic_voice", "en-US-Chirp3-HD-Charon")

	viper.SetDefault("illustration.type", "auto")

	viper.SetDefault("gemini.api_key", "")
	viper.SetDefault("gemini.image_model", "gemini-2.5-flash-image")
	viper.SetDefault("gemini.speech_model", "gemini-2.5-flash-preview-tts")
	viper.SetDefault("gemini.requests_per_minute", 20)

	viper.SetDefault("retry.max_attempts", 4)
	viper.SetDefault("retry.initial_delay", 2*time.Second)
	viper.SetDefault("retry.max_jitter", time.Second)

	viper.SetDefault("audio.backend", "beep")
	viper.SetDefault("audio.buffer", 100*time.Millisecond)

	viper.SetDefault("playback.auto_advance", false)
	viper.SetDefault("playback.auto_advance_delay", 1500*time.Millisecond)

	viper.SetDefault("story.id", "fede")
	viper.SetDefault("story.script", "")
	viper.SetDefault("story.library_dir", "stories")

	// warn keeps log lines out of the interactive prompt
	viper.SetDefault("log.level", "warn")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("log.file", "")

	viper.SetDefault("telemetry.trace_file", "")

	viper.SetDefault("ui.notice_ttl", 4*time.Second)
}

// BindEnv maps STORYLOOM_* variables onto config keys. The Gemini key is
// also read from the variables the Google SDKs use.
func BindEnv() error {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	return viper.BindEnv("gemini.api_key", EnvPrefix+"_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY", "API_KEY")
}

// ReadFile loads storyloom.yaml from $HOME/.storyloom or the working
// directory. A missing file is not an error.
func ReadFile() error {
	viper.SetConfigName("storyloom")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.storyloom")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

func Load() (Config, error) {
	var c Config
	if err := viper.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if c.Retry.MaxAttempts < 1 {
		return Config{}, fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	return c, nil
}
