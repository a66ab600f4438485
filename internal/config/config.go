// Package config gathers the assistant's settings from an env file, the
// process environment and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"
)

type Config struct {
	OpenAIKey     string
	OpenAIBaseURL string
	ChatModel     string
	WeatherKey    string
	NewsKey       string

	Assistant string
	User      string
	Language  string // working language, BCP 47

	TTSProvider string // auto|edge|openai|espeak
	Voice       string
	Rate        string // "+10%"
	Pitch       string // "+0Hz"
	SpeechModel string
	SpeechVoice string

	WhisperModel string
	MicEnabled   bool
	ReplayFiles  []string
	ChimePath    string

	DefaultCity  string
	UIAddr       string // empty disables the chat window
	SocketPath   string
	Transcript   string
	ProxyAddr    string
	HTTPTimeout  time.Duration
	PhraseLimit  time.Duration
	ListenOnset  time.Duration
	LongAnswer   int // characters above which only a summary is spoken
}

func Default() Config {
	return Config{
		ChatModel:    "gpt-4o-mini",
		Assistant:    "Riya",
		User:         "Sir",
		Language:     "en",
		TTSProvider:  "auto",
		Voice:        "en-US-JennyNeural",
		Rate:         "+0%",
		Pitch:        "+0Hz",
		SpeechModel:  "gpt-4o-mini-tts",
		SpeechVoice:  "nova",
		WhisperModel: "models/ggml-base.en.bin",
		MicEnabled:   true,
		DefaultCity:  "Delhi",
		SocketPath:   "/tmp/riya.sock",
		Transcript:   "data/chatlog.json",
		HTTPTimeout:  30 * time.Second,
		PhraseLimit:  10 * time.Second,
		ListenOnset:  5 * time.Second,
		LongAnswer:   250,
	}
}

// Load reads envFile (a missing file is fine) and then the environment on
// top of the defaults.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv applies the variables visible through lookup to the defaults.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	c := Default()
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("OPENAI_API_KEY", &c.OpenAIKey)
	str("OPENAI_BASE_URL", &c.OpenAIBaseURL)
	str("CHAT_MODEL", &c.ChatModel)
	str("WEATHER_API_KEY", &c.WeatherKey)
	str("NEWS_API_KEY", &c.NewsKey)
	str("ASSISTANT_NAME", &c.Assistant)
	str("USERNAME", &c.User)
	str("INPUT_LANGUAGE", &c.Language)
	str("TTS_PROVIDER", &c.TTSProvider)
	str("ASSISTANT_VOICE", &c.Voice)
	str("ASSISTANT_RATE", &c.Rate)
	str("ASSISTANT_PITCH", &c.Pitch)
	str("SPEECH_MODEL", &c.SpeechModel)
	str("SPEECH_VOICE", &c.SpeechVoice)
	str("WHISPER_MODEL", &c.WhisperModel)
	str("CHIME_PATH", &c.ChimePath)
	str("DEFAULT_CITY", &c.DefaultCity)
	str("CHAT_UI_ADDR", &c.UIAddr)
	str("CONTROL_SOCKET", &c.SocketPath)
	str("TRANSCRIPT_PATH", &c.Transcript)
	str("SOCKS_PROXY", &c.ProxyAddr)
	dur("HTTP_TIMEOUT", &c.HTTPTimeout)
	dur("PHRASE_LIMIT", &c.PhraseLimit)
	dur("LISTEN_ONSET", &c.ListenOnset)

	if v, ok := lookup("MIC_ENABLED"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("MIC_ENABLED: %w", err))
		} else {
			c.MicEnabled = b
		}
	}
	if v, ok := lookup("LONG_ANSWER_CHARS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("LONG_ANSWER_CHARS: %w", err))
		} else {
			c.LongAnswer = n
		}
	}

	return c, errors.Join(errs...)
}

var (
	rateRe  = regexp.MustCompile(`^[+-]\d{1,3}%$`)
	pitchRe = regexp.MustCompile(`^[+-]\d{1,3}Hz$`)
)

var providers = map[string]bool{"auto": true, "edge": true, "openai": true, "espeak": true}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error

	if c.OpenAIKey == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY not set"))
	}
	if !providers[c.TTSProvider] {
		errs = append(errs, fmt.Errorf("unknown TTS_PROVIDER %q", c.TTSProvider))
	}
	if c.TTSProvider == "openai" && c.OpenAIKey == "" {
		errs = append(errs, errors.New("TTS_PROVIDER openai needs OPENAI_API_KEY"))
	}
	if !rateRe.MatchString(c.Rate) {
		errs = append(errs, fmt.Errorf("ASSISTANT_RATE %q: want a signed percentage like +10%%", c.Rate))
	}
	if !pitchRe.MatchString(c.Pitch) {
		errs = append(errs, fmt.Errorf("ASSISTANT_PITCH %q: want a signed value like -5Hz", c.Pitch))
	}
	if _, err := language.Parse(c.Language); err != nil {
		errs = append(errs, fmt.Errorf("INPUT_LANGUAGE %q: %w", c.Language, err))
	}
	if c.MicEnabled && len(c.ReplayFiles) == 0 && c.WhisperModel == "" {
		errs = append(errs, errors.New("WHISPER_MODEL not set"))
	}
	if c.PhraseLimit <= 0 || c.ListenOnset <= 0 {
		errs = append(errs, errors.New("PHRASE_LIMIT and LISTEN_ONSET must be positive"))
	}
	if c.SocketPath == "" {
		errs = append(errs, errors.New("CONTROL_SOCKET not set"))
	}

	return errors.Join(errs...)
}
