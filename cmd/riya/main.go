package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"riya/internal/audio"
	"riya/internal/automation"
	"riya/internal/capture"
	"riya/internal/chatui"
	"riya/internal/config"
	"riya/internal/intent"
	"riya/internal/ipc"
	"riya/internal/lookup"
	"riya/internal/nlu"
	"riya/internal/notify"
	"riya/internal/proxy"
	"riya/internal/router"
	"riya/internal/session"
	"riya/internal/transcript"
	"riya/internal/tts"
	"riya/pkg/stt/whisper"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	proxyAddr := cli.StringP("proxy", "p", "", "Socks proxy address")
	uiAddr := cli.StringP("ui", "u", "", "Chat window address, e.g. 127.0.0.1:8093")
	mic := cli.BoolP("mic", "m", true, "Start with the microphone on")
	replay := cli.StringSliceP("replay", "r", nil, "Audio files to feed instead of the microphone")
	socket := cli.StringP("socket", "s", "", "Control socket path")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      logLevelMap[*logLevel],
		TimeFormat: time.TimeOnly,
	})))

	log.Info("Booting up")

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Error("Failed to load config", "err", err)
		os.Exit(1)
	}
	if cli.CommandLine.Changed("proxy") {
		cfg.ProxyAddr = *proxyAddr
	}
	if cli.CommandLine.Changed("ui") {
		cfg.UIAddr = *uiAddr
	}
	if cli.CommandLine.Changed("mic") {
		cfg.MicEnabled = *mic
	}
	if cli.CommandLine.Changed("socket") {
		cfg.SocketPath = *socket
	}
	cfg.ReplayFiles = *replay

	if err := cfg.Validate(); err != nil {
		log.Error("Invalid config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Error("Assistant failed", "err", err)
		os.Exit(1)
	}
	log.Info("Bye")
}

func run(ctx context.Context, cfg config.Config) error {
	httpClient, err := proxy.NewClient(cfg.ProxyAddr, cfg.HTTPTimeout)
	if err != nil {
		return fmt.Errorf("socks proxy %s: %w", cfg.ProxyAddr, err)
	}
	log.Debug("Loaded http client", "proxy", cfg.ProxyAddr)

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.OpenAIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(1),
	}
	if cfg.OpenAIBaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.OpenAIBaseURL))
	}
	client := openai.NewClient(opts...)
	lang := nlu.New(client, nlu.Config{Model: cfg.ChatModel, Assistant: cfg.Assistant, User: cfg.User})

	out, err := audio.NewSpeaker(44100, 20*time.Millisecond)
	if err != nil {
		return err
	}
	engine := tts.NewEngine(synthesizer(cfg, client), out, tts.Config{
		Voice:      tts.Voice{Name: cfg.Voice, Rate: cfg.Rate, Pitch: cfg.Pitch, Lang: cfg.Language},
		Ducker:     audio.NewDucker([]string{"riya", "ALSA plug-in [riya]"}, 15),
		DuckFactor: 0.3,
		DuckFade:   250 * time.Millisecond,
	})
	defer engine.Close()
	log.Debug("Loaded speech engine")

	rec, closeRec, err := recorder(cfg)
	if err != nil {
		return err
	}
	defer closeRec()

	tr, err := whisper.NewTranscriber(cfg.WhisperModel, whisper.Options{Language: "auto"})
	if err != nil {
		return fmt.Errorf("whisper: %w", err)
	}
	defer tr.Close()
	log.Debug("Loaded whisper", "model", cfg.WhisperModel)

	capt := capture.New(rec, tr, lang, cfg.Language)
	if cfg.MicEnabled && len(cfg.ReplayFiles) == 0 {
		log.Info("Calibrating for ambient noise")
		if err := capt.Calibrate(ctx, time.Second); err != nil {
			log.Warn("Calibration failed", "err", err)
		}
	}

	rt := router.New(
		automation.New(lang, automation.Config{}),
		lang,
		router.Lookups{
			Stock:   lookup.NewStock(httpClient),
			Crypto:  lookup.NewCrypto(httpClient),
			Weather: lookup.NewWeather(httpClient, cfg.WeatherKey),
			News:    lookup.NewNews(httpClient, cfg.NewsKey),
			Locator: lookup.NewLocator(httpClient),
		},
		router.Config{DefaultCity: cfg.DefaultCity},
	)

	history := transcript.Open(cfg.Transcript, transcript.DefaultLimit)

	notifier, err := notify.New(cfg.Assistant, engine, cfg.ChimePath)
	if err != nil {
		log.Warn("Chime disabled", "err", err)
		notifier, _ = notify.New(cfg.Assistant, nil, "")
	}

	deps := session.Deps{
		Capture:    capt,
		Classifier: intent.New(lang),
		Router:     rt,
		Speaker:    engine,
		History:    history,
		Notifier:   notifier,
	}

	var hub *chatui.Hub
	if cfg.UIAddr != "" {
		hub = chatui.NewHub(history.Entries)
		deps.Sink = hub
	}

	sess := session.New(deps, session.Config{
		User:        cfg.User,
		Onset:       cfg.ListenOnset,
		PhraseLimit: cfg.PhraseLimit,
		LongAnswer:  cfg.LongAnswer,
		MicEnabled:  cfg.MicEnabled,
		Greet:       true,
	})

	if hub != nil {
		srv := &http.Server{Addr: cfg.UIAddr, Handler: hub.Handler()}
		go func() {
			log.Info("Chat window", "url", "http://"+cfg.UIAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Chat window server failed", "err", err)
			}
		}()
		go forwardEvents(ctx, hub, sess)
		defer func() {
			hub.Close()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	ctl, err := ipc.StartServer(cfg.SocketPath, func(msg ipc.ControlMessage) error {
		return control(ctx, sess, msg)
	})
	if err != nil {
		return fmt.Errorf("control socket: %w", err)
	}
	defer ctl.Close()

	log.Info("Boot up - successful", "assistant", cfg.Assistant, "mic", cfg.MicEnabled)
	return sess.Run(ctx)
}

// synthesizer orders the speech providers; "auto" tries the online voices
// first and falls back to espeak-ng.
func synthesizer(cfg config.Config, client openai.Client) tts.Synthesizer {
	edge := tts.NewEdge(30 * time.Second)
	oa := tts.NewOpenAI(client, cfg.SpeechModel, cfg.SpeechVoice)
	espeak := tts.NewEspeak()

	switch cfg.TTSProvider {
	case "edge":
		return tts.Chain{edge, espeak}
	case "openai":
		return tts.Chain{oa, espeak}
	case "espeak":
		return espeak
	default:
		return tts.Chain{edge, oa, espeak}
	}
}

func recorder(cfg config.Config) (capture.Recorder, func(), error) {
	if len(cfg.ReplayFiles) > 0 {
		log.Info("Replaying audio files", "count", len(cfg.ReplayFiles))
		return audio.NewFileSource(cfg.ReplayFiles), func() {}, nil
	}

	rec := audio.NewRecorder()
	if err := rec.Init(); err != nil {
		return nil, nil, fmt.Errorf("init audio: %w", err)
	}
	log.Debug("Loaded recorder")
	return rec, rec.Close, nil
}

func forwardEvents(ctx context.Context, hub *chatui.Hub, sess *session.Session) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-hub.Events():
			switch ev.Type {
			case chatui.EventSend:
				sess.Submit(ev.Text)
			case chatui.EventMic:
				sess.SetMic(ev.On)
			}
		}
	}
}

func control(ctx context.Context, sess *session.Session, msg ipc.ControlMessage) error {
	switch msg.Cmd {
	case ipc.CmdStop:
		sess.Control(ctx, intent.Stop)
	case ipc.CmdResume:
		sess.Control(ctx, intent.Resume)
	case ipc.CmdExit:
		sess.Control(ctx, intent.Exit)
	case ipc.CmdMicOn:
		sess.SetMic(true)
	case ipc.CmdMicOff:
		sess.SetMic(false)
	case ipc.CmdSay:
		if msg.Text == "" {
			return errors.New("say needs text")
		}
		sess.Submit(msg.Text)
	default:
		return fmt.Errorf("unknown command %q", msg.Cmd)
	}
	return nil
}
