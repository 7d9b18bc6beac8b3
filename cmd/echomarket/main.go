package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/lmittmann/tint"
	log "log/slog"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"echomarket/internal/app"
	"echomarket/internal/audio"
	"echomarket/internal/ipc"
	"echomarket/internal/nlu"
	"echomarket/internal/notify"
	"echomarket/internal/proxy"
	"echomarket/internal/shop"
	"echomarket/internal/speech"
	"echomarket/internal/store"
	"echomarket/internal/tts"
	"echomarket/internal/voice"
	"echomarket/pkg/catalog"
	"echomarket/pkg/protocol"
	"echomarket/pkg/stt"
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
	logFile := cli.String("log-file", "", "Also write logs to this rotating file")
	proxyAddr := cli.StringP("proxy", "p", "", "Socks proxy address for the LLM fallback")
	busURL := cli.StringP("bus", "b", "", "Url of the storefront bus, e.g. ws://localhost:8092")
	input := cli.StringP("input", "i", "mic", "Speech input: mic, text or replay")
	replay := cli.StringSlice("replay", nil, "Audio files answered in order with --input replay")
	model := cli.StringP("model", "m", "third_party/whisper.cpp/models/ggml-base.en.bin", "Whisper model path")
	speakerKind := cli.String("speaker", "espeak", "Speech output: espeak or console")
	duck := cli.Bool("duck", false, "Lower other audio while speaking")
	prefsPath := cli.String("prefs", defaultPrefsPath(), "Preferences file")
	listenTimeout := cli.Duration("listen-timeout", 0, "Re-prompt unanswered questions after this long (0 waits)")
	lang := cli.String("lang", speech.DefaultLang, "Speech language")
	beepPath := cli.String("beep", "beep.mp3", "Cue played before free-form answers")
	socket := cli.String("socket", ipc.SocketPath, "Control socket path")
	cli.Parse()

	setupLogging(*logLevel, *logFile)

	log.Info("Booting up")

	godotenv.Load(*envFile)

	prefs, err := store.Open(*prefsPath)
	if err != nil {
		log.Error("Failed to open preferences", "path", *prefsPath, "err", err)
		os.Exit(1)
	}

	fallback := newFallback(*proxyAddr)

	sp := newSpeaker(*speakerKind, *duck)

	var typed *speech.Typed
	var rec speech.Recognizer
	switch *input {
	case "text":
		typed = speech.NewTyped()
		rec = typed
	case "mic":
		recorder := audio.NewRecorder(audio.DefaultSettings)
		if err := recorder.Init(); err != nil {
			log.Error("Failed to init audio", "err", err)
			rec = speech.Unavailable{}
			break
		}
		defer recorder.Close()
		rec = newRecognizer(recorder, *model)
	case "replay":
		rec = newRecognizer(stt.NewReplay(*replay), *model)
	default:
		log.Error("Unknown input", "input", *input)
		os.Exit(1)
	}

	var cue func()
	if beeper, err := notify.NewBeeper(*beepPath); err != nil {
		log.Warn("Listening cue disabled", "err", err)
	} else {
		cue = beeper.Play
	}

	deps := app.Deps{
		Interpreter: nlu.NewInterpreter(nil, catalog.Products, fallback),
		Speaker:     sp,
		Recognizer:  rec,
		Typed:       typed,
		Cart:        shop.NewCart(),
		Prefs:       prefs,
	}

	var bus *protocol.Protocol
	if *busURL != "" {
		bus, err = protocol.NewProtocol(protocol.PtclConfig{
			Shard:  protocol.ShardVox,
			Url:    *busURL,
			Reconn: time.Second,
		})
		if err != nil {
			log.Error("Failed to connect to bus", "url", *busURL, "err", err)
			os.Exit(1)
		}
		deps.Bus = bus
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifier := notify.NewNotifier(ctx, 8)

	a := app.New(deps, app.Config{
		Lang:          *lang,
		Settle:        voice.DefaultSettle,
		ListenTimeout: *listenTimeout,
		RestartDelay:  voice.DefaultRestartDelay,
		Cue:           cue,
		Notify:        notifier.Toast,
	})

	srv, err := ipc.StartServer(*socket, a.Control)
	if err != nil {
		log.Error("Failed ipc server", "err", err)
		os.Exit(1)
	}
	defer srv.Close()

	if bus != nil {
		bus.EmitOut(a.HandleBus)
		go bus.Run(ctx)
	}

	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()

	log.Info("Boot up - successful", "input", *input, "speaker", *speakerKind, "user", a.User())
	a.Start()

	<-ctx.Done()
	log.Info("Shutting down")
	<-done
}

func setupLogging(level, file string) {
	var w io.Writer = os.Stdout
	noColor := false
	if file != "" {
		w = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   file,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		})
		noColor = true
	}

	log.SetDefault(log.New(tint.NewHandler(w, &tint.Options{
		Level:   logLevelMap[level],
		NoColor: noColor,
	})))
}

func defaultPrefsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".echomarket", "prefs.gob")
}

// newFallback returns nil when no API key is configured; commands outside
// the rule table then get the not-understood reply.
func newFallback(proxyAddr string) nlu.Classifier {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Warn("OPENAI_API_KEY not set, LLM fallback disabled")
		return nil
	}

	httpClient, err := proxy.NewClient(proxyAddr)
	if err != nil {
		log.Error("Failed to dial socks proxy", "proxy", proxyAddr, "err", err)
		return nil
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
	)
	log.Debug("Loaded LLM fallback", "proxy", proxyAddr)
	return nlu.NewLLMClassifier(client, os.Getenv("OPENAI_MODEL"))
}

func newSpeaker(kind string, duck bool) speech.Speaker {
	if kind == "console" {
		return speech.NewConsole()
	}

	var ducker tts.Ducker
	if duck {
		ducker = audio.NewDucker([]string{"espeak", "espeak-ng", "echomarket"}, 0.3, 10, 200*time.Millisecond)
	}
	es, err := tts.NewEspeak(ducker)
	if err != nil {
		log.Error("Failed to init espeak, printing replies instead", "err", err)
		return speech.NewConsole()
	}
	return es
}

func newRecognizer(src stt.Source, model string) speech.Recognizer {
	whisper, err := stt.NewTranscriber(model)
	if err != nil {
		log.Error("Failed to init whisper", "err", err)
		return speech.Unavailable{}
	}
	log.Debug("Loaded whisper", "model", model)

	names := make([]string, 0, len(catalog.Products))
	for _, p := range catalog.Products {
		names = append(names, p.Name)
	}
	return stt.NewRecognizer(src, whisper, stt.Options{
		InitialPrompt: "Shop commands. Products: " + strings.Join(names, ", ") + ".",
	})
}
