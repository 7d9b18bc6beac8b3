package stt

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"sync"

	"echomarket/internal/audio"
	"echomarket/internal/speech"
	"echomarket/pkg/audioconv"
)

// Source yields one utterance of 16 kHz mono PCM per call.
type Source interface {
	Capture(ctx context.Context) ([]float32, error)
}

type Engine interface {
	TranscribePCM(ctx context.Context, pcm16k []float32, opt Options) (Result, error)
}

// Recognizer turns captured audio into speech.Results. Whisper has no
// partial hypotheses, so every result is final.
type Recognizer struct {
	src Source
	eng Engine
	opt Options
}

func NewRecognizer(src Source, eng Engine, opt Options) *Recognizer {
	return &Recognizer{src: src, eng: eng, opt: opt}
}

// Start listens until a transcript is delivered, or until ctx is cancelled
// when opt.Continuous is set. Missing speech is reported only in one-shot
// mode; device failures end the recognition.
func (r *Recognizer) Start(ctx context.Context, opt speech.Options) (<-chan speech.Result, error) {
	if r.src == nil || r.eng == nil {
		return nil, speech.ErrUnavailable
	}

	wopt := r.opt
	if opt.Lang != "" {
		wopt.Language = opt.Lang
	}

	out := make(chan speech.Result, 1)
	go func() {
		defer close(out)

		emit := func(res speech.Result) bool {
			select {
			case out <- res:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for ctx.Err() == nil {
			pcm, err := r.src.Capture(ctx)
			switch {
			case ctx.Err() != nil:
				return
			case errors.Is(err, audio.ErrNoSpeech):
				if !opt.Continuous && !emit(speech.Result{Err: &speech.RecognitionError{Code: speech.CodeNoSpeech}}) {
					return
				}
				continue
			case err != nil:
				log.Error("Failed to record", "err", err)
				emit(speech.Result{Err: &speech.RecognitionError{Code: speech.CodeAudioCapture, Err: err}})
				return
			}

			res, err := r.eng.TranscribePCM(ctx, pcm, wopt)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if !emit(speech.Result{Err: fmt.Errorf("transcribe: %w", err)}) {
					return
				}
				continue
			}
			if res.Text == "" {
				if !opt.Continuous && !emit(speech.Result{Err: &speech.RecognitionError{Code: speech.CodeNoSpeech}}) {
					return
				}
				continue
			}

			log.Debug("Transcribed", "text", res.Text, "lang", res.Language)
			if !emit(speech.Result{Text: res.Text, Final: true}) || !opt.Continuous {
				return
			}
		}
	}()

	return out, nil
}

// Replay feeds recorded files in order, one per Capture. Once they run out
// it behaves like a silent room.
type Replay struct {
	mu    sync.Mutex
	paths []string
	opt   audioconv.Options
}

func NewReplay(paths []string) *Replay {
	return &Replay{paths: append([]string(nil), paths...)}
}

func (rp *Replay) Capture(ctx context.Context) ([]float32, error) {
	rp.mu.Lock()
	if len(rp.paths) == 0 {
		rp.mu.Unlock()
		<-ctx.Done()
		return nil, ctx.Err()
	}
	path := rp.paths[0]
	rp.paths = rp.paths[1:]
	rp.mu.Unlock()

	log.Info("Replaying", "file", path)
	pcm, err := audioconv.DecodeFile(ctx, path, rp.opt)
	if err != nil {
		return nil, err
	}
	if len(pcm) == 0 {
		return nil, audio.ErrNoSpeech
	}
	return pcm, nil
}

func (rp *Replay) Remaining() int {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	return len(rp.paths)
}
