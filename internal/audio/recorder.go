package audio

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

var ErrNoSpeech = errors.New("no speech detected")

type Settings struct {
	SampleRate int
	FrameSize  int
	// Frames quieter than this RMS count as silence.
	SilenceRMS float64
	// Trailing silence that ends an utterance.
	Silence time.Duration
	// How long to wait for the first loud frame.
	NoSpeech  time.Duration
	MaxLength time.Duration
}

var DefaultSettings = Settings{
	SampleRate: 16000,
	FrameSize:  320, // 20ms
	SilenceRMS: 0.015,
	Silence:    600 * time.Millisecond,
	NoSpeech:   5 * time.Second,
	MaxLength:  10 * time.Second,
}

func (s Settings) frames(d time.Duration) int {
	n := int(int64(d) * int64(s.SampleRate) / (int64(s.FrameSize) * int64(time.Second)))
	if n < 1 {
		n = 1
	}
	return n
}

// Recorder captures one utterance at a time from the default input device.
type Recorder struct {
	mu       sync.Mutex
	settings Settings
}

func NewRecorder(s Settings) *Recorder {
	if s.SampleRate == 0 {
		s = DefaultSettings
	}
	return &Recorder{settings: s}
}

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// Capture records until the speaker goes quiet. It returns ErrNoSpeech when
// nobody talks within Settings.NoSpeech and ctx.Err() when cancelled.
func (r *Recorder) Capture(ctx context.Context) ([]float32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.settings
	buf := make([]float32, s.FrameSize)

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(s.SampleRate), len(buf), buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, err
	}
	defer stream.Stop()

	seg := newSegmenter(s)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := stream.Read(); err != nil {
			return nil, err
		}
		if seg.push(buf) {
			return seg.result()
		}
	}
}

// segmenter splits a frame stream into a single utterance by energy.
type segmenter struct {
	s        Settings
	speaking bool
	frames   int
	quiet    int
	out      []float32

	maxFrames      int
	silenceFrames  int
	noSpeechFrames int
}

func newSegmenter(s Settings) *segmenter {
	return &segmenter{
		s:              s,
		out:            make([]float32, 0, s.SampleRate*3),
		maxFrames:      s.frames(s.MaxLength),
		silenceFrames:  s.frames(s.Silence),
		noSpeechFrames: s.frames(s.NoSpeech),
	}
}

// push consumes one frame and reports whether the utterance is over.
func (g *segmenter) push(frame []float32) bool {
	g.frames++

	if frameRMS(frame) > g.s.SilenceRMS {
		g.speaking = true
		g.quiet = 0
		g.out = append(g.out, frame...)
	} else if g.speaking {
		g.quiet++
		if g.quiet >= g.silenceFrames {
			return true
		}
		g.out = append(g.out, frame...)
	} else if g.frames >= g.noSpeechFrames {
		return true
	}

	return g.frames >= g.maxFrames
}

func (g *segmenter) result() ([]float32, error) {
	if !g.speaking {
		return nil, ErrNoSpeech
	}
	return g.out, nil
}

func frameRMS(f []float32) float64 {
	if len(f) == 0 {
		return 0
	}
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
