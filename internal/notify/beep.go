package notify

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

// Beeper plays the listening cue. The clip is decoded once and replayed
// from memory.
type Beeper struct {
	mu     sync.Mutex
	buffer *beep.Buffer
}

var speakerOnce sync.Once

func NewBeeper(path string) (*Beeper, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cue: %w", err)
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode cue: %w", err)
	}
	defer streamer.Close()

	buffer := beep.NewBuffer(format)
	buffer.Append(streamer)

	var initErr error
	speakerOnce.Do(func() {
		initErr = speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10))
	})
	if initErr != nil {
		return nil, fmt.Errorf("init speaker: %w", initErr)
	}

	return &Beeper{buffer: buffer}, nil
}

// Play blocks until the cue has played.
func (b *Beeper) Play() {
	b.mu.Lock()
	defer b.mu.Unlock()

	done := make(chan struct{})
	speaker.Play(beep.Seq(b.buffer.Streamer(0, b.buffer.Len()), beep.Callback(func() {
		close(done)
	})))
	<-done
}
