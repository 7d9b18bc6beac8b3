package audio

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pactlOutput = `Sink Input #41
	Driver: protocol-native.c
	Volume: front-left: 65536 / 100% / 0.00 dB,   front-right: 65536 / 100% / 0.00 dB
	Properties:
		application.name = "Firefox"
Sink Input #42
	Volume: front-left: 52429 /  80% / -5.81 dB,   front-right: 52429 /  80% / -5.81 dB
	Properties:
		application.name = "echomarket"
Sink Input #43
	Volume: front-left: 32768 /  50% / -18.06 dB
	Properties:
		application.name = "mpv"
`

func TestParseSinkInputs(t *testing.T) {
	got := parseSinkInputs(pactlOutput)

	require.Len(t, got, 3)
	assert.Equal(t, sinkInput{ID: 41, Volume: 100, AppName: "Firefox"}, got[0])
	assert.Equal(t, sinkInput{ID: 42, Volume: 80, AppName: "echomarket"}, got[1])
	assert.Equal(t, sinkInput{ID: 43, Volume: 50, AppName: "mpv"}, got[2])

	assert.Empty(t, parseSinkInputs(""))
}

type fakePactl struct {
	mu   sync.Mutex
	list string
	sets []string
}

func (f *fakePactl) run(_ context.Context, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if args[0] == "list" {
		return []byte(f.list), nil
	}
	f.sets = append(f.sets, strings.Join(args[1:], " "))
	return nil, nil
}

func TestDuckerDucksForeignStreams(t *testing.T) {
	pactl := &fakePactl{list: pactlOutput}
	d := NewDucker([]string{"echomarket"}, 0.3, 20, 0)
	d.pactl = pactl.run

	require.NoError(t, d.Duck(context.Background()))
	assert.Equal(t, []string{"41 30%", "43 20%"}, pactl.sets)

	// second duck is a no-op
	require.NoError(t, d.Duck(context.Background()))
	assert.Len(t, pactl.sets, 2)

	pactl.sets = nil
	pactl.list = strings.ReplaceAll(pactlOutput, "100%", "30%")
	require.NoError(t, d.Restore(context.Background()))
	assert.Equal(t, []string{"41 100%", "43 50%"}, pactl.sets)
}

func TestDuckerFadesInSteps(t *testing.T) {
	pactl := &fakePactl{list: "Sink Input #7\n\tVolume: 100%\n"}
	d := NewDucker(nil, 0.5, 0, 30*time.Millisecond)
	d.pactl = pactl.run

	require.NoError(t, d.Duck(context.Background()))
	assert.Equal(t, []string{"7 83%", "7 67%", "7 50%"}, pactl.sets)
}

func TestRestoreWithoutDuck(t *testing.T) {
	pactl := &fakePactl{list: pactlOutput}
	d := NewDucker(nil, 0.5, 0, 0)
	d.pactl = pactl.run

	require.NoError(t, d.Restore(context.Background()))
	assert.Empty(t, pactl.sets)
}

func frame(n int, v float32) []float32 {
	f := make([]float32, n)
	for i := range f {
		f[i] = v
	}
	return f
}

func testSettings() Settings {
	return Settings{
		SampleRate: 1000,
		FrameSize:  10, // 10ms
		SilenceRMS: 0.1,
		Silence:    30 * time.Millisecond,
		NoSpeech:   50 * time.Millisecond,
		MaxLength:  200 * time.Millisecond,
	}
}

func TestSegmenterEndsOnTrailingSilence(t *testing.T) {
	seg := newSegmenter(testSettings())

	assert.False(t, seg.push(frame(10, 0)))
	assert.False(t, seg.push(frame(10, 0.5)))
	assert.False(t, seg.push(frame(10, 0.5)))
	assert.False(t, seg.push(frame(10, 0)))
	assert.False(t, seg.push(frame(10, 0)))
	assert.True(t, seg.push(frame(10, 0)))

	pcm, err := seg.result()
	require.NoError(t, err)
	// leading silence is dropped, the closing silent frame is not kept
	assert.Len(t, pcm, 40)
}

func TestSegmenterGivesUpWithoutSpeech(t *testing.T) {
	seg := newSegmenter(testSettings())

	done := false
	for i := 0; i < 5 && !done; i++ {
		done = seg.push(frame(10, 0.01))
	}
	assert.True(t, done)

	_, err := seg.result()
	assert.ErrorIs(t, err, ErrNoSpeech)
}

func TestSegmenterCapsLength(t *testing.T) {
	seg := newSegmenter(testSettings())

	n := 0
	for !seg.push(frame(10, 0.9)) {
		n++
	}
	assert.Equal(t, 19, n)

	pcm, err := seg.result()
	require.NoError(t, err)
	assert.Len(t, pcm, 200)
}
