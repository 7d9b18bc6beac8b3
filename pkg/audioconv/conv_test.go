package audioconv

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWAV(t *testing.T, path string, rate, channels int, data []int) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
}

func TestDecodeStereoWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.bin")

	data := make([]int, 800)
	for i := 0; i < len(data); i += 2 {
		data[i] = 16384
	}
	writeWAV(t, path, 8000, 2, data)

	pcm, err := DecodeFile(context.Background(), path, Options{})
	require.NoError(t, err)

	require.Len(t, pcm, 800)
	for _, v := range pcm {
		assert.InDelta(t, 0.25, v, 1e-6)
	}
}

func TestDecodeMaxSamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	writeWAV(t, path, 16000, 1, make([]int, 1600))

	pcm, err := DecodeFile(context.Background(), path, Options{MaxSamples: 100})
	require.NoError(t, err)
	assert.Len(t, pcm, 100)
}

func TestDecodeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := DecodeFile(ctx, "missing.wav", Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSniff(t *testing.T) {
	cases := []struct {
		data []byte
		name string
		want Format
	}{
		{[]byte("RIFF...."), "x", WAV},
		{[]byte("OggS...."), "x", Ogg},
		{[]byte("ID3\x04..."), "x", MP3},
		{[]byte("...."), "song.MP3", MP3},
		{[]byte("...."), "voice.opus", Ogg},
		{[]byte("...."), "notes.txt", Unknown},
		{nil, "empty", Unknown},
	}

	for _, c := range cases {
		r := bytes.NewReader(c.data)
		got, err := Sniff(r, c.name)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, c.name)

		pos, _ := r.Seek(0, 1)
		assert.Zero(t, pos)
	}
}

func TestDecodeUnsupported(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("nope")), Unknown, Options{})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestResample(t *testing.T) {
	in := []float32{0, 1, 0, 1}

	assert.Equal(t, in, resample(in, 16000, 16000))
	assert.Equal(t, []float32{0, 0.5, 1, 0.5, 0, 0.5, 1, 1}, resample(in, 8000, 16000))
	assert.Equal(t, []float32{0, 0}, resample(in, 32000, 16000))
	assert.Empty(t, resample(nil, 8000, 16000))
}

func TestDownmix(t *testing.T) {
	assert.Equal(t, []float32{0.5, 0}, downmix([]float32{1, 0, 0.5, -0.5}, 2))
	assert.Equal(t, []float32{1, 2}, downmix([]float32{1, 2}, 1))
}
