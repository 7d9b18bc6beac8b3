// Package audioconv turns recorded audio files into the 16 kHz mono float
// PCM the recognizer consumes.
package audioconv

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	popus "github.com/pekim/opus"
)

const TargetRate = 16000

type Format int

const (
	Unknown Format = iota
	WAV
	MP3
	Ogg
)

func (f Format) String() string {
	switch f {
	case WAV:
		return "wav"
	case MP3:
		return "mp3"
	case Ogg:
		return "ogg"
	default:
		return "unknown"
	}
}

var ErrUnsupported = errors.New("unsupported audio format")

type Options struct {
	// MaxSamples truncates the output; 0 keeps everything.
	MaxSamples int
}

func DecodeFile(ctx context.Context, path string, opt Options) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	format, err := Sniff(f, path)
	if err != nil {
		return nil, err
	}

	pcm, err := Decode(f, format, opt)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return pcm, nil
}

// Sniff detects the container from its magic bytes, falling back to the
// file extension. r is rewound afterwards.
func Sniff(r io.ReadSeeker, name string) (Format, error) {
	magic := make([]byte, 4)
	n, _ := io.ReadFull(r, magic)
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return Unknown, err
	}

	switch {
	case n == 4 && string(magic) == "RIFF":
		return WAV, nil
	case n == 4 && string(magic) == "OggS":
		return Ogg, nil
	case n >= 3 && string(magic[:3]) == "ID3":
		return MP3, nil
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".wav":
		return WAV, nil
	case ".mp3":
		return MP3, nil
	case ".ogg", ".oga", ".opus":
		return Ogg, nil
	}
	return Unknown, nil
}

func Decode(r io.ReadSeeker, format Format, opt Options) ([]float32, error) {
	var (
		pcm []float32
		err error
	)

	switch format {
	case WAV:
		pcm, err = decodeWAV(r)
	case MP3:
		pcm, err = decodeMP3(r)
	case Ogg:
		pcm, err = decodeOgg(r)
	default:
		return nil, ErrUnsupported
	}
	if err != nil {
		return nil, err
	}

	if opt.MaxSamples > 0 && len(pcm) > opt.MaxSamples {
		pcm = pcm[:opt.MaxSamples]
	}
	return pcm, nil
}

func decodeWAV(r io.ReadSeeker) ([]float32, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("invalid wav")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, errors.New("empty wav")
	}

	depth := int(dec.BitDepth)
	if depth == 0 {
		depth = 16
	}
	channels, rate := 1, 44100
	if buf.Format != nil {
		channels = max(buf.Format.NumChannels, 1)
		if buf.Format.SampleRate > 0 {
			rate = buf.Format.SampleRate
		}
	}

	scale := 1 / float64(int64(1)<<(depth-1))
	pcm := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		pcm[i] = float32(math.Max(-1, math.Min(1, float64(v)*scale)))
	}

	return toMono16k(pcm, channels, rate), nil
}

func decodeMP3(r io.Reader) ([]float32, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, err
	}
	samples := make([]int16, len(raw)/2)
	if err := binary.Read(bytes.NewReader(raw[:len(samples)*2]), binary.LittleEndian, samples); err != nil {
		return nil, err
	}

	rate := dec.SampleRate()
	if rate <= 0 {
		rate = 44100
	}
	// go-mp3 always emits interleaved stereo.
	return toMono16k(fromInt16(samples), 2, rate), nil
}

// decodeOgg tries Vorbis first, then Opus.
func decodeOgg(r io.ReadSeeker) ([]float32, error) {
	pcm, vorbisErr := decodeVorbis(r)
	if vorbisErr == nil {
		return pcm, nil
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	pcm, opusErr := decodeOpus(r)
	if opusErr != nil {
		return nil, fmt.Errorf("neither vorbis (%v) nor opus: %w", vorbisErr, opusErr)
	}
	return pcm, nil
}

func decodeVorbis(r io.Reader) ([]float32, error) {
	pcm, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
		return nil, errors.New("invalid vorbis stream")
	}
	return toMono16k(pcm, format.Channels, format.SampleRate), nil
}

// Opus always decodes at 48 kHz.
func decodeOpus(r io.ReadSeeker) ([]float32, error) {
	dec, err := popus.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	defer dec.Destroy()

	channels := max(dec.ChannelCount(), 1)
	chunk := make([]int16, 24000*channels)

	var pcm []float32
	for {
		n, err := dec.Read(chunk)
		if n > 0 {
			pcm = append(pcm, fromInt16(chunk[:n*channels])...)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	return toMono16k(pcm, channels, 48000), nil
}

func toMono16k(pcm []float32, channels, rate int) []float32 {
	return resample(downmix(pcm, channels), rate, TargetRate)
}

func fromInt16(in []int16) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v) / 32768
	}
	return out
}

// downmix averages interleaved channels into one.
func downmix(in []float32, channels int) []float32 {
	if channels <= 1 {
		return in
	}
	out := make([]float32, len(in)/channels)
	for i := range out {
		var sum float32
		for _, v := range in[i*channels : (i+1)*channels] {
			sum += v
		}
		out[i] = sum / float32(channels)
	}
	return out
}

// resample converts between rates with linear interpolation.
func resample(in []float32, from, to int) []float32 {
	if from == to || len(in) == 0 {
		return in
	}

	ratio := float64(to) / float64(from)
	out := make([]float32, int(math.Ceil(float64(len(in))*ratio)))
	last := len(in) - 1

	for i := range out {
		pos := float64(i) / ratio
		j := int(pos)
		if j >= last {
			out[i] = in[last]
			continue
		}
		frac := float32(pos - float64(j))
		out[i] = in[j] + (in[j+1]-in[j])*frac
	}
	return out
}
