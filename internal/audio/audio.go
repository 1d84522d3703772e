// Package audio holds the PCM plumbing shared by the transcription
// providers and the upload path: WAV container encode/decode, downmixing,
// and energy measurement over 16-bit signed little-endian PCM.
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const bitsPerSample = 16

// PCM is a decoded recording: raw 16-bit signed little-endian samples plus
// their format.
type PCM struct {
	Data       []byte
	SampleRate int
	Channels   int
}

// Duration returns the play length of the recording.
func (p PCM) Duration() time.Duration {
	if p.SampleRate <= 0 || p.Channels <= 0 {
		return 0
	}
	samples := len(p.Data) / (2 * p.Channels)
	return time.Duration(samples) * time.Second / time.Duration(p.SampleRate)
}

// DecodeWAV parses a RIFF/WAV file and returns its PCM payload. Only
// 16-bit integer PCM is supported; other bit depths are converted by
// truncation through the decoder's int buffer.
func DecodeWAV(data []byte) (PCM, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return PCM{}, errors.New("audio: not a valid WAV file")
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return PCM{}, fmt.Errorf("audio: decode wav: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 || buf.Format.SampleRate <= 0 {
		return PCM{}, errors.New("audio: wav file carries no format information")
	}

	out := make([]byte, len(buf.Data)*2)
	for i, s := range buf.Data {
		if s > math.MaxInt16 {
			s = math.MaxInt16
		} else if s < math.MinInt16 {
			s = math.MinInt16
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(s)))
	}
	return PCM{
		Data:       out,
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
	}, nil
}

// EncodeWAV wraps the PCM payload in a RIFF/WAV container suitable for file
// upload APIs.
func EncodeWAV(p PCM) ([]byte, error) {
	if p.SampleRate <= 0 || p.Channels <= 0 {
		return nil, errors.New("audio: sample rate and channels must be positive")
	}

	var ws seekBuffer
	e := wav.NewEncoder(&ws, p.SampleRate, bitsPerSample, p.Channels, 1)

	n := len(p.Data) / 2
	data := make([]int, n)
	for i := 0; i < n; i++ {
		data[i] = int(int16(binary.LittleEndian.Uint16(p.Data[i*2:])))
	}
	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: p.Channels, SampleRate: p.SampleRate},
		Data:           data,
		SourceBitDepth: bitsPerSample,
	}
	if err := e.Write(buf); err != nil {
		return nil, fmt.Errorf("audio: encode wav: %w", err)
	}
	if err := e.Close(); err != nil {
		return nil, fmt.Errorf("audio: finalize wav: %w", err)
	}
	return ws.buf, nil
}

// StereoToMono averages each interleaved L+R int16 pair into a single mono
// sample. Channel counts other than 2 are returned unchanged.
func StereoToMono(p PCM) PCM {
	if p.Channels != 2 {
		return p
	}
	frames := len(p.Data) / 4
	out := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		l := int16(binary.LittleEndian.Uint16(p.Data[i*4:]))
		r := int16(binary.LittleEndian.Uint16(p.Data[i*4+2:]))
		m := int16((int32(l) + int32(r)) / 2)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(m))
	}
	return PCM{Data: out, SampleRate: p.SampleRate, Channels: 1}
}

// RMS returns the root-mean-square energy of the PCM payload, in 16-bit
// sample units (0–32767). Returns 0 for buffers shorter than one sample.
func RMS(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		v := float64(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
		sum += v * v
	}
	return math.Sqrt(sum / float64(n))
}

// seekBuffer is an in-memory io.WriteSeeker for the WAV encoder, which
// rewinds to patch chunk sizes on Close.
type seekBuffer struct {
	buf []byte
	pos int
}

func (s *seekBuffer) Write(p []byte) (int, error) {
	if need := s.pos + len(p); need > len(s.buf) {
		grown := make([]byte, need)
		copy(grown, s.buf)
		s.buf = grown
	}
	copy(s.buf[s.pos:], p)
	s.pos += len(p)
	return len(p), nil
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = int64(s.pos) + offset
	case io.SeekEnd:
		pos = int64(len(s.buf)) + offset
	default:
		return 0, errors.New("audio: invalid seek whence")
	}
	if pos < 0 {
		return 0, errors.New("audio: negative seek position")
	}
	s.pos = int(pos)
	return pos, nil
}
