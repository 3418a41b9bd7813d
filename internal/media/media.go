// Package media extracts audio analysis signals from event footage by
// shelling out to ffmpeg and ffprobe. Decoding stays in external processes;
// only the decoded signal crosses into Go.
package media

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/Kaibo-Huang/Anchor/internal/logging"
	"github.com/Kaibo-Huang/Anchor/internal/timeline"
)

const (
	sampleRate = 22050
	frameSize  = 1024
	hopSize    = 512
)

// Extractor decodes a media file's audio track to mono PCM via ffmpeg and
// reduces it to an onset-strength envelope for alignment.
type Extractor struct {
	ffmpegPath string
	timeout    time.Duration
	logger     *slog.Logger
}

func NewExtractor(ffmpegPath string, timeout time.Duration, logger *slog.Logger) *Extractor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Extractor{ffmpegPath: ffmpegPath, timeout: timeout, logger: logger}
}

// OnsetEnvelope implements timeline.EnvelopeSource.
func (e *Extractor) OnsetEnvelope(ctx context.Context, mediaPath string) (timeline.Envelope, error) {
	samples, err := e.decodePCM(ctx, mediaPath)
	if err != nil {
		return timeline.Envelope{}, err
	}
	if len(samples) < frameSize {
		return timeline.Envelope{}, fmt.Errorf("audio too short for analysis: %d samples", len(samples))
	}

	values := onsetStrength(samples)
	return timeline.Envelope{
		Values:    values,
		FrameRate: float64(sampleRate) / float64(hopSize),
	}, nil
}

// decodePCM runs ffmpeg to produce mono 16-bit little-endian PCM at the
// analysis sample rate on stdout.
func (e *Extractor) decodePCM(ctx context.Context, mediaPath string) ([]float64, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	args := []string{
		"-i", mediaPath,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if e.logger != nil {
		e.logger.Debug("decoding audio", "path", logging.SanitizePath(mediaPath))
	}

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg decode failed: %w: %s", err, tail(stderr.String(), 512))
	}

	raw := stdout.Bytes()
	samples := make([]float64, len(raw)/2)
	for i := range samples {
		s := int16(binary.LittleEndian.Uint16(raw[i*2:]))
		samples[i] = float64(s) / 32768.0
	}
	return samples, nil
}

// onsetStrength computes a per-frame onset envelope: the half-wave rectified
// first difference of log frame energy. Rhythmic and percussive content
// produces sharp peaks that survive microphone and placement differences.
func onsetStrength(samples []float64) []float64 {
	var energies []float64
	for start := 0; start+frameSize <= len(samples); start += hopSize {
		var e float64
		for _, s := range samples[start : start+frameSize] {
			e += s * s
		}
		energies = append(energies, math.Log1p(e))
	}

	onsets := make([]float64, len(energies))
	for i := 1; i < len(energies); i++ {
		d := energies[i] - energies[i-1]
		if d > 0 {
			onsets[i] = d
		}
	}
	return onsets
}

// Prober reads media durations via ffprobe.
type Prober struct {
	ffprobePath string
	timeout     time.Duration
	logger      *slog.Logger
}

func NewProber(ffprobePath string, timeout time.Duration, logger *slog.Logger) *Prober {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Prober{ffprobePath: ffprobePath, timeout: timeout, logger: logger}
}

// DurationMs returns the media duration in milliseconds.
func (p *Prober) DurationMs(ctx context.Context, mediaPath string) (int, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		mediaPath,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w: %s", err, tail(stderr.String(), 512))
	}

	return parseDurationMs(stdout.String())
}

func parseDurationMs(output string) (int, error) {
	trimmed := strings.TrimSpace(output)
	secs, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable duration %q: %w", trimmed, err)
	}
	if secs < 0 {
		return 0, fmt.Errorf("negative duration %q", trimmed)
	}
	return int(secs * 1000), nil
}

func tail(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[len(s)-maxLen:]
}
