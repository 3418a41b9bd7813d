package timeline

import (
	"context"
	"log/slog"
	"math"
)

// Envelope is an onset-strength signal: one value per analysis frame,
// sampled at FrameRate frames per second.
type Envelope struct {
	Values    []float64
	FrameRate float64
}

// EnvelopeSource extracts an onset-strength envelope from a media file.
type EnvelopeSource interface {
	OnsetEnvelope(ctx context.Context, mediaPath string) (Envelope, error)
}

// Aligner computes per-camera time offsets by cross-correlating
// onset-strength envelopes. Onset strength tracks rhythmic and percussive
// energy, which survives differing microphone placement and start times.
type Aligner struct {
	source EnvelopeSource
	logger *slog.Logger
}

func NewAligner(source EnvelopeSource, logger *slog.Logger) *Aligner {
	return &Aligner{source: source, logger: logger}
}

// Align returns one offset in milliseconds per media path, relative to the
// first path (offsets[0] is always 0). A positive offset means the feed
// starts later than the reference. Per-feed extraction or degenerate-signal
// failures default that feed's offset to 0; alignment never fails the run.
func (a *Aligner) Align(ctx context.Context, mediaPaths []string) []int {
	if len(mediaPaths) == 0 {
		return []int{}
	}

	offsets := make([]int, len(mediaPaths))
	if len(mediaPaths) == 1 {
		return offsets
	}

	ref, err := a.envelope(ctx, mediaPaths[0])
	if err != nil {
		if a.logger != nil {
			a.logger.Warn("reference envelope extraction failed, all offsets default to 0",
				"path", mediaPaths[0], "error", err)
		}
		return offsets
	}

	for i, path := range mediaPaths[1:] {
		target, err := a.envelope(ctx, path)
		if err != nil {
			if a.logger != nil {
				a.logger.Warn("envelope extraction failed, offset defaults to 0",
					"path", path, "error", err)
			}
			continue
		}

		offsetMs, ok := correlateOffsetMs(ref, target)
		if !ok {
			if a.logger != nil {
				a.logger.Warn("degenerate audio signal, offset defaults to 0", "path", path)
			}
			continue
		}
		offsets[i+1] = offsetMs
	}

	return offsets
}

func (a *Aligner) envelope(ctx context.Context, path string) (Envelope, error) {
	env, err := a.source.OnsetEnvelope(ctx, path)
	if err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// correlateOffsetMs cross-correlates two z-scored envelopes (full mode) and
// converts the peak lag to milliseconds. Returns false when either signal is
// flat or the frame rates disagree.
func correlateOffsetMs(ref, target Envelope) (int, bool) {
	if ref.FrameRate <= 0 || target.FrameRate != ref.FrameRate {
		return 0, false
	}

	refZ, ok := zscore(ref.Values)
	if !ok {
		return 0, false
	}
	targetZ, ok := zscore(target.Values)
	if !ok {
		return 0, false
	}

	peak := correlationPeak(refZ, targetZ)
	lagFrames := peak - (len(targetZ) - 1)
	offsetSec := float64(lagFrames) / ref.FrameRate
	return int(math.Round(offsetSec * 1000)), true
}

// zscore normalizes a signal to zero mean and unit variance. Returns false
// for empty or constant signals.
func zscore(values []float64) ([]float64, bool) {
	if len(values) == 0 {
		return nil, false
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	std := math.Sqrt(variance / float64(len(values)))
	if std == 0 {
		return nil, false
	}

	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = (v - mean) / std
	}
	return out, true
}

// correlationPeak returns the index of the maximum of the full
// cross-correlation of ref against target. Index len(target)-1 corresponds
// to zero lag.
func correlationPeak(ref, target []float64) int {
	n := len(ref) + len(target) - 1
	bestIdx := 0
	bestVal := math.Inf(-1)

	for idx := 0; idx < n; idx++ {
		lag := idx - (len(target) - 1)
		var sum float64
		for j := range target {
			i := j + lag
			if i < 0 || i >= len(ref) {
				continue
			}
			sum += ref[i] * target[j]
		}
		if sum > bestVal {
			bestVal = sum
			bestIdx = idx
		}
	}
	return bestIdx
}
