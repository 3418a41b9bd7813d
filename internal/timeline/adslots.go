package timeline

import (
	"context"
	"sort"
)

// Queries identifying moments an advertisement must never interrupt.
var keyMomentQueries = []string{"goal", "scoring", "name announced", "solo", "celebration"}

const (
	keyMomentMinConfidence = 0.7
	speechMinConfidence    = 0.6
	keyMomentBufferMs      = 5000
)

type interval struct {
	startMs int
	endMs   int
}

func (iv interval) contains(timeMs int) bool {
	return iv.startMs <= timeMs && timeMs <= iv.endMs
}

// planAdSlots scores every 5-second candidate position (excluding the first
// and last 10 seconds) on action intensity, audio context, scene-transition
// proximity, and visual complexity, applies multiplicative penalties for key
// moments, speech, and high crowd energy, then greedily selects the top
// scorers subject to spacing and an absolute cap of four.
func (s *Synthesizer) planAdSlots(
	ctx context.Context,
	indexID string,
	durationMs int,
	profile Profile,
	scenes []SceneContext,
) []AdSlot {
	slots := []AdSlot{}

	startMs := adEdgeMarginMs
	endMs := durationMs - adEdgeMarginMs
	if endMs <= startMs {
		return slots
	}

	keyMoments := s.searchIntervals(ctx, indexID, keyMomentQueries, 5, keyMomentMinConfidence)
	speech := s.searchIntervals(ctx, indexID,
		[]string{"person speaking, speech, announcement"}, 10, speechMinConfidence)

	var transitions []int
	for i := 0; i+1 < len(scenes); i++ {
		transitions = append(transitions, scenes[i].EndMs)
	}

	var candidates []AdSlot
	for t := startMs; t < endMs; t += adCandidateStep {
		scene := SceneContextAt(scenes, t)
		score := actionComponent(scene, profile)
		inSpeech := insideAny(speech, t)
		score += audioComponent(inSpeech)
		score += transitionComponent(transitions, t)
		score += visualComplexityComponent()

		if nearKeyMoment(keyMoments, t) {
			score *= adPenaltyKeyMoment
		}
		if inSpeech {
			score *= adPenaltySpeech
		}
		if scene != nil && scene.ActionIntensity >= 8 {
			score *= adPenaltyHighCrowd
		}

		candidates = append(candidates, AdSlot{
			TimestampMs: t,
			DurationMs:  adSlotDurationMs,
			Score:       score,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })

	maxSlots := durationMs / (4 * 60 * 1000)
	if maxSlots < 1 {
		maxSlots = 1
	}
	if maxSlots > adMaxSlots {
		maxSlots = adMaxSlots
	}

	for _, cand := range candidates {
		if cand.Score < adScoreThreshold {
			continue
		}
		if !spacedFrom(slots, cand.TimestampMs) {
			continue
		}
		slots = append(slots, cand)
		if len(slots) >= maxSlots {
			break
		}
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].TimestampMs < slots[j].TimestampMs })
	return slots
}

// actionComponent is 0-40: calm content scores high, blocked scene types
// score zero, boosted ones score full.
func actionComponent(scene *SceneContext, profile Profile) float64 {
	score := 40.0
	if scene == nil {
		return score
	}

	score = float64(40 - scene.ActionIntensity*4)
	if score < 0 {
		score = 0
	}

	for _, blocked := range profile.AdBlockScenes {
		if scene.SceneType == blocked {
			return 0
		}
	}
	for _, boosted := range profile.AdBoostScenes {
		if scene.SceneType == boosted {
			return 40
		}
	}
	return score
}

// audioComponent is 0-25: zero inside detected speech, otherwise 20. A real
// audio-energy measurement would refine this.
func audioComponent(inSpeech bool) float64 {
	if inSpeech {
		return 0
	}
	return 20
}

// transitionComponent is 0-20 by proximity to a scene boundary.
func transitionComponent(transitions []int, timeMs int) float64 {
	for _, tr := range transitions {
		d := timeMs - tr
		if d < 0 {
			d = -d
		}
		if d < 2000 {
			return 20
		}
		if d < 5000 {
			return 10
		}
	}
	return 0
}

// visualComplexityComponent is 0-15; a flat medium until frame analysis
// feeds it.
func visualComplexityComponent() float64 {
	return 10
}

func insideAny(intervals []interval, timeMs int) bool {
	for _, iv := range intervals {
		if iv.contains(timeMs) {
			return true
		}
	}
	return false
}

func nearKeyMoment(keyMoments []interval, timeMs int) bool {
	for _, iv := range keyMoments {
		if iv.startMs-keyMomentBufferMs <= timeMs && timeMs <= iv.endMs+keyMomentBufferMs {
			return true
		}
	}
	return false
}

func spacedFrom(slots []AdSlot, timestampMs int) bool {
	for _, s := range slots {
		d := timestampMs - s.TimestampMs
		if d < 0 {
			d = -d
		}
		if d < adMinSpacingMs {
			return false
		}
	}
	return true
}

// searchIntervals runs queries against the search collaborator and collects
// hit intervals above the confidence bar. Failures yield no intervals;
// planning continues without them.
func (s *Synthesizer) searchIntervals(
	ctx context.Context,
	indexID string,
	queries []string,
	limit int,
	minConfidence float64,
) []interval {
	if s.searcher == nil || indexID == "" {
		return nil
	}

	var out []interval
	for _, q := range queries {
		hits, err := s.searcher.Search(ctx, indexID, q, limit)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("search query failed, continuing without results", "query", q, "error", err)
			}
			continue
		}
		for _, hit := range hits {
			if hit.Confidence <= minConfidence {
				continue
			}
			out = append(out, interval{startMs: hit.StartMs(), endMs: hit.EndMs()})
		}
	}
	return out
}
