package timeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Kaibo-Huang/Anchor/internal/search"
)

// moment is a scored (time, camera) pair from pass 1. Moments live only for
// the duration of one synthesis run.
type moment struct {
	timeMs     int
	cameraID   string
	score      float64
	engagement float64
	scene      *SceneContext
}

func (m moment) blended() float64 {
	return m.score*blendScoreWeight + m.engagement*blendEngageWeight
}

// Synthesizer turns aligned camera feeds into a Timeline. It is stateless
// across runs; every Generate call works on private copies of its inputs, so
// concurrent runs need no coordination.
type Synthesizer struct {
	searcher search.Client
	logger   *slog.Logger
}

func NewSynthesizer(searcher search.Client, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{searcher: searcher, logger: logger}
}

// Generate runs the full synthesis: scene contexts, two-pass moment
// selection, hysteresis segment construction, angle diversity, then ad
// slots, zooms, and chapters.
//
// sourceDurationMs is the reference feed's duration; maxDurationMs caps the
// output (0 means the default five-minute cap). An unknown category is a
// caller contract violation and the only error this method returns; missing
// or noisy signals degrade to a sparser but valid timeline.
func (s *Synthesizer) Generate(
	ctx context.Context,
	cameras []CameraFeed,
	category EventCategory,
	indexID string,
	sourceDurationMs int,
	maxDurationMs int,
) (*Timeline, error) {
	if _, err := ParseEventCategory(string(category)); err != nil {
		return nil, fmt.Errorf("invalid event category: %w", err)
	}

	tl := NewTimeline()
	if len(cameras) == 0 || sourceDurationMs <= 0 {
		return tl, nil
	}

	minSegMs := MinSegmentMs(category)
	profile := ProfileFor(category)

	if maxDurationMs <= 0 {
		maxDurationMs = DefaultMaxReelMs
	}
	targetMs := maxDurationMs
	if sourceDurationMs < targetMs {
		targetMs = sourceDurationMs
	}

	scenes := BuildSceneContexts(ctx, cameras, s.searcher, indexID, category, s.logger)

	all := s.scoreAllMoments(cameras, sourceDurationMs, profile, scenes, category)
	selected := selectBestMoments(all, targetMs)

	if s.logger != nil {
		s.logger.Info("moments selected",
			"category", string(category),
			"scored", len(all),
			"selected", len(selected),
			"target_ms", targetMs,
		)
	}

	segments := buildSegments(selected, minSegMs)
	segments = ensureAngleDiversity(segments, cameras, minSegMs, s.logger)
	tl.Segments = segments

	totalMs := tl.DurationMs()

	tl.Zooms = s.generateZooms(ctx, indexID, totalMs)
	tl.AdSlots = s.planAdSlots(ctx, indexID, totalMs, profile, scenes)
	tl.Chapters = s.generateChapters(ctx, indexID, category)

	if s.logger != nil {
		tl.logSummary(s.logger)
	}
	return tl, nil
}

func (t *Timeline) logSummary(logger *slog.Logger) {
	logger.Info("timeline synthesized",
		"segments", len(t.Segments),
		"duration_ms", t.DurationMs(),
		"cameras_used", len(t.CamerasUsed()),
		"zooms", len(t.Zooms),
		"ad_slots", len(t.AdSlots),
		"chapters", len(t.Chapters),
	)
}

// scoreAllMoments is pass 1: every 2-second bucket of every camera is scored
// without filtering, so pass 2 can pick freely.
func (s *Synthesizer) scoreAllMoments(
	cameras []CameraFeed,
	durationMs int,
	profile Profile,
	scenes []SceneContext,
	category EventCategory,
) []moment {
	var all []moment
	for t := 0; t < durationMs; t += bucketMs {
		scene := SceneContextAt(scenes, t)
		engagement := EngagementScore(scene)

		for idx, cam := range cameras {
			score := ScoreMoment(cam, t, profile, scene, idx, len(cameras), category)
			all = append(all, moment{
				timeMs:     t,
				cameraID:   cam.ID,
				score:      score,
				engagement: engagement,
				scene:      scene,
			})
		}
	}
	return all
}

// selectBestMoments is pass 2: keep the best camera per bucket, rank bucket
// winners by blended quality, and greedily accept until the duration budget
// is spent. The result is re-sorted chronologically.
func selectBestMoments(all []moment, targetDurationMs int) []moment {
	byTime := make(map[int]moment)
	for _, m := range all {
		if best, ok := byTime[m.timeMs]; !ok || m.score > best.score {
			byTime[m.timeMs] = m
		}
	}

	ranked := make([]moment, 0, len(byTime))
	for _, m := range byTime {
		ranked = append(ranked, m)
	}
	// Equal blended quality breaks chronologically so identical inputs
	// always produce the same timeline.
	sort.Slice(ranked, func(i, j int) bool {
		bi, bj := ranked[i].blended(), ranked[j].blended()
		if bi != bj {
			return bi > bj
		}
		return ranked[i].timeMs < ranked[j].timeMs
	})

	var selected []moment
	totalMs := 0
	for _, m := range ranked {
		if totalMs >= targetDurationMs {
			break
		}
		if m.score < minQualityScore {
			continue
		}
		selected = append(selected, m)
		totalMs += bucketMs
	}

	sort.Slice(selected, func(i, j int) bool { return selected[i].timeMs < selected[j].timeMs })
	return selected
}

// segmentBuilder accumulates the current segment while walking selected
// moments in time order.
type segmentBuilder struct {
	startMs         int
	endMs           int
	cameraID        string
	totalScore      float64
	totalEngagement float64
	momentCount     int
}

func newSegmentBuilder(m moment) *segmentBuilder {
	return &segmentBuilder{
		startMs:         m.timeMs,
		endMs:           m.timeMs + bucketMs,
		cameraID:        m.cameraID,
		totalScore:      m.score,
		totalEngagement: m.engagement,
		momentCount:     1,
	}
}

func (b *segmentBuilder) durationMs() int { return b.endMs - b.startMs }

func (b *segmentBuilder) averageScore() float64 {
	return b.totalScore / float64(b.momentCount)
}

func (b *segmentBuilder) absorb(m moment) {
	b.endMs = m.timeMs + bucketMs
	b.totalScore += m.score
	b.totalEngagement += m.engagement
	b.momentCount++
}

func (b *segmentBuilder) segment() Segment {
	return Segment{StartMs: b.startMs, EndMs: b.endMs, CameraID: b.cameraID}
}

// canExtend reports whether the moment extends the current segment outright:
// contiguous and either the same camera (below the max cap) or any camera
// while the segment is still under its minimum duration.
func (b *segmentBuilder) canExtend(m moment, minSegMs int) bool {
	if b.durationMs() >= MaxSegmentMs {
		return false
	}
	if m.timeMs != b.endMs {
		return false
	}
	if m.cameraID == b.cameraID {
		return true
	}
	return b.durationMs() < minSegMs
}

// buildSegments walks the chronologically sorted moments and emits segments,
// cutting only when a challenger camera beats the running average score by
// the hysteresis margin after the minimum duration is met.
//
// The running average drifts as weaker buckets are absorbed, so the
// effective switching bar creeps over a long hold. That stickiness is
// deliberate: it is what keeps one strong camera on screen through uniform
// stretches instead of ping-ponging.
func buildSegments(selected []moment, minSegMs int) []Segment {
	segments := []Segment{}
	if len(selected) == 0 {
		return segments
	}

	var current *segmentBuilder
	for _, m := range selected {
		if current == nil {
			current = newSegmentBuilder(m)
			continue
		}
		if current.canExtend(m, minSegMs) {
			current.absorb(m)
			continue
		}

		// Below the minimum: hold the current camera no matter what the
		// challenger scored. The bucket's time is claimed without crediting
		// its score to the running average.
		if current.durationMs() < minSegMs {
			current.endMs = m.timeMs + bucketMs
			current.momentCount++
			continue
		}

		// Hysteresis: a challenger has to beat the incumbent's running
		// average by the margin, or it gets absorbed.
		if m.score <= current.averageScore()*(1+hysteresisThreshold) {
			current.absorb(m)
			continue
		}

		segments = append(segments, current.segment())
		current = newSegmentBuilder(m)
	}

	if current != nil {
		segments = append(segments, current.segment())
	}
	return segments
}

// ensureAngleDiversity force-inserts any camera that never made it into a
// segment by splitting the longest segment at its midpoint, provided that
// segment is at least twice the minimum duration. Otherwise the camera stays
// unused.
func ensureAngleDiversity(segments []Segment, cameras []CameraFeed, minSegMs int, logger *slog.Logger) []Segment {
	if len(segments) == 0 || len(cameras) <= 1 {
		return segments
	}

	used := make(map[string]bool, len(segments))
	for _, s := range segments {
		used[s.CameraID] = true
	}

	for _, cam := range cameras {
		if used[cam.ID] {
			continue
		}

		longestIdx := 0
		for i := range segments {
			if segments[i].Duration() > segments[longestIdx].Duration() {
				longestIdx = i
			}
		}
		longest := segments[longestIdx]
		if longest.Duration() < minSegMs*2 {
			if logger != nil {
				logger.Warn("camera unused and no segment long enough to split", "camera_id", cam.ID)
			}
			continue
		}

		mid := longest.StartMs + longest.Duration()/2
		insertEnd := mid + minSegMs
		if insertEnd > longest.EndMs {
			insertEnd = longest.EndMs
		}

		replaced := []Segment{}
		if mid > longest.StartMs {
			replaced = append(replaced, Segment{StartMs: longest.StartMs, EndMs: mid, CameraID: longest.CameraID})
		}
		replaced = append(replaced, Segment{StartMs: mid, EndMs: insertEnd, CameraID: cam.ID})
		if insertEnd < longest.EndMs {
			replaced = append(replaced, Segment{StartMs: insertEnd, EndMs: longest.EndMs, CameraID: longest.CameraID})
		}

		segments = append(segments[:longestIdx], append(replaced, segments[longestIdx+1:]...)...)
		if logger != nil {
			logger.Info("forced unused camera into timeline", "camera_id", cam.ID, "at_ms", mid)
		}
	}

	return segments
}
