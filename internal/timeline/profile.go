package timeline

// Tuning thresholds for timeline synthesis. These mirror the values the
// production switcher was calibrated with.
const (
	// Two-pass selection
	bucketMs            = 2000
	DefaultMaxReelMs    = 300000 // 5 minute output cap
	minQualityScore     = 30     // bucket winners below this are never selected
	blendScoreWeight    = 0.6
	blendEngageWeight   = 0.4
	hysteresisThreshold = 0.30 // challenger must score 30% above running average

	// Segment pacing
	DefaultMinSegmentMs = 8000
	MaxSegmentMs        = 20000

	// Soft rotation tie-breaker
	rotationIntervalMs = 6000
	rotationBonus      = 20
	rotationPenalty    = 10

	// Ad slot planning
	adScoreThreshold = 70
	adMinSpacingMs   = 45000
	adSlotDurationMs = 4000
	adCandidateStep  = 5000
	adEdgeMarginMs   = 10000
	adMaxSlots       = 4

	adPenaltyKeyMoment = 0.3
	adPenaltySpeech    = 0.5
	adPenaltyHighCrowd = 0.4

	// Zoom markers
	zoomMinSpacingMs = 10000
	zoomMaxDuration  = 3000
	ZoomFactorHigh   = 2.5
	ZoomFactorMed    = 1.8

	// Chapter markers
	chapterMinSpacingMs = 60000
)

// Profile is the per-category switching policy: which angle each detected
// scene type prefers, the fallback angle, and scene types that block or
// invite ad insertion.
type Profile struct {
	SceneAngles   map[string]AngleType
	DefaultAngle  AngleType
	AdBlockScenes []string
	AdBoostScenes []string
}

var switchingProfiles = map[EventCategory]Profile{
	EventSports: {
		SceneAngles: map[string]AngleType{
			"high_action":    AngleCloseup,
			"ball_near_goal": AngleGoal,
			"low_action":     AngleCrowd,
		},
		DefaultAngle:  AngleWide,
		AdBlockScenes: []string{"scoring_play"},
		AdBoostScenes: []string{"timeout"},
	},
	EventCeremony: {
		SceneAngles: map[string]AngleType{
			"name_called": AngleStage,
			"walking":     AngleWide,
			"applause":    AngleCrowd,
			"speech":      AngleCloseup,
		},
		DefaultAngle:  AngleWide,
		AdBlockScenes: []string{"name_announcement"},
		AdBoostScenes: []string{"pause"},
	},
	EventPerformance: {
		SceneAngles: map[string]AngleType{
			"solo":          AngleCloseup,
			"full_band":     AngleWide,
			"crowd_singing": AngleCrowd,
		},
		DefaultAngle:  AngleWide,
		AdBlockScenes: []string{"solo"},
		AdBoostScenes: []string{"break"},
	},
}

// ProfileFor returns the switching profile for a category. Speech and lecture
// events use the ceremony profile, as the original switcher did.
func ProfileFor(category EventCategory) Profile {
	if p, ok := switchingProfiles[category]; ok {
		return p
	}
	return switchingProfiles[EventCeremony]
}

// Minimum segment duration by event category. Longer holds on calmer content
// avoid the rapid-cut "MTV effect"; broadcast practice holds shots 7-15s for
// low-intensity material.
var minSegmentMsByCategory = map[EventCategory]int{
	EventSports:      4000,
	EventCeremony:    10000,
	EventPerformance: 6000,
	EventSpeech:      10000,
	EventLecture:     12000,
}

// MinSegmentMs returns the category's minimum shot length.
func MinSegmentMs(category EventCategory) int {
	if ms, ok := minSegmentMsByCategory[category]; ok {
		return ms
	}
	return DefaultMinSegmentMs
}

// Speaker-priority multipliers for speech-like events. Closeup and stage
// angles carry the speaker; wide and crowd are reserved for applause and
// transitions.
var speakerMultipliers = map[AngleType]float64{
	AngleCloseup: 2.0,
	AngleStage:   2.0,
}

const speakerWideCrowdPenalty = 0.3

// isSpeechCategory reports whether the category centers on a speaker.
func isSpeechCategory(category EventCategory) bool {
	switch category {
	case EventCeremony, EventSpeech, EventLecture:
		return true
	default:
		return false
	}
}

// Scene types that indicate a speaking moment.
var speakingScenes = map[string]bool{
	"speech":       true,
	"name_called":  true,
	"solo":         true,
	"announcement": true,
}

// Scene types used by the engagement score.
var engagingScenes = map[string]bool{
	"high_action":    true,
	"scoring_play":   true,
	"solo":           true,
	"celebration":    true,
	"ball_near_goal": true,
}

var boringScenes = map[string]bool{
	"low_action": true,
	"pause":      true,
	"timeout":    true,
	"break":      true,
	"walking":    true,
}
