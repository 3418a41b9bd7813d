package timeline

import "math"

// Base suitability by angle type, before the 0.25 scale.
var baseAngleScores = map[AngleType]float64{
	AngleWide:    50,
	AngleCloseup: 40,
	AngleCrowd:   30,
	AngleGoal:    35,
	AngleStage:   45,
	AngleOther:   25,
}

// ScoreMoment rates how suitable a camera is at a given instant, 0-100.
// The function is pure and deterministic: identical inputs always produce
// identical scores.
//
// Components: a base angle-type score (scaled to a quarter of the total), a
// profile-match bonus, an embedding-similarity score against the scene
// context with action-intensity modifiers, a speaker-priority multiplier for
// speech-like events, and a soft rotation tie-breaker for everything else.
func ScoreMoment(
	cam CameraFeed,
	timeMs int,
	profile Profile,
	scene *SceneContext,
	camIndex int,
	totalCams int,
	category EventCategory,
) float64 {
	speechEvent := isSpeechCategory(category)

	base, ok := baseAngleScores[cam.Angle]
	if !ok {
		base = 25
	}
	baseScore := base * 0.25

	profileScore := 0.0
	if cam.Angle == profile.DefaultAngle {
		profileScore = 25
	}
	if scene != nil && scene.SceneType != "" {
		if preferred, ok := profile.SceneAngles[scene.SceneType]; ok && cam.Angle == preferred {
			// Scene rule overrides the default-angle bonus.
			profileScore = 25
		}
	}

	embeddingScore := 0.0
	current := embeddingAt(cam.Embeddings, timeMs)
	switch {
	case current != nil && scene != nil:
		if sim, ok := cosineSimilarity(current, scene.Embedding); ok {
			embeddingScore = math.Max(0, sim) * 50
		} else {
			// Camera has an embedding but the context offers nothing
			// comparable: flat floor credit.
			embeddingScore = 15
		}
		if scene.ActionIntensity >= 8 {
			// High action: favor tight angles.
			switch cam.Angle {
			case AngleCloseup:
				embeddingScore += 10
			case AngleGoal:
				embeddingScore += 8
			}
		} else if scene.ActionIntensity <= 3 {
			// Low action: favor establishing and crowd shots.
			switch cam.Angle {
			case AngleWide:
				embeddingScore += 5
			case AngleCrowd:
				embeddingScore += 8
			}
		}
	case current != nil:
		// Embeddings exist but no scene context to compare with.
		embeddingScore = 15
	}

	speakerMultiplier := 1.0
	if speechEvent && scene != nil {
		if speakingScenes[scene.SceneType] || scene.ActionIntensity <= 4 {
			if m, ok := speakerMultipliers[cam.Angle]; ok {
				speakerMultiplier = m
			}
			// Wide and crowd shots are reserved for applause and transitions.
			if cam.Angle == AngleWide || cam.Angle == AngleCrowd {
				speakerMultiplier = speakerWideCrowdPenalty
			}
		}
	}

	// Soft rotation: a tie-breaker that nudges variety without forcing a
	// rigid switching cadence. Disabled for speech events, where the speaker
	// angle should dominate.
	if totalCams > 1 && !speechEvent {
		slot := (timeMs / rotationIntervalMs) % totalCams
		if slot == camIndex {
			embeddingScore += rotationBonus
		} else {
			embeddingScore -= rotationPenalty
		}
	}

	total := (baseScore + profileScore + embeddingScore) * speakerMultiplier
	return math.Max(0, math.Min(total, 100))
}

// EngagementScore derives content desirability (0-100) from the scene
// context. High engagement justifies holding a shot; low engagement invites
// an earlier switch.
func EngagementScore(scene *SceneContext) float64 {
	if scene == nil {
		return 50
	}

	score := 50.0
	score += float64(scene.ActionIntensity-5) * 8

	if engagingScenes[scene.SceneType] {
		score += 15
	} else if boringScenes[scene.SceneType] {
		score -= 15
	}

	return math.Max(0, math.Min(100, score))
}

// embeddingAt returns the camera's embedding vector covering timeMs, or nil.
func embeddingAt(segments []EmbeddingSegment, timeMs int) []float64 {
	for _, seg := range segments {
		startMs := int(seg.StartSec * 1000)
		endMs := int(seg.EndSec * 1000)
		if startMs <= timeMs && timeMs <= endMs {
			return seg.Vector
		}
	}
	return nil
}

// cosineSimilarity returns the cosine of the angle between a and b. The
// second return is false for mismatched lengths or zero vectors.
func cosineSimilarity(a, b []float64) (float64, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), true
}
