package timeline

import (
	"context"
	"log/slog"
	"sort"

	"github.com/Kaibo-Huang/Anchor/internal/search"
)

// minimum search confidence for a hit to label a scene
const sceneTypeMinConfidence = 0.6

type sceneTypeQuery struct {
	sceneType string
	query     string
}

// Canned scene-type queries per event category. Categories without an entry
// (speech, lecture) rely on embeddings alone.
var sceneQueriesByCategory = map[EventCategory][]sceneTypeQuery{
	EventSports: {
		{"high_action", "fast action, running, intense play, scoring"},
		{"ball_near_goal", "shot on goal, near the net, close to scoring"},
		{"low_action", "players standing, timeout, break in play"},
		{"celebration", "celebrating, cheering, team huddle"},
	},
	EventCeremony: {
		{"name_called", "name being announced, walking to stage"},
		{"speech", "person speaking at podium, giving speech"},
		{"applause", "audience clapping, standing ovation"},
		{"walking", "person walking, crossing stage"},
	},
	EventPerformance: {
		{"solo", "solo performer, single musician, spotlight"},
		{"full_band", "full band playing, ensemble performance"},
		{"crowd_singing", "audience singing along, crowd participation"},
	},
}

type labeledInterval struct {
	startMs   int
	endMs     int
	sceneType string
}

// BuildSceneContexts merges every camera's embedding windows into one
// chronological scene timeline and labels windows with scene types detected
// via the search collaborator. Search failures contribute no labels and are
// never fatal.
func BuildSceneContexts(
	ctx context.Context,
	cameras []CameraFeed,
	searcher search.Client,
	indexID string,
	category EventCategory,
	logger *slog.Logger,
) []SceneContext {
	var merged []SceneContext
	for _, cam := range cameras {
		for _, emb := range cam.Embeddings {
			merged = append(merged, SceneContext{
				StartMs:         int(emb.StartSec * 1000),
				EndMs:           int(emb.EndSec * 1000),
				Embedding:       emb.Vector,
				ActionIntensity: 5,
			})
		}
	}
	if len(merged) == 0 {
		return nil
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].StartMs < merged[j].StartMs })

	labels := detectSceneTypes(ctx, searcher, indexID, category, logger)

	for i := range merged {
		for _, lab := range labels {
			if !intervalsOverlap(merged[i].StartMs, merged[i].EndMs, lab.startMs, lab.endMs) {
				continue
			}
			merged[i].SceneType = lab.sceneType
			merged[i].ActionIntensity = intensityForScene(lab.sceneType)
			break
		}
	}

	return merged
}

func detectSceneTypes(
	ctx context.Context,
	searcher search.Client,
	indexID string,
	category EventCategory,
	logger *slog.Logger,
) []labeledInterval {
	if searcher == nil || indexID == "" {
		return nil
	}

	var labels []labeledInterval
	for _, q := range sceneQueriesByCategory[category] {
		hits, err := searcher.Search(ctx, indexID, q.query, 5)
		if err != nil {
			if logger != nil {
				logger.Warn("scene type query failed", "scene_type", q.sceneType, "error", err)
			}
			continue
		}
		for _, hit := range hits {
			if hit.Confidence <= sceneTypeMinConfidence {
				continue
			}
			labels = append(labels, labeledInterval{
				startMs:   hit.StartMs(),
				endMs:     hit.EndMs(),
				sceneType: q.sceneType,
			})
		}
	}
	return labels
}

// intervalsOverlap reports whether either interval's start lies strictly
// inside the other.
func intervalsOverlap(aStart, aEnd, bStart, bEnd int) bool {
	return (aStart <= bStart && bStart < aEnd) || (bStart <= aStart && aStart < bEnd)
}

// intensityForScene maps a detected scene type to an action-intensity
// estimate: engaging types run hot, boring types run cold, the rest medium.
func intensityForScene(sceneType string) int {
	switch sceneType {
	case "high_action", "celebration", "solo":
		return 8
	case "low_action", "walking":
		return 3
	default:
		return 5
	}
}

// SceneContextAt returns the scene context covering timeMs, or nil.
func SceneContextAt(contexts []SceneContext, timeMs int) *SceneContext {
	for i := range contexts {
		if contexts[i].StartMs <= timeMs && timeMs < contexts[i].EndMs {
			return &contexts[i]
		}
	}
	return nil
}
