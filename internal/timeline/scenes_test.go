package timeline

import (
	"context"
	"testing"

	"github.com/Kaibo-Huang/Anchor/internal/search"
)

func TestBuildSceneContexts_Empty(t *testing.T) {
	got := BuildSceneContexts(context.Background(), nil, nil, "", EventSports, nil)
	if got != nil {
		t.Errorf("contexts = %v, want nil for no cameras", got)
	}
}

func TestBuildSceneContexts_MergesAndSorts(t *testing.T) {
	cams := []CameraFeed{
		{ID: "a", Embeddings: []EmbeddingSegment{{StartSec: 10, EndSec: 20, Vector: []float64{1}}}},
		{ID: "b", Embeddings: []EmbeddingSegment{{StartSec: 0, EndSec: 10, Vector: []float64{2}}}},
	}

	got := BuildSceneContexts(context.Background(), cams, nil, "", EventSports, nil)
	if len(got) != 2 {
		t.Fatalf("contexts = %d, want 2", len(got))
	}
	if got[0].StartMs != 0 || got[1].StartMs != 10000 {
		t.Errorf("not sorted: starts %d, %d", got[0].StartMs, got[1].StartMs)
	}
	for _, sc := range got {
		if sc.ActionIntensity != 5 {
			t.Errorf("unlabeled intensity = %d, want 5", sc.ActionIntensity)
		}
		if sc.SceneType != "" {
			t.Errorf("unlabeled scene type = %q, want empty", sc.SceneType)
		}
	}
}

func TestBuildSceneContexts_LabelsFromSearch(t *testing.T) {
	cams := []CameraFeed{
		{ID: "a", Embeddings: []EmbeddingSegment{
			{StartSec: 0, EndSec: 10, Vector: []float64{1}},
			{StartSec: 10, EndSec: 20, Vector: []float64{1}},
		}},
	}
	searcher := &fakeSearcher{hits: map[string][]search.Hit{
		"fast action, running, intense play, scoring": {
			{StartSec: 2, EndSec: 8, Confidence: 0.8},
		},
	}}

	got := BuildSceneContexts(context.Background(), cams, searcher, "idx", EventSports, nil)
	if len(got) != 2 {
		t.Fatalf("contexts = %d, want 2", len(got))
	}
	if got[0].SceneType != "high_action" || got[0].ActionIntensity != 8 {
		t.Errorf("first window = %q/%d, want high_action/8", got[0].SceneType, got[0].ActionIntensity)
	}
	if got[1].SceneType != "" {
		t.Errorf("second window labeled %q, want unlabeled", got[1].SceneType)
	}
}

func TestBuildSceneContexts_LowConfidenceIgnored(t *testing.T) {
	cams := []CameraFeed{
		{ID: "a", Embeddings: []EmbeddingSegment{{StartSec: 0, EndSec: 10, Vector: []float64{1}}}},
	}
	searcher := &fakeSearcher{hits: map[string][]search.Hit{
		"fast action, running, intense play, scoring": {
			{StartSec: 2, EndSec: 8, Confidence: 0.5},
		},
	}}

	got := BuildSceneContexts(context.Background(), cams, searcher, "idx", EventSports, nil)
	if got[0].SceneType != "" {
		t.Errorf("scene type = %q, want empty for confidence below 0.6", got[0].SceneType)
	}
}

func TestIntervalsOverlap(t *testing.T) {
	tests := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd int
		want                       bool
	}{
		{"b starts inside a", 0, 10, 5, 15, true},
		{"a starts inside b", 5, 15, 0, 10, true},
		{"identical", 0, 10, 0, 10, true},
		{"touching endpoints", 0, 10, 10, 20, false},
		{"disjoint", 0, 10, 20, 30, false},
		{"contained", 0, 100, 40, 60, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := intervalsOverlap(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd); got != tt.want {
				t.Errorf("intervalsOverlap(%d,%d,%d,%d) = %v, want %v",
					tt.aStart, tt.aEnd, tt.bStart, tt.bEnd, got, tt.want)
			}
		})
	}
}

func TestSceneContextAt(t *testing.T) {
	contexts := []SceneContext{
		{StartMs: 0, EndMs: 4000},
		{StartMs: 4000, EndMs: 8000},
	}

	if sc := SceneContextAt(contexts, 0); sc == nil || sc.EndMs != 4000 {
		t.Errorf("SceneContextAt(0) = %v, want first window", sc)
	}
	// Windows are half-open: a boundary belongs to the later window.
	if sc := SceneContextAt(contexts, 4000); sc == nil || sc.StartMs != 4000 {
		t.Errorf("SceneContextAt(4000) = %v, want second window", sc)
	}
	if sc := SceneContextAt(contexts, 8000); sc != nil {
		t.Errorf("SceneContextAt(8000) = %v, want nil", sc)
	}
	if sc := SceneContextAt(nil, 0); sc != nil {
		t.Errorf("SceneContextAt(nil) = %v, want nil", sc)
	}
}

func TestIntensityForScene(t *testing.T) {
	if got := intensityForScene("high_action"); got != 8 {
		t.Errorf("high_action = %d, want 8", got)
	}
	if got := intensityForScene("walking"); got != 3 {
		t.Errorf("walking = %d, want 3", got)
	}
	if got := intensityForScene("applause"); got != 5 {
		t.Errorf("applause = %d, want 5", got)
	}
}
