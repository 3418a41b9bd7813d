package timeline

import (
	"context"
	"testing"

	"github.com/Kaibo-Huang/Anchor/internal/search"
)

// fakeSearcher answers queries from a fixed map. Unknown queries return no
// hits, mirroring a real index with nothing relevant.
type fakeSearcher struct {
	hits map[string][]search.Hit
	err  error
}

func (f *fakeSearcher) Search(ctx context.Context, indexID, query string, limit int) ([]search.Hit, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.hits[query], nil
}

func fullCoverageEmbedding(durationSec float64) []EmbeddingSegment {
	return []EmbeddingSegment{{StartSec: 0, EndSec: durationSec, Vector: []float64{1, 0}}}
}

func checkPartition(t *testing.T, segments []Segment, totalMs int) {
	t.Helper()

	if len(segments) == 0 {
		t.Fatal("no segments")
	}
	if segments[0].StartMs != 0 {
		t.Errorf("first segment starts at %d, want 0", segments[0].StartMs)
	}
	for i := 1; i < len(segments); i++ {
		if segments[i].StartMs != segments[i-1].EndMs {
			t.Errorf("gap or overlap between segment %d (end %d) and %d (start %d)",
				i-1, segments[i-1].EndMs, i, segments[i].StartMs)
		}
	}
	if last := segments[len(segments)-1].EndMs; last != totalMs {
		t.Errorf("last segment ends at %d, want %d", last, totalMs)
	}
}

func TestGenerate_InvalidCategory(t *testing.T) {
	s := NewSynthesizer(search.NewStubClient(nil), nil)

	_, err := s.Generate(context.Background(), nil, EventCategory("concert"), "", 60000, 0)
	if err == nil {
		t.Fatal("expected error for unknown category")
	}
}

func TestGenerate_NoCameras(t *testing.T) {
	s := NewSynthesizer(search.NewStubClient(nil), nil)

	tl, err := s.Generate(context.Background(), nil, EventSports, "", 60000, 0)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if tl.Segments == nil || tl.Zooms == nil || tl.AdSlots == nil || tl.Chapters == nil {
		t.Fatal("timeline slices must be non-nil")
	}
	if len(tl.Segments) != 0 {
		t.Errorf("segments = %d, want 0", len(tl.Segments))
	}
}

func TestGenerate_ZeroDuration(t *testing.T) {
	s := NewSynthesizer(search.NewStubClient(nil), nil)
	cams := []CameraFeed{{ID: "a", Angle: AngleWide, Embeddings: fullCoverageEmbedding(60)}}

	tl, err := s.Generate(context.Background(), cams, EventSports, "", 0, 0)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(tl.Segments) != 0 {
		t.Errorf("segments = %d, want 0 for zero source duration", len(tl.Segments))
	}
}

func TestGenerate_SingleCamera_OneSegment(t *testing.T) {
	s := NewSynthesizer(search.NewStubClient(nil), nil)
	cams := []CameraFeed{{ID: "a", Angle: AngleWide, Embeddings: fullCoverageEmbedding(60)}}

	tl, err := s.Generate(context.Background(), cams, EventSports, "", 60000, 0)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if len(tl.Segments) != 1 {
		t.Fatalf("segments = %d, want 1", len(tl.Segments))
	}
	seg := tl.Segments[0]
	if seg.StartMs != 0 || seg.EndMs != 60000 || seg.CameraID != "a" {
		t.Errorf("segment = %+v, want [0,60000] camera a", seg)
	}
	if tl.DurationMs() != 60000 {
		t.Errorf("duration = %d, want 60000", tl.DurationMs())
	}
}

func TestGenerate_ShortEvent_NoAdSlots(t *testing.T) {
	s := NewSynthesizer(search.NewStubClient(nil), nil)
	cams := []CameraFeed{{ID: "a", Angle: AngleWide, Embeddings: fullCoverageEmbedding(15)}}

	tl, err := s.Generate(context.Background(), cams, EventSports, "", 15000, 0)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(tl.AdSlots) != 0 {
		t.Errorf("ad slots = %d, want 0 for a 15s event", len(tl.AdSlots))
	}
}

func TestGenerate_ThreeUniformCameras_DiversityPreservesPartition(t *testing.T) {
	s := NewSynthesizer(search.NewStubClient(nil), nil)
	cams := []CameraFeed{
		{ID: "a", Angle: AngleCloseup, Embeddings: fullCoverageEmbedding(60)},
		{ID: "b", Angle: AngleCloseup, Embeddings: fullCoverageEmbedding(60)},
		{ID: "c", Angle: AngleCloseup, Embeddings: fullCoverageEmbedding(60)},
	}

	// Speech events disable soft rotation, so identical cameras score
	// identically and only angle diversity brings b and c in.
	tl, err := s.Generate(context.Background(), cams, EventSpeech, "", 60000, 0)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	checkPartition(t, tl.Segments, 60000)

	used := tl.CamerasUsed()
	for _, id := range []string{"a", "b", "c"} {
		if !used[id] {
			t.Errorf("camera %s never used", id)
		}
	}

	// The incumbent should still dominate: more total time than any insert.
	timeByCam := map[string]int{}
	for _, seg := range tl.Segments {
		timeByCam[seg.CameraID] += seg.Duration()
	}
	if timeByCam["a"] <= timeByCam["b"] || timeByCam["a"] <= timeByCam["c"] {
		t.Errorf("dominant camera lost its lead: %v", timeByCam)
	}
}

func TestGenerate_MaxDurationCapsOutput(t *testing.T) {
	s := NewSynthesizer(search.NewStubClient(nil), nil)

	// Embedding coverage only over the first minute makes those buckets
	// outrank the rest, so the 60s budget selects a contiguous prefix.
	cams := []CameraFeed{{ID: "a", Angle: AngleWide, Embeddings: fullCoverageEmbedding(60)}}

	tl, err := s.Generate(context.Background(), cams, EventSports, "", 600000, 60000)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got := tl.DurationMs(); got != 60000 {
		t.Errorf("duration = %d, want 60000", got)
	}
}

func TestSelectBestMoments_QualityFloor(t *testing.T) {
	all := []moment{
		{timeMs: 0, cameraID: "a", score: 29, engagement: 50},
		{timeMs: 2000, cameraID: "a", score: 30, engagement: 50},
		{timeMs: 4000, cameraID: "a", score: 80, engagement: 50},
	}

	selected := selectBestMoments(all, 60000)
	if len(selected) != 2 {
		t.Fatalf("selected = %d, want 2 (floor excludes score 29)", len(selected))
	}
	for _, m := range selected {
		if m.score < minQualityScore {
			t.Errorf("selected moment with score %.1f below floor", m.score)
		}
	}
}

func TestSelectBestMoments_TieKeepsFirstCamera(t *testing.T) {
	all := []moment{
		{timeMs: 0, cameraID: "a", score: 60, engagement: 50},
		{timeMs: 0, cameraID: "b", score: 60, engagement: 50},
	}

	selected := selectBestMoments(all, 60000)
	if len(selected) != 1 {
		t.Fatalf("selected = %d, want 1", len(selected))
	}
	if selected[0].cameraID != "a" {
		t.Errorf("tie went to %s, want a (first encountered wins)", selected[0].cameraID)
	}
}

func TestSelectBestMoments_BudgetStopsSelection(t *testing.T) {
	var all []moment
	for ts := 0; ts < 20000; ts += bucketMs {
		all = append(all, moment{timeMs: ts, cameraID: "a", score: 80, engagement: 50})
	}

	selected := selectBestMoments(all, 6000)
	if len(selected) != 3 {
		t.Errorf("selected = %d buckets, want 3 for a 6000ms budget", len(selected))
	}
}

func TestSelectBestMoments_EqualQualityPrefersEarliest(t *testing.T) {
	var all []moment
	for ts := 0; ts < 40000; ts += bucketMs {
		all = append(all, moment{timeMs: ts, cameraID: "a", score: 80, engagement: 50})
	}

	// Uniform quality must break ties chronologically, run after run.
	for run := 0; run < 20; run++ {
		got := selectBestMoments(all, 6000)
		if len(got) != 3 {
			t.Fatalf("run %d: selected = %d buckets, want 3", run, len(got))
		}
		for i, m := range got {
			if want := i * bucketMs; m.timeMs != want {
				t.Errorf("run %d: bucket %d at %dms, want %dms", run, i, m.timeMs, want)
			}
		}
	}
}

func TestBuildSegments_HysteresisAbsorbsWeakChallenger(t *testing.T) {
	// Sports minimum is 4000ms. After the minimum, camera b's 60 does not
	// beat a's running average of 50 by 30%, so it is absorbed.
	moments := []moment{
		{timeMs: 0, cameraID: "a", score: 50},
		{timeMs: 2000, cameraID: "a", score: 50},
		{timeMs: 4000, cameraID: "b", score: 60},
	}

	segments := buildSegments(moments, 4000)
	if len(segments) != 1 {
		t.Fatalf("segments = %d, want 1 (challenger absorbed)", len(segments))
	}
	if segments[0].CameraID != "a" || segments[0].EndMs != 6000 {
		t.Errorf("segment = %+v, want camera a ending at 6000", segments[0])
	}
}

func TestBuildSegments_HysteresisCutsOnStrongChallenger(t *testing.T) {
	moments := []moment{
		{timeMs: 0, cameraID: "a", score: 50},
		{timeMs: 2000, cameraID: "a", score: 50},
		{timeMs: 4000, cameraID: "b", score: 70},
		{timeMs: 6000, cameraID: "b", score: 70},
	}

	segments := buildSegments(moments, 4000)
	if len(segments) != 2 {
		t.Fatalf("segments = %d, want 2 (70 > 50*1.3)", len(segments))
	}
	if segments[0].CameraID != "a" || segments[1].CameraID != "b" {
		t.Errorf("camera order = %s,%s, want a,b", segments[0].CameraID, segments[1].CameraID)
	}
	if segments[0].EndMs != segments[1].StartMs {
		t.Errorf("cut not contiguous: %+v %+v", segments[0], segments[1])
	}
}

func TestBuildSegments_MinimumHoldsThroughStrongChallenger(t *testing.T) {
	// Below the minimum the incumbent holds regardless of challenger score.
	moments := []moment{
		{timeMs: 0, cameraID: "a", score: 40},
		{timeMs: 2000, cameraID: "b", score: 100},
	}

	segments := buildSegments(moments, 10000)
	if len(segments) != 1 {
		t.Fatalf("segments = %d, want 1", len(segments))
	}
	if segments[0].CameraID != "a" {
		t.Errorf("camera = %s, want a (minimum not yet met)", segments[0].CameraID)
	}
	if segments[0].EndMs != 4000 {
		t.Errorf("end = %d, want 4000 (challenger's bucket time claimed)", segments[0].EndMs)
	}
}

func TestBuildSegments_SameCameraRunsToOneSegment(t *testing.T) {
	var moments []moment
	for ts := 0; ts < 60000; ts += bucketMs {
		moments = append(moments, moment{timeMs: ts, cameraID: "a", score: 80})
	}

	segments := buildSegments(moments, 4000)
	if len(segments) != 1 {
		t.Fatalf("segments = %d, want 1 for a single-camera run", len(segments))
	}
	checkPartition(t, segments, 60000)
}

func TestBuildSegments_Empty(t *testing.T) {
	segments := buildSegments(nil, 4000)
	if segments == nil {
		t.Fatal("segments must be non-nil")
	}
	if len(segments) != 0 {
		t.Errorf("segments = %d, want 0", len(segments))
	}
}

func TestEnsureAngleDiversity_SplitsLongestSegment(t *testing.T) {
	cams := []CameraFeed{
		{ID: "a", Angle: AngleWide},
		{ID: "b", Angle: AngleCloseup},
	}
	segments := []Segment{{StartMs: 0, EndMs: 30000, CameraID: "a"}}

	out := ensureAngleDiversity(segments, cams, 4000, nil)

	checkPartition(t, out, 30000)
	usedB := false
	for _, seg := range out {
		if seg.CameraID == "b" {
			usedB = true
			if seg.Duration() < 4000 {
				t.Errorf("inserted segment too short: %+v", seg)
			}
		}
	}
	if !usedB {
		t.Error("camera b never inserted")
	}
}

func TestEnsureAngleDiversity_SkipsWhenNoSegmentLongEnough(t *testing.T) {
	cams := []CameraFeed{
		{ID: "a", Angle: AngleWide},
		{ID: "b", Angle: AngleCloseup},
	}
	segments := []Segment{{StartMs: 0, EndMs: 7000, CameraID: "a"}}

	out := ensureAngleDiversity(segments, cams, 4000, nil)
	if len(out) != 1 {
		t.Fatalf("segments = %d, want 1 (7000 < 2*4000, no split)", len(out))
	}
}

func TestEnsureAngleDiversity_SingleCameraUntouched(t *testing.T) {
	cams := []CameraFeed{{ID: "a", Angle: AngleWide}}
	segments := []Segment{{StartMs: 0, EndMs: 60000, CameraID: "a"}}

	out := ensureAngleDiversity(segments, cams, 4000, nil)
	if len(out) != 1 {
		t.Errorf("segments = %d, want 1", len(out))
	}
}
