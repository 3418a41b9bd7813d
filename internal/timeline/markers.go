package timeline

import (
	"context"
	"sort"
	"strings"
)

const zoomQuery = "exciting moment, celebration, key play, climax"

// generateZooms marks high-excitement moments for zoom emphasis, spaced at
// least ten seconds apart. Without a search index there are no zooms.
func (s *Synthesizer) generateZooms(ctx context.Context, indexID string, durationMs int) []Zoom {
	zooms := []Zoom{}
	if s.searcher == nil || indexID == "" || durationMs <= 0 {
		return zooms
	}

	hits, err := s.searcher.Search(ctx, indexID, zoomQuery, 10)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("zoom moment search failed, continuing without zooms", "error", err)
		}
		return zooms
	}

	lastZoomMs := -zoomMinSpacingMs
	for _, hit := range hits {
		startMs := hit.StartMs()
		if startMs-lastZoomMs < zoomMinSpacingMs {
			continue
		}

		zoomMs := hit.EndMs() - startMs
		if zoomMs > zoomMaxDuration {
			zoomMs = zoomMaxDuration
		}

		factor := ZoomFactorMed
		if hit.Confidence > 0.8 {
			factor = ZoomFactorHigh
		}

		zooms = append(zooms, Zoom{StartMs: startMs, DurationMs: zoomMs, Factor: factor})
		lastZoomMs = startMs
	}

	return zooms
}

// Chapter-worthy moment queries per event category.
var chapterQueriesByCategory = map[EventCategory][]string{
	EventSports:      {"goal", "halftime", "celebration"},
	EventCeremony:    {"speech", "award presentation", "name called"},
	EventPerformance: {"solo", "song change", "finale"},
}

// generateChapters produces navigation markers: a fixed start chapter plus
// highlight chapters found via search, spaced at least a minute apart.
func (s *Synthesizer) generateChapters(ctx context.Context, indexID string, category EventCategory) []Chapter {
	chapters := []Chapter{{TimestampMs: 0, Title: "Start", Kind: "section"}}

	if s.searcher == nil || indexID == "" {
		return chapters
	}

	queries, ok := chapterQueriesByCategory[category]
	if !ok {
		queries = []string{"highlight"}
	}

	for _, query := range queries {
		hits, err := s.searcher.Search(ctx, indexID, query, 3)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("chapter search failed, continuing", "query", query, "error", err)
			}
			continue
		}

		for _, hit := range hits {
			timeMs := hit.StartMs()
			if !chapterSpaced(chapters, timeMs) {
				continue
			}
			chapters = append(chapters, Chapter{
				TimestampMs: timeMs,
				Title:       titleCase(query),
				Kind:        "highlight",
			})
		}
	}

	sort.Slice(chapters, func(i, j int) bool { return chapters[i].TimestampMs < chapters[j].TimestampMs })
	return chapters
}

func chapterSpaced(chapters []Chapter, timeMs int) bool {
	for _, c := range chapters {
		d := timeMs - c.TimestampMs
		if d < 0 {
			d = -d
		}
		if d <= chapterMinSpacingMs {
			return false
		}
	}
	return true
}

// titleCase capitalizes the first letter of each space-separated word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
