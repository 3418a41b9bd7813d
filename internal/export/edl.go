// Package export renders a synthesized timeline as a CMX-3600 EDL for
// downstream editing tools. Source timecodes are derived from segment times
// through each camera's sync offset.
package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/Kaibo-Huang/Anchor/internal/event"
	"github.com/Kaibo-Huang/Anchor/internal/timeline"
)

// ResolvedCut is one segment resolved against its camera: media path plus
// source-clock in/out points.
type ResolvedCut struct {
	ClipName   string
	MediaPath  string
	SrcStartMs int
	SrcEndMs   int
}

// ResolveCuts maps timeline segments onto camera media. Segment timestamps
// live on the reference clock; subtracting the camera's sync offset yields
// the camera's own source clock. Segments whose camera is unknown are
// skipped and reported.
func ResolveCuts(tl *timeline.Timeline, cameras []*event.Camera) ([]ResolvedCut, []string) {
	byID := make(map[string]*event.Camera, len(cameras))
	for _, cam := range cameras {
		byID[cam.ID] = cam
	}

	var cuts []ResolvedCut
	var unresolved []string
	for _, seg := range tl.Segments {
		cam, ok := byID[seg.CameraID]
		if !ok {
			unresolved = append(unresolved, seg.CameraID)
			continue
		}

		srcStart := seg.StartMs - cam.SyncOffsetMs
		srcEnd := seg.EndMs - cam.SyncOffsetMs
		if srcStart < 0 {
			srcStart = 0
		}
		if srcEnd <= srcStart {
			unresolved = append(unresolved, seg.CameraID)
			continue
		}

		cuts = append(cuts, ResolvedCut{
			ClipName:   SanitizeName(fmt.Sprintf("%s %s", cam.Angle, shortID(cam.ID)), 48),
			MediaPath:  cam.MediaPath,
			SrcStartMs: srcStart,
			SrcEndMs:   srcEnd,
		})
	}
	return cuts, unresolved
}

// GenerateEDL writes the cuts as a CMX-3600 edit decision list.
func GenerateEDL(cuts []ResolvedCut, title string, frameRate float64) string {
	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = 30
	}

	isDropFrame := math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01

	lines := []string{fmt.Sprintf("TITLE: %s", title)}
	if isDropFrame {
		lines = append(lines, "FCM: DROP FRAME")
	} else {
		lines = append(lines, "FCM: NON-DROP FRAME")
	}
	lines = append(lines, "")

	recordOffsetMs := 0
	for i, cut := range cuts {
		srcIn := msToTimecode(cut.SrcStartMs, fps)
		srcOut := msToTimecode(cut.SrcEndMs, fps)
		recIn := msToTimecode(recordOffsetMs, fps)
		durationMs := cut.SrcEndMs - cut.SrcStartMs
		recOut := msToTimecode(recordOffsetMs+durationMs, fps)

		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", i+1, "AX", "V", srcIn, srcOut, recIn, recOut),
			fmt.Sprintf("* FROM CLIP NAME:  %s", cut.ClipName),
			fmt.Sprintf("* MEDIA PATH:  %s", cut.MediaPath),
		)

		recordOffsetMs += durationMs
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func msToTimecode(ms int, fps int) string {
	totalFrames := int(math.Round(float64(ms) * float64(fps) / 1000.0))
	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	seconds := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, minutes, seconds, frames)
}
