package artifact

import (
	"path"
	"strconv"
)

// Fixed object names inside a meeting prefix.
const (
	MixName         = "meeting_mix.mp3"
	TranscriptName  = "transcription.txt"
	SummaryTextName = "summary.txt"
	SummaryJSONName = "summary.json"
)

// IndividualPath is the final per-speaker track: {m}/individuals/{uid}.mp3.
func IndividualPath(meeting, userID string) string {
	return path.Join(meeting, "individuals", userID+".mp3")
}

// MixPath is {m}/meeting_mix.mp3.
func MixPath(meeting string) string {
	return path.Join(meeting, MixName)
}

// TranscriptPath is {m}/transcription.txt.
func TranscriptPath(meeting string) string {
	return path.Join(meeting, TranscriptName)
}

func SummaryTextPath(meeting string) string {
	return path.Join(meeting, SummaryTextName)
}

func SummaryJSONPath(meeting string) string {
	return path.Join(meeting, SummaryJSONName)
}

// MetadataPath is {m}/{m}_metadata.json.
func MetadataPath(meeting string) string {
	return path.Join(meeting, meeting+"_metadata.json")
}

// SegmentUserPath is {m}/segments/{n}/user_{uid}.mp3.
func SegmentUserPath(meeting string, n int, userID string) string {
	return path.Join(meeting, "segments", strconv.Itoa(n), "user_"+userID+".mp3")
}

// SegmentMixPath is {m}/audio_segments/{n}.mp3.
func SegmentMixPath(meeting string, n int) string {
	return path.Join(meeting, "audio_segments", strconv.Itoa(n)+".mp3")
}

// SegmentTextPath is {m}/text_segments/{n}.txt.
func SegmentTextPath(meeting string, n int) string {
	return path.Join(meeting, "text_segments", strconv.Itoa(n)+".txt")
}

// TextSegmentsDir is the listing prefix for the text segments of meeting.
func TextSegmentsDir(meeting string) string {
	return path.Join(meeting, "text_segments") + "/"
}
