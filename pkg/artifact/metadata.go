package artifact

import "time"

// Recording modes stored in Metadata.Mode.
const (
	ModeSingle    = "single"
	ModeSegmented = "segmented"
)

// Metadata is the summary record written once per finalized meeting.
type Metadata struct {
	MeetingName       string    `json:"meeting_name" msgpack:"meeting_name" yaml:"meeting_name"`
	ChannelID         string    `json:"channel_id" msgpack:"channel_id" yaml:"channel_id"`
	ChannelName       string    `json:"channel_name" msgpack:"channel_name" yaml:"channel_name"`
	StartTime         time.Time `json:"start_time" msgpack:"start_time" yaml:"start_time"`
	EndTime           time.Time `json:"end_time" msgpack:"end_time" yaml:"end_time"`
	Duration          float64   `json:"duration" msgpack:"duration" yaml:"duration"`
	DurationFormatted string    `json:"duration_formatted" msgpack:"duration_formatted" yaml:"duration_formatted"`
	NumUsers          int       `json:"num_users" msgpack:"num_users" yaml:"num_users"`
	RecordedUsers     string    `json:"recorded_users" msgpack:"recorded_users" yaml:"recorded_users"`
	RecordedUserIDs   []string  `json:"recorded_user_ids" msgpack:"recorded_user_ids" yaml:"recorded_user_ids"`

	TranscriptionLength int `json:"transcription_length" msgpack:"transcription_length" yaml:"transcription_length"`
	SummaryLength       int `json:"summary_length" msgpack:"summary_length" yaml:"summary_length"`

	IndividualUploadsSuccess int  `json:"individual_uploads_success" msgpack:"individual_uploads_success" yaml:"individual_uploads_success"`
	MixUploadSuccess         bool `json:"mix_upload_success" msgpack:"mix_upload_success" yaml:"mix_upload_success"`
	ProcessingCompleted      bool `json:"processing_completed" msgpack:"processing_completed" yaml:"processing_completed"`

	// Segments is the number of segments flushed during the recording.
	Segments int    `json:"segments" msgpack:"segments" yaml:"segments"`
	Mode     string `json:"mode" msgpack:"mode" yaml:"mode"`
}

// SetTimes records start and end and derives both duration fields from
// them. format renders the duration for humans.
func (m *Metadata) SetTimes(start, end time.Time, format func(time.Duration) string) {
	m.StartTime = start
	m.EndTime = end
	d := end.Sub(start)
	m.Duration = d.Seconds()
	if format != nil {
		m.DurationFormatted = format(d)
	}
}
