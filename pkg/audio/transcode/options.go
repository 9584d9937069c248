package transcode

import (
	"fmt"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// ConvertOptions enumerates everything a conversion may change.
// Zero values mean "keep the input's value".
type ConvertOptions struct {
	Format       Format        `validate:"required,oneof=mp3 wav ogg s16le"`
	Codec        string        `validate:"omitempty,oneof=libmp3lame libopus pcm_s16le copy"`
	Bitrate      string        `validate:"omitempty,bitrate"`
	SampleRate   int           `validate:"omitempty,min=8000,max=192000"`
	Channels     int           `validate:"omitempty,min=1,max=2"`
	TrimStart    time.Duration `validate:"gte=0"`
	TrimDuration time.Duration `validate:"gte=0"`
}

var bitratePattern = regexp.MustCompile(`^[1-9][0-9]*k$`)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func optionsValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterValidation("bitrate", func(fl validator.FieldLevel) bool {
			return bitratePattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

// Validate checks the options before any process is started.
func (o ConvertOptions) Validate() error {
	if err := optionsValidator().Struct(o); err != nil {
		return fmt.Errorf("transcode: invalid options: %w", err)
	}
	return nil
}

// codec returns the explicit codec or the format's default.
func (o ConvertOptions) codec() string {
	if o.Codec != "" {
		return o.Codec
	}
	return o.Format.Codec()
}

// args renders the output-side ffmpeg arguments, ending with "-" (stdout).
func (o ConvertOptions) args() []string {
	var args []string
	if o.TrimStart > 0 {
		args = append(args, "-ss", seconds(o.TrimStart))
	}
	if o.TrimDuration > 0 {
		args = append(args, "-t", seconds(o.TrimDuration))
	}
	args = append(args, "-c:a", o.codec())
	if o.Bitrate != "" {
		args = append(args, "-b:a", o.Bitrate)
	}
	if o.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(o.SampleRate))
	}
	if o.Channels > 0 {
		args = append(args, "-ac", strconv.Itoa(o.Channels))
	}
	return append(args, "-f", string(o.Format), "-")
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
