package media

import "fmt"

// TranscodeOptions describes a requested conversion. The zero value of any
// field means "preserve the source value"; an empty codec or format lets
// ffmpeg choose the default for the target container.
type TranscodeOptions struct {
	Format        string `json:"format,omitempty"`
	VideoCodec    string `json:"videoCodec,omitempty"`
	AudioCodec    string `json:"audioCodec,omitempty"`
	VideoBitrate  int    `json:"videoBitrate,omitempty"` // kbps
	AudioBitrate  int    `json:"audioBitrate,omitempty"` // kbps
	Width         int    `json:"width,omitempty"`        // pixels
	Height        int    `json:"height,omitempty"`       // pixels
	HardwareAccel bool   `json:"hardwareAccel,omitempty"`
}

// Validate checks the options for combinations that can never produce a
// valid conversion. It is called once, at submission, before a job record
// is created.
func (o TranscodeOptions) Validate() error {
	if o.VideoBitrate < 0 {
		return fmt.Errorf("video bitrate must not be negative: %d", o.VideoBitrate)
	}
	if o.AudioBitrate < 0 {
		return fmt.Errorf("audio bitrate must not be negative: %d", o.AudioBitrate)
	}
	if o.Width < 0 {
		return fmt.Errorf("width must not be negative: %d", o.Width)
	}
	if o.Height < 0 {
		return fmt.Errorf("height must not be negative: %d", o.Height)
	}
	return nil
}

// IsPassthrough reports whether the options request no change at all.
// Such a conversion is still legal (remux into the same container).
func (o TranscodeOptions) IsPassthrough() bool {
	return o.Format == "" && o.VideoCodec == "" && o.AudioCodec == "" &&
		o.VideoBitrate == 0 && o.AudioBitrate == 0 && o.Width == 0 && o.Height == 0
}
