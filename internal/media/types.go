package media

// Descriptor describes a probed media file.
type Descriptor struct {
	Path            string            `json:"path"`
	Format          string            `json:"format"`
	DurationMs      int64             `json:"duration"`
	Width           int               `json:"width"`
	Height          int               `json:"height"`
	VideoCodec      string            `json:"videoCodec"`
	VideoBitrate    int               `json:"videoBitrate"`
	AudioCodec      string            `json:"audioCodec"`
	AudioBitrate    int               `json:"audioBitrate"`
	AudioChannels   int               `json:"audioChannels"`
	AudioSampleRate int               `json:"audioSampleRate"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// HasVideo reports whether the probe found a video stream.
func (d *Descriptor) HasVideo() bool {
	return d.VideoCodec != ""
}

// HasAudio reports whether the probe found an audio stream.
func (d *Descriptor) HasAudio() bool {
	return d.AudioCodec != ""
}
