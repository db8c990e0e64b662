package encoder

import "fmt"

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

// Format names an upload container.
type Format string

const (
	FormatWAV  Format = "wav"
	FormatFLAC Format = "flac"
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatWAV, "":
		return FormatWAV, nil
	case FormatFLAC:
		return FormatFLAC, nil
	}
	return "", fmt.Errorf("unknown format %q (use wav or flac)", s)
}

// Ext is the file extension used for the multipart upload.
func (f Format) Ext() string { return string(f) }

func (f Format) ContentType() string {
	if f == FormatFLAC {
		return "audio/flac"
	}
	return "audio/wav"
}

// Encode packs 16 kHz mono samples into the given container.
func Encode(f Format, samples []int16) ([]byte, error) {
	switch f {
	case FormatFLAC:
		return EncodeFLAC(samples)
	case FormatWAV, "":
		return EncodeWAV(samples)
	}
	return nil, fmt.Errorf("unknown format %q", f)
}
