package transcriber

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"time"

	"justspeak/encoder"
)

var (
	ErrTimeout            = errors.New("transcription timed out")
	ErrServiceUnavailable = errors.New("transcription service unavailable")
	ErrEmptyAudio         = errors.New("no audio to transcribe")
	ErrMalformed          = errors.New("malformed transcription response")
)

type NetworkMetrics struct {
	DNS         time.Duration
	ConnWait    time.Duration
	TCP         time.Duration
	TLS         time.Duration
	ReqHeaders  time.Duration
	ReqBody     time.Duration
	TTFB        time.Duration
	Download    time.Duration
	Total       time.Duration
	ConnReused  bool
	TLSProtocol string
}

func (m *NetworkMetrics) Sum() time.Duration {
	return m.ConnWait + m.DNS + m.TCP + m.TLS + m.ReqHeaders + m.ReqBody + m.TTFB + m.Download
}

func firstNonEmpty(h http.Header, keys ...string) string {
	for _, k := range keys {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return "?"
}

// Client turns a snapshot of 16 kHz mono audio into text. It may be called
// concurrently for overlapping snapshots of the same recording.
type Client interface {
	Name() string
	Transcribe(ctx context.Context, samples []int16, final bool) (string, error)
}

// Warmer is implemented by hosted clients that can open their connection
// before the first request.
type Warmer interface {
	Warm() time.Duration
}

type Options struct {
	URL      string
	APIKey   string
	Format   encoder.Format
	Language string
}

const DefaultURL = "http://localhost:5051"

// New builds the client for a provider name: nemospeech, groq or openai.
func New(provider string, opts Options) (Client, error) {
	switch provider {
	case "nemospeech", "":
		return NewNemo(opts), nil
	case "groq":
		if opts.APIKey == "" {
			opts.APIKey = os.Getenv("GROQ_API_KEY")
		}
		if opts.APIKey == "" {
			return nil, fmt.Errorf("groq: set GROQ_API_KEY")
		}
		return NewGroq(opts), nil
	case "openai":
		if opts.APIKey == "" {
			opts.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		if opts.APIKey == "" {
			return nil, fmt.Errorf("openai: set OPENAI_API_KEY")
		}
		return NewOpenAI(opts), nil
	}
	return nil, fmt.Errorf("unknown provider %q (use nemospeech, groq or openai)", provider)
}

type upload struct {
	body        *bytes.Buffer
	contentType string
	size        int
	audioS      float64
	encodeTime  time.Duration
}

// buildUpload encodes the snapshot into a multipart form with the audio under
// the "file" field plus any extra fields.
func buildUpload(format encoder.Format, samples []int16, fields map[string]string) (*upload, error) {
	if len(samples) == 0 {
		return nil, ErrEmptyAudio
	}
	start := time.Now()
	audioData, err := encoder.Encode(format, samples)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}
	encodeTime := time.Since(start)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "audio."+format.Ext())
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(audioData); err != nil {
		return nil, err
	}
	for k, v := range fields {
		if v != "" {
			writer.WriteField(k, v)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return &upload{
		body:        &body,
		contentType: writer.FormDataContentType(),
		size:        body.Len(),
		audioS:      float64(len(samples)) / encoder.SampleRate,
		encodeTime:  encodeTime,
	}, nil
}

// transportError maps a failed round trip onto the error taxonomy.
func transportError(ctx context.Context, provider string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %v", provider, ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%s: %w: %v", provider, ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", provider, err)
	}
	return fmt.Errorf("%s: %w: %v", provider, ErrServiceUnavailable, err)
}

// statusError maps a non-200 response onto the error taxonomy.
func statusError(provider string, code int, body []byte) error {
	kind := ErrMalformed
	if code >= 500 || code == http.StatusTooManyRequests {
		kind = ErrServiceUnavailable
	}
	msg := string(body)
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return fmt.Errorf("%s error %d: %s: %w", provider, code, msg, kind)
}
