package transcriber

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"justspeak/encoder"
	"justspeak/log"
)

// Nemo talks to a nemospeech server: multipart upload to /transcribe/,
// plain-text response.
type Nemo struct {
	client  *TracedClient
	baseURL string
	format  encoder.Format
}

func NewNemo(opts Options) *Nemo {
	base := strings.TrimRight(opts.URL, "/")
	if base == "" {
		base = DefaultURL
	}
	format := opts.Format
	if format == "" {
		format = encoder.FormatWAV
	}
	return &Nemo{
		client:  NewTracedClient(""),
		baseURL: base,
		format:  format,
	}
}

func (n *Nemo) Name() string { return "nemospeech" }

func (n *Nemo) URL() string { return n.baseURL }

func (n *Nemo) Transcribe(ctx context.Context, samples []int16, final bool) (string, error) {
	up, err := buildUpload(n.format, samples, nil)
	if err != nil {
		return "", fmt.Errorf("nemospeech: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/transcribe/", up.body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", up.contentType)

	resp, err := n.client.Do(req)
	if err != nil {
		return "", transportError(ctx, "nemospeech", err)
	}
	logRequest(n.Name(), n.format, final, up, resp)

	if resp.StatusCode != http.StatusOK {
		return "", statusError("nemospeech", resp.StatusCode, resp.Body)
	}
	if !utf8.Valid(resp.Body) {
		return "", fmt.Errorf("nemospeech: %w: response is not UTF-8", ErrMalformed)
	}
	return strings.TrimSpace(string(resp.Body)), nil
}

type Health struct {
	Status    string `json:"status"`
	Model     string `json:"model"`
	Streaming bool   `json:"streaming"`
}

// Health queries GET /health. A reachable server that answers with anything
// other than status "ok" is reported as unavailable.
func (n *Nemo) Health(ctx context.Context) (*Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/health", nil)
	if err != nil {
		return nil, err
	}
	resp, err := n.client.Do(req)
	if err != nil {
		return nil, transportError(ctx, "nemospeech health", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("nemospeech health", resp.StatusCode, resp.Body)
	}
	var h Health
	if err := json.Unmarshal(resp.Body, &h); err != nil {
		return nil, fmt.Errorf("nemospeech health parse error: %w: %v", ErrMalformed, err)
	}
	if h.Status != "ok" {
		return &h, fmt.Errorf("nemospeech health status %q: %w", h.Status, ErrServiceUnavailable)
	}
	return &h, nil
}

func logRequest(provider string, format encoder.Format, final bool, up *upload, resp *TracedResponse) {
	m := resp.Metrics
	log.Request(log.RequestMetrics{
		Provider:   provider,
		Format:     string(format),
		Final:      final,
		Status:     resp.StatusCode,
		AudioS:     up.audioS,
		UploadKB:   float64(up.size) / 1024,
		EncodeMs:   float64(up.encodeTime.Microseconds()) / 1000,
		DNSMs:      float64(m.DNS.Microseconds()) / 1000,
		TLSMs:      float64(m.TLS.Microseconds()) / 1000,
		TTFBMs:     float64(m.TTFB.Microseconds()) / 1000,
		TotalMs:    float64(m.Total.Microseconds()) / 1000,
		ConnReused: m.ConnReused,
	})
}
