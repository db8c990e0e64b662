package transcriber

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"justspeak/encoder"
	"justspeak/log"
)

// noSpeechThreshold drops results where every segment is likely silence.
const noSpeechThreshold = 0.6

// OpenAICompat speaks the /audio/transcriptions API shared by Groq and OpenAI.
type OpenAICompat struct {
	name   string
	client *TracedClient
	apiURL string
	apiKey string
	model  string
	format encoder.Format
	lang   string
}

func NewGroq(opts Options) *OpenAICompat {
	return newOpenAICompat("groq", "https://api.groq.com/openai/v1/audio/transcriptions", "whisper-large-v3-turbo", opts)
}

func NewOpenAI(opts Options) *OpenAICompat {
	return newOpenAICompat("openai", "https://api.openai.com/v1/audio/transcriptions", "whisper-1", opts)
}

func newOpenAICompat(name, defaultURL, model string, opts Options) *OpenAICompat {
	apiURL := defaultURL
	if opts.URL != "" && opts.URL != DefaultURL {
		apiURL = opts.URL
	}
	format := opts.Format
	if format == "" {
		format = encoder.FormatFLAC
	}
	return &OpenAICompat{
		name:   name,
		client: NewTracedClient(apiURL),
		apiURL: apiURL,
		apiKey: opts.APIKey,
		model:  model,
		format: format,
		lang:   opts.Language,
	}
}

func (g *OpenAICompat) Name() string { return g.name }

// Warm returns the TLS handshake time of the warm-up request.
func (g *OpenAICompat) Warm() time.Duration { return g.client.Warm() }

type verboseResponse struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Text         string  `json:"text"`
		NoSpeechProb float64 `json:"no_speech_prob"`
		AvgLogProb   float64 `json:"avg_logprob"`
	} `json:"segments"`
}

func (g *OpenAICompat) Transcribe(ctx context.Context, samples []int16, final bool) (string, error) {
	up, err := buildUpload(g.format, samples, map[string]string{
		"model":           g.model,
		"response_format": "verbose_json",
		"language":        g.lang,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", g.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, up.body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", up.contentType)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", transportError(ctx, g.name, err)
	}
	logRequest(g.name, g.format, final, up, resp)

	if resp.StatusCode != http.StatusOK {
		return "", statusError(g.name, resp.StatusCode, resp.Body)
	}

	log.Debugf("%s requests remaining: %s", g.name, firstNonEmpty(resp.Header, "x-ratelimit-remaining-requests"))

	var vr verboseResponse
	if err := json.Unmarshal(resp.Body, &vr); err != nil {
		return "", fmt.Errorf("%s response parse error: %w: %v", g.name, ErrMalformed, err)
	}
	if len(vr.Segments) > 0 {
		silent := true
		for _, seg := range vr.Segments {
			if seg.NoSpeechProb < noSpeechThreshold {
				silent = false
				break
			}
		}
		if silent {
			return "", nil
		}
	}
	return strings.TrimSpace(vr.Text), nil
}
