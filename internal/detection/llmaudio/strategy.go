package llmaudio

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/acme/amd-screening/internal/config"
	"github.com/acme/amd-screening/internal/detection"
	"github.com/acme/amd-screening/internal/domain"
	apperrors "github.com/acme/amd-screening/pkg/errors"
	"github.com/acme/amd-screening/pkg/logger"
)

const (
	defaultEndpoint       = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel          = "gemini-1.5-flash"
	defaultRequestTimeout = 15 * time.Second
	defaultConfidence     = 0.7
)

// instruction is the fixed prompt sent alongside the audio. The model is
// asked for a strict JSON block so the reply can be parsed mechanically.
const instruction = `You are screening the first seconds of an outbound phone call.
Classify whether the far end is a live human or an answering machine / voicemail greeting.
Respond with a single JSON object and nothing else:
{"outcome": "human" | "machine", "confidence": <0.0-1.0>, "reasoning": "<one sentence>"}`

// Strategy submits audio to a generative multimodal endpoint and extracts
// the first well-formed structured block from its free-text reply.
type Strategy struct {
	cfg      config.LLMAudioConfig
	endpoint string
	model    string
	timeout  time.Duration
	client   *http.Client
	lg       *logger.Logger
}

// New constructs the LLM audio strategy with defaults resolved once.
func New(cfg config.LLMAudioConfig, lg *logger.Logger) *Strategy {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	return &Strategy{
		cfg:      cfg,
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
		timeout:  timeout,
		client:   &http.Client{},
		lg:       lg.Named("llmaudio"),
	}
}

// Kind identifies the back end.
func (s *Strategy) Kind() domain.StrategyKind {
	return domain.StrategyLLMAudio
}

// Initialize validates the API key. No liveness probe: the endpoint bills
// per request, and its availability is best checked by the first detection.
func (s *Strategy) Initialize(ctx context.Context) error {
	if s.cfg.APIKey == "" {
		return fmt.Errorf("%w: llm_audio: api_key is required", apperrors.ErrConfiguration)
	}
	return nil
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type verdict struct {
	Outcome    string   `json:"outcome"`
	Confidence *float64 `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
}

// Detect sends the audio inline with the instruction and parses the reply.
func (s *Strategy) Detect(ctx context.Context, audio []byte) (domain.DetectionResult, error) {
	start := time.Now()

	payload := generateRequest{
		Contents: []content{{
			Parts: []part{
				{Text: instruction},
				{InlineData: &inlineData{
					MimeType: "audio/pcm;rate=24000",
					Data:     base64.StdEncoding.EncodeToString(audio),
				}},
			},
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.FailureResult(time.Since(start), fmt.Errorf("marshal request: %w", err)), nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/models/%s:generateContent", s.endpoint, s.model)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return domain.FailureResult(time.Since(start), fmt.Errorf("build request: %w", err)), nil
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return domain.FailureResult(time.Since(start), fmt.Errorf("generate request: %w", err)), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.FailureResult(time.Since(start), fmt.Errorf("generate returned status %d", resp.StatusCode)), nil
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.FailureResult(time.Since(start), fmt.Errorf("decode response: %w", err)), nil
	}

	text := candidateText(parsed)
	if text == "" {
		return domain.FailureResult(time.Since(start), fmt.Errorf("response carries no text content")), nil
	}

	v, ok := extractVerdict(text)
	if !ok {
		return domain.FailureResult(time.Since(start), fmt.Errorf("no well-formed verdict block in response")), nil
	}

	confidence := defaultConfidence
	if v.Confidence != nil {
		confidence = domain.ClampConfidence(*v.Confidence)
	}

	return domain.DetectionResult{
		Outcome:    outcomeFor(v.Outcome),
		Confidence: confidence,
		LatencyMs:  time.Since(start).Milliseconds(),
		Metadata: map[string]any{
			"label":     v.Outcome,
			"reasoning": v.Reasoning,
			"model":     s.model,
		},
	}, nil
}

// DetectFromStream buffers one decision window and analyzes it.
func (s *Strategy) DetectFromStream(ctx context.Context, src detection.AudioSource) (domain.DetectionResult, error) {
	return detection.StreamDetect(ctx, src, s.Detect)
}

// Cleanup releases pooled connections. Idempotent.
func (s *Strategy) Cleanup(ctx context.Context) error {
	s.client.CloseIdleConnections()
	return nil
}

func candidateText(r generateResponse) string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// extractVerdict scans the reply for the first balanced JSON object that
// unmarshals into a verdict with a non-empty outcome. Models wrap the block
// in prose or markdown fences often enough that a plain Unmarshal fails.
func extractVerdict(text string) (verdict, bool) {
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		depth := 0
		for j := i; j < len(text); j++ {
			switch text[j] {
			case '{':
				depth++
			case '}':
				depth--
			}
			if depth == 0 {
				var v verdict
				if err := json.Unmarshal([]byte(text[i:j+1]), &v); err == nil && v.Outcome != "" {
					return v, true
				}
				break
			}
		}
	}
	return verdict{}, false
}

// outcomeFor fuzzy-matches the model's label text.
func outcomeFor(label string) domain.DetectionOutcome {
	l := strings.ToLower(label)
	switch {
	case strings.Contains(l, "human"):
		return domain.OutcomeHuman
	case strings.Contains(l, "machine"), strings.Contains(l, "voicemail"):
		return domain.OutcomeMachine
	default:
		return domain.OutcomeUndecided
	}
}
