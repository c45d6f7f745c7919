package mlinference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/acme/amd-screening/internal/config"
	"github.com/acme/amd-screening/internal/detection"
	"github.com/acme/amd-screening/internal/domain"
	apperrors "github.com/acme/amd-screening/pkg/errors"
	"github.com/acme/amd-screening/pkg/logger"
)

const (
	defaultRequestTimeout = 10 * time.Second
	defaultProbeTimeout   = 5 * time.Second
	defaultThreshold      = 0.7
)

// Strategy submits audio to a remote classifier and thresholds the returned
// label/score pair.
type Strategy struct {
	cfg       config.MLInferenceConfig
	threshold float64
	timeout   time.Duration
	client    *http.Client
	lg        *logger.Logger
}

// New constructs the ML inference strategy. Defaults are resolved once
// here, never re-read per call.
func New(cfg config.MLInferenceConfig, globalThreshold float64, lg *logger.Logger) *Strategy {
	threshold := cfg.ConfidenceThreshold
	if threshold <= 0 {
		threshold = globalThreshold
	}
	if threshold <= 0 {
		threshold = defaultThreshold
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	return &Strategy{
		cfg:       cfg,
		threshold: threshold,
		timeout:   timeout,
		client:    &http.Client{},
		lg:        lg.Named("mlinference"),
	}
}

// Kind identifies the back end.
func (s *Strategy) Kind() domain.StrategyKind {
	return domain.StrategyMLInference
}

// Initialize validates the classifier base URL and probes its health
// endpoint. Probe failure is a warning only.
func (s *Strategy) Initialize(ctx context.Context) error {
	if s.cfg.BaseURL == "" {
		return fmt.Errorf("%w: ml_inference: base_url is required", apperrors.ErrConfiguration)
	}

	timeout := s.cfg.ProbeTimeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, strings.TrimRight(s.cfg.BaseURL, "/")+"/healthz", nil)
	if err != nil {
		s.lg.Warn("classifier probe request build failed", zap.Error(err))
		return nil
	}
	resp, err := s.client.Do(req)
	if err != nil {
		s.lg.Warn("classifier unreachable", zap.Error(err))
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		s.lg.Warn("classifier probe returned non-success", zap.Int("status", resp.StatusCode))
	}
	return nil
}

type classifyResponse struct {
	Label      string   `json:"label"`
	Confidence *float64 `json:"confidence"`
	Score      *float64 `json:"score"`
}

// Detect uploads the audio buffer and interprets the classifier verdict.
// Every transport or parse failure takes the recoverable path.
func (s *Strategy) Detect(ctx context.Context, audio []byte) (domain.DetectionResult, error) {
	start := time.Now()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("audio", "audio.raw")
	if err != nil {
		return domain.FailureResult(time.Since(start), fmt.Errorf("build multipart: %w", err)), nil
	}
	if _, err := part.Write(audio); err != nil {
		return domain.FailureResult(time.Since(start), fmt.Errorf("write audio part: %w", err)), nil
	}
	_ = writer.WriteField("encoding", "pcm_s16le")
	_ = writer.WriteField("sample_rate", "24000")
	if err := writer.Close(); err != nil {
		return domain.FailureResult(time.Since(start), fmt.Errorf("finalize multipart: %w", err)), nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	url := strings.TrimRight(s.cfg.BaseURL, "/") + "/v1/classify"
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, &body)
	if err != nil {
		return domain.FailureResult(time.Since(start), fmt.Errorf("build request: %w", err)), nil
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return domain.FailureResult(time.Since(start), fmt.Errorf("classify request: %w", err)), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.FailureResult(time.Since(start), fmt.Errorf("classify returned status %d", resp.StatusCode)), nil
	}

	var parsed classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.FailureResult(time.Since(start), fmt.Errorf("decode response: %w", err)), nil
	}

	score, ok := pickScore(parsed)
	if !ok {
		return domain.FailureResult(time.Since(start), fmt.Errorf("response carries neither confidence nor score")), nil
	}
	score = domain.ClampConfidence(score)

	return domain.DetectionResult{
		Outcome:    s.outcomeFor(parsed.Label, score),
		Confidence: score,
		LatencyMs:  time.Since(start).Milliseconds(),
		Metadata: map[string]any{
			"label":     parsed.Label,
			"threshold": s.threshold,
		},
	}, nil
}

// DetectFromStream buffers one decision window and classifies it.
func (s *Strategy) DetectFromStream(ctx context.Context, src detection.AudioSource) (domain.DetectionResult, error) {
	return detection.StreamDetect(ctx, src, s.Detect)
}

// Cleanup releases pooled connections. Idempotent.
func (s *Strategy) Cleanup(ctx context.Context) error {
	s.client.CloseIdleConnections()
	return nil
}

// outcomeFor applies the decision rule: a recognizably machine or human
// label commits only above the threshold; everything else stays undecided.
func (s *Strategy) outcomeFor(label string, score float64) domain.DetectionOutcome {
	l := strings.ToLower(label)
	switch {
	case strings.Contains(l, "machine"), strings.Contains(l, "voicemail"), strings.Contains(l, "answering"):
		if score >= s.threshold {
			return domain.OutcomeMachine
		}
		return domain.OutcomeUndecided
	case strings.Contains(l, "human"), strings.Contains(l, "person"), strings.Contains(l, "live"):
		if score >= s.threshold {
			return domain.OutcomeHuman
		}
		return domain.OutcomeUndecided
	default:
		return domain.OutcomeUndecided
	}
}

func pickScore(r classifyResponse) (float64, bool) {
	if r.Confidence != nil {
		return *r.Confidence, true
	}
	if r.Score != nil {
		return *r.Score, true
	}
	return 0, false
}
