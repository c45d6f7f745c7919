package detection

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/acme/amd-screening/internal/domain"
)

type chunkSource struct {
	chunks [][]byte
	idx    int
	err    error
}

func (s *chunkSource) Next(ctx context.Context) ([]byte, error) {
	if s.idx >= len(s.chunks) {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	chunk := s.chunks[s.idx]
	s.idx++
	return chunk, nil
}

func repeatChunks(chunkSize, total int) [][]byte {
	var chunks [][]byte
	for total > 0 {
		n := chunkSize
		if n > total {
			n = total
		}
		chunks = append(chunks, make([]byte, n))
		total -= n
	}
	return chunks
}

func TestCollectWindowFullWindow(t *testing.T) {
	src := &chunkSource{chunks: repeatChunks(4096, DecisionWindowBytes)}

	buf, err := CollectWindow(context.Background(), src)
	if err != nil {
		t.Fatalf("CollectWindow returned error: %v", err)
	}
	if len(buf) != DecisionWindowBytes {
		t.Fatalf("buffered %d bytes, want %d", len(buf), DecisionWindowBytes)
	}
}

func TestCollectWindowEarlyEOF(t *testing.T) {
	src := &chunkSource{chunks: repeatChunks(1000, 3500)}

	buf, err := CollectWindow(context.Background(), src)
	if err != nil {
		t.Fatalf("CollectWindow returned error: %v", err)
	}
	if len(buf) != 3500 {
		t.Fatalf("buffered %d bytes, want 3500", len(buf))
	}
}

func TestCollectWindowPropagatesStreamError(t *testing.T) {
	streamErr := errors.New("transport reset")
	src := &chunkSource{chunks: repeatChunks(100, 200), err: streamErr}

	_, err := collect(context.Background(), src, 1000, 5000)
	if !errors.Is(err, streamErr) {
		t.Fatalf("collect error = %v, want %v", err, streamErr)
	}
}

func TestCollectTruncatesAtCeiling(t *testing.T) {
	// A single oversized chunk must be cut back to the ceiling rather
	// than buffered whole.
	src := &chunkSource{chunks: [][]byte{make([]byte, 64)}}

	buf, err := collect(context.Background(), src, 100, 40)
	if err != nil {
		t.Fatalf("collect returned error: %v", err)
	}
	if len(buf) != 40 {
		t.Fatalf("buffered %d bytes, want ceiling 40", len(buf))
	}
}

func TestStreamDetectRunsDetectOnce(t *testing.T) {
	src := &chunkSource{chunks: repeatChunks(8192, DecisionWindowBytes)}

	calls := 0
	detect := func(ctx context.Context, audio []byte) (domain.DetectionResult, error) {
		calls++
		if len(audio) != DecisionWindowBytes {
			t.Fatalf("detect received %d bytes, want %d", len(audio), DecisionWindowBytes)
		}
		return domain.DetectionResult{Outcome: domain.OutcomeMachine, Confidence: 0.9}, nil
	}

	result, err := StreamDetect(context.Background(), src, detect)
	if err != nil {
		t.Fatalf("StreamDetect returned error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("detect called %d times, want exactly 1", calls)
	}
	if result.Outcome != domain.OutcomeMachine {
		t.Fatalf("outcome = %s, want machine", result.Outcome)
	}
	if got := result.Metadata["window_bytes"]; got != DecisionWindowBytes {
		t.Fatalf("window_bytes = %v, want %d", got, DecisionWindowBytes)
	}
}

func TestStreamDetectSourceFailure(t *testing.T) {
	src := &chunkSource{err: errors.New("connection dropped")}

	detect := func(ctx context.Context, audio []byte) (domain.DetectionResult, error) {
		t.Fatal("detect must not run when buffering fails")
		return domain.DetectionResult{}, nil
	}

	result, err := StreamDetect(context.Background(), src, detect)
	if err != nil {
		t.Fatalf("stream failure must come back as data, got error: %v", err)
	}
	if result.Outcome != domain.OutcomeUnknown {
		t.Fatalf("outcome = %s, want unknown", result.Outcome)
	}
	if result.Confidence != 0 {
		t.Fatalf("confidence = %v, want 0", result.Confidence)
	}
	if msg, _ := result.Metadata["error"].(string); msg == "" {
		t.Fatal("metadata error must describe the failure")
	}
}
