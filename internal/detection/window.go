package detection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/acme/amd-screening/internal/domain"
)

const (
	// DecisionWindowBytes is the amount of buffered audio that triggers a
	// detection attempt: 2 seconds of 24kHz 16-bit mono PCM.
	DecisionWindowBytes = 2 * 24000 * 2

	// MaxBufferBytes bounds stream buffering. Crossing it forces detection
	// on the truncated buffer instead of unbounded growth.
	MaxBufferBytes = 5 << 20
)

// CollectWindow drains src until a decision window is buffered, the stream
// ends, or the buffer ceiling is crossed. A stream that ends early yields
// whatever was buffered.
func CollectWindow(ctx context.Context, src AudioSource) ([]byte, error) {
	return collect(ctx, src, DecisionWindowBytes, MaxBufferBytes)
}

func collect(ctx context.Context, src AudioSource, window, limit int) ([]byte, error) {
	buf := make([]byte, 0, window)
	for len(buf) < window {
		chunk, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return buf, nil
			}
			return buf, err
		}
		buf = append(buf, chunk...)
		if len(buf) >= limit {
			return buf[:limit], nil
		}
	}
	return buf, nil
}

// StreamDetect buffers one decision window from src and runs detect exactly
// once on it. Latency covers buffering plus the detection call; a stream
// read failure takes the recoverable-failure path.
func StreamDetect(ctx context.Context, src AudioSource, detect func(context.Context, []byte) (domain.DetectionResult, error)) (domain.DetectionResult, error) {
	start := time.Now()

	window, err := CollectWindow(ctx, src)
	if err != nil {
		return domain.FailureResult(time.Since(start), fmt.Errorf("buffer stream: %w", err)), nil
	}

	result, err := detect(ctx, window)
	if err != nil {
		return result, err
	}

	result.LatencyMs = time.Since(start).Milliseconds()
	if result.Metadata == nil {
		result.Metadata = map[string]any{}
	}
	result.Metadata["window_bytes"] = len(window)
	return result, nil
}
