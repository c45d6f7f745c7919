package mock

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/acme/amd-screening/internal/config"
	"github.com/acme/amd-screening/internal/domain"
	"github.com/acme/amd-screening/internal/telephony"
)

// Provider simulates outbound call origination for local development.
type Provider struct {
	successRate float64
	timeout     time.Duration
	rng         *rand.Rand
}

// NewProvider constructs a mock provider with deterministic randomness.
func NewProvider(cfg config.TelephonyConfig) *Provider {
	seed := time.Now().UnixNano()
	return &Provider{
		successRate: 0.9,
		timeout:     cfg.RequestTimeout,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// PlaceCall simulates call origination.
func (p *Provider) PlaceCall(ctx context.Context, req telephony.PlaceCallRequest) (telephony.Result, error) {
	delay := time.Duration(50+p.rng.Intn(200)) * time.Millisecond

	select {
	case <-ctx.Done():
		return telephony.Result{Status: domain.CallStatusFailed, Error: ctx.Err().Error()}, ctx.Err()
	case <-time.After(delay):
	}

	if p.rng.Float64() <= p.successRate {
		return telephony.Result{
			ProviderCallID: fmt.Sprintf("mock-%s", req.CallID),
			Status:         domain.CallStatusDialing,
		}, nil
	}

	return telephony.Result{Status: domain.CallStatusFailed, Error: "simulated origination failure"}, nil
}
