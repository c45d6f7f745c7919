package telephony

import (
	"context"

	"github.com/google/uuid"

	"github.com/acme/amd-screening/internal/domain"
)

// PlaceCallRequest asks the transport to originate one outbound call. The
// strategy kind tells the provider whether to arm its in-network AMD.
type PlaceCallRequest struct {
	CallID      uuid.UUID
	CampaignID  uuid.UUID
	PhoneNumber string
	Strategy    domain.StrategyKind
}

// Result captures the immediate outcome of call origination. AMD events for
// event-driven strategies arrive later through the provider's webhook feed.
type Result struct {
	ProviderCallID string
	Status         domain.CallStatus
	Error          string
}

// Provider abstracts the telephony transport collaborator. The detection
// core never implements this; real providers live outside the repo.
type Provider interface {
	PlaceCall(ctx context.Context, req PlaceCallRequest) (Result, error)
}
