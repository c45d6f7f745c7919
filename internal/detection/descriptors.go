package detection

import "github.com/acme/amd-screening/internal/domain"

// catalog holds the static per-strategy selection guidance. The advisory
// bands are shown to operators; detection never consults them.
var catalog = []domain.StrategyDescriptor{
	{
		Kind:         domain.StrategySignaling,
		DisplayName:  "Provider Signaling",
		Description:  "Defers to the telephony provider's in-network AMD and translates its webhook events.",
		LatencyBand:  "3-6s",
		AccuracyBand: "85-90%",
		CostModel:    "included in call charges",
	},
	{
		Kind:         domain.StrategySIPEvent,
		DisplayName:  "SIP Platform Events",
		Description:  "Translates AMD events emitted by a SIP media platform during call setup.",
		LatencyBand:  "2-5s",
		AccuracyBand: "80-88%",
		CostModel:    "platform subscription",
	},
	{
		Kind:         domain.StrategyMLInference,
		DisplayName:  "ML Classifier",
		Description:  "Uploads the decision window to a remote audio classifier and thresholds its score.",
		LatencyBand:  "300-900ms",
		AccuracyBand: "90-95%",
		CostModel:    "per inference request",
	},
	{
		Kind:         domain.StrategyLLMAudio,
		DisplayName:  "LLM Audio Analysis",
		Description:  "Submits audio to a generative multimodal model and parses its structured verdict.",
		LatencyBand:  "1-4s",
		AccuracyBand: "88-94%",
		CostModel:    "per token",
	},
}

// Descriptors returns the static strategy catalog.
func Descriptors() []domain.StrategyDescriptor {
	out := make([]domain.StrategyDescriptor, len(catalog))
	copy(out, catalog)
	return out
}

// DescriptorFor looks up the catalog entry for a strategy kind.
func DescriptorFor(kind domain.StrategyKind) (domain.StrategyDescriptor, bool) {
	for _, d := range catalog {
		if d.Kind == kind {
			return d, true
		}
	}
	return domain.StrategyDescriptor{}, false
}
