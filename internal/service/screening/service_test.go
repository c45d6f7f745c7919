package screening

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/acme/amd-screening/internal/domain"
	"github.com/acme/amd-screening/internal/queue"
	"github.com/acme/amd-screening/internal/repository"
	"github.com/acme/amd-screening/internal/service/common"
	"github.com/acme/amd-screening/internal/telephony"
	apperrors "github.com/acme/amd-screening/pkg/errors"
)

type fakeRecords struct {
	records map[uuid.UUID]*domain.CallRecord
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{records: make(map[uuid.UUID]*domain.CallRecord)}
}

func (f *fakeRecords) CreateCallRecord(ctx context.Context, record *domain.CallRecord) error {
	if _, ok := f.records[record.ID]; ok {
		return repository.ErrConflict
	}
	clone := *record
	f.records[record.ID] = &clone
	return nil
}

func (f *fakeRecords) UpdateCallRecord(ctx context.Context, record *domain.CallRecord) error {
	if _, ok := f.records[record.ID]; !ok {
		return repository.ErrNotFound
	}
	clone := *record
	f.records[record.ID] = &clone
	return nil
}

func (f *fakeRecords) GetCallRecord(ctx context.Context, id uuid.UUID) (*domain.CallRecord, error) {
	record, ok := f.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *record
	return &clone, nil
}

func (f *fakeRecords) ListCallRecords(ctx context.Context, afterID *uuid.UUID, limit int) ([]*domain.CallRecord, error) {
	out := make([]*domain.CallRecord, 0, len(f.records))
	for _, r := range f.records {
		clone := *r
		out = append(out, &clone)
	}
	return out, nil
}

type fakeAttempts struct {
	attempts []domain.DetectionAttempt
}

func (f *fakeAttempts) AppendAttempt(ctx context.Context, attempt domain.DetectionAttempt) error {
	f.attempts = append(f.attempts, attempt)
	return nil
}

func (f *fakeAttempts) ListAttemptsByCall(ctx context.Context, callID uuid.UUID, limit int) ([]domain.DetectionAttempt, error) {
	var out []domain.DetectionAttempt
	for _, a := range f.attempts {
		if a.CallID == callID {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeProvider struct {
	result telephony.Result
	err    error
	placed []telephony.PlaceCallRequest
}

func (f *fakeProvider) PlaceCall(ctx context.Context, req telephony.PlaceCallRequest) (telephony.Result, error) {
	f.placed = append(f.placed, req)
	return f.result, f.err
}

type fakeJobs struct {
	dispatched []queue.DetectionJobMessage
	err        error
}

func (f *fakeJobs) DispatchJob(ctx context.Context, msg queue.DetectionJobMessage) error {
	if f.err != nil {
		return f.err
	}
	f.dispatched = append(f.dispatched, msg)
	return nil
}

type fakeResults struct {
	published []queue.DetectionResultMessage
}

func (f *fakeResults) PublishResult(ctx context.Context, msg queue.DetectionResultMessage) error {
	f.published = append(f.published, msg)
	return nil
}

type fixture struct {
	records  *fakeRecords
	attempts *fakeAttempts
	provider *fakeProvider
	jobs     *fakeJobs
	results  *fakeResults
	service  *Service
}

func newFixture() *fixture {
	f := &fixture{
		records:  newFakeRecords(),
		attempts: &fakeAttempts{},
		provider: &fakeProvider{result: telephony.Result{ProviderCallID: "prov-1", Status: domain.CallStatusDialing}},
		jobs:     &fakeJobs{},
		results:  &fakeResults{},
	}
	f.service = NewService(f.records, f.attempts, f.provider, f.jobs, f.results)
	return f
}

func TestTriggerScreeningValidation(t *testing.T) {
	f := newFixture()

	_, err := f.service.TriggerScreening(context.Background(), TriggerScreeningInput{
		Strategy: domain.StrategySignaling,
	})
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("missing phone number: error = %v, want ErrValidation", err)
	}

	_, err = f.service.TriggerScreening(context.Background(), TriggerScreeningInput{
		PhoneNumber: "+15550001111",
		Strategy:    domain.StrategyKind("carrier-lookup"),
	})
	if !errors.Is(err, apperrors.ErrUnknownStrategy) {
		t.Fatalf("unknown strategy: error = %v, want ErrUnknownStrategy", err)
	}

	_, err = f.service.TriggerScreening(context.Background(), TriggerScreeningInput{
		PhoneNumber: "+15550001111",
		Strategy:    domain.StrategyMLInference,
	})
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("missing audio for audio strategy: error = %v, want ErrValidation", err)
	}

	if len(f.provider.placed) != 0 {
		t.Fatal("validation failures must not place calls")
	}
}

func TestTriggerScreeningEventDriven(t *testing.T) {
	f := newFixture()

	record, err := f.service.TriggerScreening(context.Background(), TriggerScreeningInput{
		PhoneNumber: "+15550001111",
		Strategy:    domain.StrategySignaling,
	})
	if err != nil {
		t.Fatalf("TriggerScreening returned error: %v", err)
	}
	if record.Status != domain.CallStatusDialing {
		t.Fatalf("status = %s, want dialing", record.Status)
	}
	if len(f.jobs.dispatched) != 0 {
		t.Fatal("event-driven strategies must not enqueue detection jobs")
	}
	if len(f.provider.placed) != 1 {
		t.Fatalf("placed %d calls, want 1", len(f.provider.placed))
	}

	stored, err := f.records.GetCallRecord(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("stored record missing: %v", err)
	}
	if stored.Status != domain.CallStatusDialing {
		t.Fatalf("stored status = %s, want dialing", stored.Status)
	}
}

func TestTriggerScreeningAudioDriven(t *testing.T) {
	f := newFixture()
	campaignID := uuid.New()
	audio := []byte{0x01, 0x02, 0x03, 0x04}

	record, err := f.service.TriggerScreening(context.Background(), TriggerScreeningInput{
		CampaignID:  &campaignID,
		PhoneNumber: "+15550002222",
		Strategy:    domain.StrategyMLInference,
		Audio:       audio,
		SampleRate:  24000,
	})
	if err != nil {
		t.Fatalf("TriggerScreening returned error: %v", err)
	}
	if record.Status != domain.CallStatusDetecting {
		t.Fatalf("status = %s, want detecting", record.Status)
	}
	if len(f.jobs.dispatched) != 1 {
		t.Fatalf("dispatched %d jobs, want 1", len(f.jobs.dispatched))
	}

	job := f.jobs.dispatched[0]
	if job.CallID != record.ID || job.CampaignID != campaignID {
		t.Fatal("job must carry the call and campaign identifiers")
	}
	decoded, err := common.DecodeBase64(job.AudioB64)
	if err != nil {
		t.Fatalf("decode job audio: %v", err)
	}
	if string(decoded) != string(audio) {
		t.Fatal("job audio does not round-trip")
	}
}

func TestTriggerScreeningProviderFailure(t *testing.T) {
	f := newFixture()
	f.provider.result = telephony.Result{Status: domain.CallStatusFailed, Error: "carrier rejected"}

	record, err := f.service.TriggerScreening(context.Background(), TriggerScreeningInput{
		PhoneNumber: "+15550003333",
		Strategy:    domain.StrategySignaling,
	})
	if err != nil {
		t.Fatalf("provider-reported failure is not a service error, got: %v", err)
	}
	if record.Status != domain.CallStatusFailed {
		t.Fatalf("status = %s, want failed", record.Status)
	}
	if record.LastError == nil || *record.LastError != "carrier rejected" {
		t.Fatal("record must keep the provider failure reason")
	}
	if len(f.jobs.dispatched) != 0 {
		t.Fatal("failed origination must not enqueue jobs")
	}
}

func TestApplyResultPersistsAndPublishes(t *testing.T) {
	f := newFixture()

	record, err := f.service.TriggerScreening(context.Background(), TriggerScreeningInput{
		PhoneNumber: "+15550004444",
		Strategy:    domain.StrategySignaling,
	})
	if err != nil {
		t.Fatalf("TriggerScreening returned error: %v", err)
	}

	result := domain.DetectionResult{
		Outcome:    domain.OutcomeMachine,
		Confidence: 0.9,
		LatencyMs:  125,
		Metadata:   map[string]any{"event": "machine-end-beep"},
	}
	if err := f.service.ApplyResult(context.Background(), record.ID, domain.StrategySignaling, result); err != nil {
		t.Fatalf("ApplyResult returned error: %v", err)
	}

	stored, err := f.records.GetCallRecord(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("stored record missing: %v", err)
	}
	if stored.Status != domain.CallStatusDetected {
		t.Fatalf("status = %s, want detected", stored.Status)
	}
	if stored.Outcome == nil || *stored.Outcome != domain.OutcomeMachine {
		t.Fatal("record must carry the outcome")
	}
	if stored.Confidence == nil || *stored.Confidence != 0.9 {
		t.Fatal("record must carry the confidence")
	}
	if stored.DetectedAt == nil {
		t.Fatal("record must carry the detection time")
	}

	attempts, err := f.service.ListAttempts(context.Background(), record.ID, 10)
	if err != nil {
		t.Fatalf("ListAttempts returned error: %v", err)
	}
	if len(attempts) != 1 {
		t.Fatalf("appended %d attempts, want 1", len(attempts))
	}

	if len(f.results.published) != 1 {
		t.Fatalf("published %d results, want 1", len(f.results.published))
	}
	msg := f.results.published[0]
	if msg.CallID != record.ID || msg.Outcome != domain.OutcomeMachine {
		t.Fatal("published message must mirror the applied result")
	}
}

func TestApplyResultRecoverableFailure(t *testing.T) {
	f := newFixture()

	record, err := f.service.TriggerScreening(context.Background(), TriggerScreeningInput{
		PhoneNumber: "+15550005555",
		Strategy:    domain.StrategyLLMAudio,
		Audio:       []byte{0x01},
	})
	if err != nil {
		t.Fatalf("TriggerScreening returned error: %v", err)
	}

	failure := domain.DetectionResult{
		Outcome:    domain.OutcomeUnknown,
		Confidence: 0,
		LatencyMs:  15042,
		Metadata:   map[string]any{"error": "generate returned status 429"},
	}
	if err := f.service.ApplyResult(context.Background(), record.ID, domain.StrategyLLMAudio, failure); err != nil {
		t.Fatalf("recoverable failure must still persist, got: %v", err)
	}

	stored, err := f.records.GetCallRecord(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("stored record missing: %v", err)
	}
	if stored.LastError == nil || *stored.LastError != "generate returned status 429" {
		t.Fatal("record must keep the failure cause")
	}

	attempts, _ := f.service.ListAttempts(context.Background(), record.ID, 10)
	if len(attempts) != 1 || attempts[0].Error == "" {
		t.Fatal("audit trail must include the failed attempt with its error")
	}
	if len(f.results.published) != 1 || f.results.published[0].Error == "" {
		t.Fatal("failure results are still published downstream")
	}
}

func TestApplyResultUnknownCall(t *testing.T) {
	f := newFixture()

	err := f.service.ApplyResult(context.Background(), uuid.New(), domain.StrategySignaling, domain.DetectionResult{
		Outcome: domain.OutcomeHuman,
	})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}
