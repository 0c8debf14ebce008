package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"

	contractx "github.com/happyorsaad/dental-assistant-bot/agent/contract"
	"github.com/happyorsaad/dental-assistant-bot/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

type fakeAnswers struct {
	mu    sync.Mutex
	out   []contractx.AnswerCandidate
	err   error
	calls int
}

func (f *fakeAnswers) FindAnswers(ctx context.Context, utt contractx.Utterance) ([]contractx.AnswerCandidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]contractx.AnswerCandidate(nil), f.out...), nil
}

type fakeClassifier struct {
	mu    sync.Mutex
	out   contractx.Classification
	err   error
	calls int
	texts []string
}

func (f *fakeClassifier) Classify(ctx context.Context, utt contractx.Utterance) (contractx.Classification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.texts = append(f.texts, utt.Text)
	if f.err != nil {
		return contractx.Classification{}, f.err
	}
	return f.out, nil
}

type fakeScheduler struct {
	availability     string
	booking          string
	err              error
	availabilityHits int
	bookings         []string
}

func (f *fakeScheduler) GetAvailability(ctx context.Context) (string, error) {
	f.availabilityHits++
	if f.err != nil {
		return "", f.err
	}
	return f.availability, nil
}

func (f *fakeScheduler) BookSlot(ctx context.Context, slot string) (string, error) {
	f.bookings = append(f.bookings, slot)
	if f.err != nil {
		return "", f.err
	}
	return f.booking, nil
}

type fakeReplier struct {
	sent []string
	err  error
}

func (f *fakeReplier) Send(ctx context.Context, text string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, text)
	return nil
}

func newTestEngine(
	t *testing.T,
	answers contractx.AnswerFinder,
	classifier contractx.IntentClassifier,
	scheduler contractx.Scheduler,
) *Engine {
	t.Helper()

	e, err := New(answers, classifier, scheduler)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func utterance(text string) contractx.Utterance {
	return contractx.Utterance{
		ActivityID:     "act-1",
		ConversationID: "conv-1",
		ChannelID:      "emulator",
		Text:           text,
	}
}

func TestNewRequiresClients(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, &fakeClassifier{}, &fakeScheduler{}); !errors.Is(err, contractx.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for nil answers, got %v", err)
	}
	if _, err := New(&fakeAnswers{}, nil, &fakeScheduler{}); !errors.Is(err, contractx.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for nil classifier, got %v", err)
	}
	if _, err := New(&fakeAnswers{}, &fakeClassifier{}, nil); !errors.Is(err, contractx.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for nil scheduler, got %v", err)
	}
}

func TestDispatchAvailability(t *testing.T) {
	t.Parallel()

	answers := &fakeAnswers{out: []contractx.AnswerCandidate{{Text: "We are open 9-5", Score: 0.3}}}
	classifier := &fakeClassifier{out: contractx.Classification{
		TopIntent: contractx.IntentGetAvailability,
		Scores: map[contractx.Intent]float64{
			contractx.IntentGetAvailability:     0.82,
			contractx.IntentScheduleAppointment: 0.1,
		},
	}}
	scheduler := &fakeScheduler{availability: "Current time slots available: 9am, 10am"}
	replier := &fakeReplier{}

	e := newTestEngine(t, answers, classifier, scheduler)
	decision, err := e.Dispatch(context.Background(), utterance("when are you free?"), replier)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if decision.Action != contractx.ActionAvailability {
		t.Fatalf("unexpected action: %s", decision.Action)
	}
	if scheduler.availabilityHits != 1 {
		t.Fatalf("expected availability called once, got %d", scheduler.availabilityHits)
	}
	if len(scheduler.bookings) != 0 {
		t.Fatalf("expected no bookings, got %v", scheduler.bookings)
	}
	if len(replier.sent) != 1 || replier.sent[0] != "Current time slots available: 9am, 10am" {
		t.Fatalf("unexpected replies: %#v", replier.sent)
	}
	if answers.calls != 1 || classifier.calls != 1 {
		t.Fatalf("expected both lookups once, got answers=%d classifier=%d", answers.calls, classifier.calls)
	}
}

func TestDispatchBookingUsesFirstSlot(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{out: contractx.Classification{
		TopIntent: contractx.IntentScheduleAppointment,
		Scores:    map[contractx.Intent]float64{contractx.IntentScheduleAppointment: 0.91},
		Entities:  contractx.Entities{Slot: []string{"tomorrow at 3pm", "friday"}},
	}}
	scheduler := &fakeScheduler{booking: "An appointment is set for tomorrow at 3pm."}
	replier := &fakeReplier{}

	e := newTestEngine(t, &fakeAnswers{}, classifier, scheduler)
	decision, err := e.Dispatch(context.Background(), utterance("book me tomorrow at 3pm"), replier)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if decision.Action != contractx.ActionBooking || decision.Slot != "tomorrow at 3pm" {
		t.Fatalf("unexpected decision: %#v", decision)
	}
	if len(scheduler.bookings) != 1 || scheduler.bookings[0] != "tomorrow at 3pm" {
		t.Fatalf("expected one booking for first slot, got %v", scheduler.bookings)
	}
	if scheduler.availabilityHits != 0 {
		t.Fatalf("expected no availability calls, got %d", scheduler.availabilityHits)
	}
	if len(replier.sent) != 1 || replier.sent[0] != "An appointment is set for tomorrow at 3pm." {
		t.Fatalf("unexpected replies: %#v", replier.sent)
	}
}

func TestDispatchBookingWithoutSlotFallsBack(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{out: contractx.Classification{
		TopIntent: contractx.IntentScheduleAppointment,
		Scores:    map[contractx.Intent]float64{contractx.IntentScheduleAppointment: 0.95},
	}}
	scheduler := &fakeScheduler{}
	replier := &fakeReplier{}

	e := newTestEngine(t, &fakeAnswers{}, classifier, scheduler)
	decision, err := e.Dispatch(context.Background(), utterance("I want an appointment"), replier)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if decision.Action != contractx.ActionFallback {
		t.Fatalf("unexpected action: %s", decision.Action)
	}
	if len(scheduler.bookings) != 0 || scheduler.availabilityHits != 0 {
		t.Fatalf("expected no scheduler calls, got bookings=%v availability=%d", scheduler.bookings, scheduler.availabilityHits)
	}
	if len(replier.sent) != 1 || replier.sent[0] != FallbackText {
		t.Fatalf("unexpected replies: %#v", replier.sent)
	}
}

func TestDispatchBlankSlotIsNotBooked(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{out: contractx.Classification{
		TopIntent: contractx.IntentScheduleAppointment,
		Scores:    map[contractx.Intent]float64{contractx.IntentScheduleAppointment: 0.95},
		Entities:  contractx.Entities{Slot: []string{"   "}},
	}}
	scheduler := &fakeScheduler{}
	replier := &fakeReplier{}

	e := newTestEngine(t, &fakeAnswers{}, classifier, scheduler)
	decision, err := e.Dispatch(context.Background(), utterance("book it"), replier)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if decision.Action != contractx.ActionFallback || len(scheduler.bookings) != 0 {
		t.Fatalf("expected fallback without booking, got %#v bookings=%v", decision, scheduler.bookings)
	}
}

func TestDispatchAnswer(t *testing.T) {
	t.Parallel()

	answers := &fakeAnswers{out: []contractx.AnswerCandidate{{Text: "Yes we accept insurance", Score: 0.9}}}
	classifier := &fakeClassifier{out: contractx.Classification{
		TopIntent: contractx.IntentNone,
		Scores:    map[contractx.Intent]float64{contractx.IntentNone: 0.2},
	}}
	scheduler := &fakeScheduler{}
	replier := &fakeReplier{}

	e := newTestEngine(t, answers, classifier, scheduler)
	decision, err := e.Dispatch(context.Background(), utterance("do you take insurance?"), replier)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if decision.Action != contractx.ActionAnswer {
		t.Fatalf("unexpected action: %s", decision.Action)
	}
	if len(replier.sent) != 1 || replier.sent[0] != "Yes we accept insurance" {
		t.Fatalf("unexpected replies: %#v", replier.sent)
	}
	if len(scheduler.bookings) != 0 || scheduler.availabilityHits != 0 {
		t.Fatal("expected no scheduler calls on the answer path")
	}
}

func TestDispatchClientFailuresPropagateWithoutReply(t *testing.T) {
	t.Parallel()

	validClassification := contractx.Classification{
		TopIntent: contractx.IntentGetAvailability,
		Scores:    map[contractx.Intent]float64{contractx.IntentGetAvailability: 0.9},
	}

	tests := []struct {
		name       string
		answers    *fakeAnswers
		classifier *fakeClassifier
		scheduler  *fakeScheduler
		want       error
	}{
		{
			name:       "answer service",
			answers:    &fakeAnswers{err: errors.New("qna timeout")},
			classifier: &fakeClassifier{out: validClassification},
			scheduler:  &fakeScheduler{},
			want:       contractx.ErrAnswerService,
		},
		{
			name:       "classifier",
			answers:    &fakeAnswers{},
			classifier: &fakeClassifier{err: errors.New("luis 500")},
			scheduler:  &fakeScheduler{},
			want:       contractx.ErrClassificationService,
		},
		{
			name:       "scheduler",
			answers:    &fakeAnswers{},
			classifier: &fakeClassifier{out: validClassification},
			scheduler:  &fakeScheduler{err: errors.New("connection refused")},
			want:       contractx.ErrSchedulerService,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			replier := &fakeReplier{}
			e := newTestEngine(t, tc.answers, tc.classifier, tc.scheduler)
			_, err := e.Dispatch(context.Background(), utterance("anything free?"), replier)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if len(replier.sent) != 0 {
				t.Fatalf("expected no reply on failure, got %#v", replier.sent)
			}
		})
	}
}

func TestDispatchBlankAnswerIsAnswerServiceFailure(t *testing.T) {
	t.Parallel()

	answers := &fakeAnswers{out: []contractx.AnswerCandidate{
		{Text: "", Score: 0.8},
		{Text: "We are open 9-5", Score: 0.6},
	}}
	classifier := &fakeClassifier{out: contractx.Classification{
		TopIntent: contractx.IntentNone,
		Scores:    map[contractx.Intent]float64{contractx.IntentNone: 0.9},
	}}
	replier := &fakeReplier{}
	e := newTestEngine(t, answers, classifier, &fakeScheduler{})

	_, err := e.Dispatch(context.Background(), utterance("when are you open?"), replier)
	if !errors.Is(err, contractx.ErrAnswerService) || !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("expected answer service schema violation, got %v", err)
	}
	if errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("service response must not be reported as invalid input: %v", err)
	}
	if failureStage(err) != "answers" {
		t.Fatalf("failureStage() = %s, want answers", failureStage(err))
	}
	if len(replier.sent) != 0 {
		t.Fatalf("expected no reply, got %#v", replier.sent)
	}
}

func latencySamples(t *testing.T, outcome string) uint64 {
	t.Helper()

	var m dto.Metric
	observer := metrics.DispatchLatency.WithLabelValues(outcome)
	if err := observer.(prometheus.Metric).Write(&m); err != nil {
		t.Fatalf("read latency histogram: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func TestDispatchObservesLatencyOnFailure(t *testing.T) {
	t.Parallel()

	before := latencySamples(t, "failed")

	e := newTestEngine(t, &fakeAnswers{}, &fakeClassifier{err: errors.New("luis 500")}, &fakeScheduler{})
	if _, err := e.Dispatch(context.Background(), utterance("hi"), &fakeReplier{}); err == nil {
		t.Fatal("expected classifier failure")
	}

	if after := latencySamples(t, "failed"); after <= before {
		t.Fatalf("failed latency samples = %d, want more than %d", after, before)
	}
}

func TestDispatchInvalidInput(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{}
	e := newTestEngine(t, &fakeAnswers{}, classifier, &fakeScheduler{})

	_, err := e.Dispatch(context.Background(), contractx.Utterance{ConversationID: "c1", Text: "  "}, &fakeReplier{})
	if !errors.Is(err, ErrInvalidUtterance) {
		t.Fatalf("expected ErrInvalidUtterance, got %v", err)
	}
	_, err = e.Dispatch(context.Background(), contractx.Utterance{Text: "hi"}, &fakeReplier{})
	if !errors.Is(err, ErrInvalidConversation) {
		t.Fatalf("expected ErrInvalidConversation, got %v", err)
	}
	if _, err := e.Dispatch(context.Background(), utterance("hi"), nil); !errors.Is(err, contractx.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for nil replier, got %v", err)
	}
	if classifier.calls != 0 {
		t.Fatalf("expected no lookups for invalid input, got %d", classifier.calls)
	}
}

func TestDispatchDeliveryFailure(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, &fakeAnswers{}, &fakeClassifier{out: contractx.Classification{
		TopIntent: contractx.IntentNone,
		Scores:    map[contractx.Intent]float64{contractx.IntentNone: 0.9},
	}}, &fakeScheduler{})

	decision, err := e.Dispatch(context.Background(), utterance("hello"), &fakeReplier{err: errors.New("channel closed")})
	if !errors.Is(err, contractx.ErrDelivery) {
		t.Fatalf("expected ErrDelivery, got %v", err)
	}
	if decision.Action != contractx.ActionFallback {
		t.Fatalf("expected decision to be returned alongside delivery error, got %s", decision.Action)
	}
}

func TestDecideIsDeterministic(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{out: contractx.Classification{
		TopIntent: contractx.IntentScheduleAppointment,
		Scores:    map[contractx.Intent]float64{contractx.IntentScheduleAppointment: 0.7},
		Entities:  contractx.Entities{Slot: []string{"9am"}},
	}}
	scheduler := &fakeScheduler{booking: "An appointment is set for 9am."}
	e := newTestEngine(t, &fakeAnswers{}, classifier, scheduler)

	first, err := e.Decide(context.Background(), utterance("9am please"))
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	second, err := e.Decide(context.Background(), utterance("9am please"))
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if first.Action != second.Action || first.Reply != second.Reply || first.Slot != second.Slot {
		t.Fatalf("decisions differ: %#v vs %#v", first, second)
	}
	if classifier.texts[0] != "9am please" {
		t.Fatalf("unexpected classifier input: %q", classifier.texts[0])
	}
}
