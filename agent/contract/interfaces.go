package contract

import "context"

type AnswerFinder interface {
	FindAnswers(ctx context.Context, utt Utterance) ([]AnswerCandidate, error)
}

type IntentClassifier interface {
	Classify(ctx context.Context, utt Utterance) (Classification, error)
}

type Scheduler interface {
	GetAvailability(ctx context.Context) (string, error)
	BookSlot(ctx context.Context, slot string) (string, error)
}

// Replier delivers one text reply to the conversation an activity came from.
type Replier interface {
	Send(ctx context.Context, text string) error
}

type ReplierFunc func(ctx context.Context, text string) error

func (f ReplierFunc) Send(ctx context.Context, text string) error {
	return f(ctx, text)
}
