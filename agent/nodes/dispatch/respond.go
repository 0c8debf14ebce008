package dispatchnode

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/happyorsaad/dental-assistant-bot/agent/contract"
)

func CheckAvailability(ctx context.Context, in *GraphState, scheduler contractx.Scheduler) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	reply, err := scheduler.GetAvailability(ctx)
	if err != nil {
		return GraphOutput{}, wrapService(contractx.ErrSchedulerService, err)
	}

	decision := in.Decision
	decision.Reply = reply
	return GraphOutput{Decision: decision}, nil
}

func BookSlot(ctx context.Context, in *GraphState, scheduler contractx.Scheduler) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if strings.TrimSpace(in.Decision.Slot) == "" {
		return GraphOutput{}, fmt.Errorf("%w: booking requires a slot", contractx.ErrValidation)
	}

	reply, err := scheduler.BookSlot(ctx, in.Decision.Slot)
	if err != nil {
		return GraphOutput{}, wrapService(contractx.ErrSchedulerService, err)
	}

	decision := in.Decision
	decision.Reply = reply
	return GraphOutput{Decision: decision}, nil
}

// RespondText finalizes the answer and fallback paths, whose reply is
// already rendered by Decide.
func RespondText(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Decision.Reply == "" {
		return GraphOutput{}, fmt.Errorf("%w: %s produced an empty reply", contractx.ErrValidation, in.Decision.Action)
	}
	return GraphOutput{Decision: in.Decision}, nil
}
