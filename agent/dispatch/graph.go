package dispatch

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	nodex "github.com/happyorsaad/dental-assistant-bot/agent/nodes/dispatch"
)

func (e *Engine) compileDispatchGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("lookup",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.Lookup(ctx, in, e.answers, e.classifier)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node lookup: %w", err)
	}

	if err := graph.AddLambdaNode("decide",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.DecideAction(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node decide: %w", err)
	}

	if err := graph.AddLambdaNode(nodex.NodeCheckAvailability,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.CheckAvailability(ctx, in, e.scheduler)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodex.NodeCheckAvailability, err)
	}

	if err := graph.AddLambdaNode(nodex.NodeBookSlot,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.BookSlot(ctx, in, e.scheduler)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodex.NodeBookSlot, err)
	}

	for _, key := range []string{nodex.NodeRespondAnswer, nodex.NodeRespondFallback} {
		if err := graph.AddLambdaNode(key,
			compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
				return nodex.RespondText(in)
			}),
		); err != nil {
			return nil, fmt.Errorf("add node %s: %w", key, err)
		}
	}

	if err := graph.AddBranch("decide", compose.NewGraphBranch(nodex.Route, nodex.RouteTargets())); err != nil {
		return nil, fmt.Errorf("add decide branch: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "lookup"},
		{"lookup", "decide"},
		{nodex.NodeCheckAvailability, compose.END},
		{nodex.NodeBookSlot, compose.END},
		{nodex.NodeRespondAnswer, compose.END},
		{nodex.NodeRespondFallback, compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("dispatch.handle_utterance"))
	if err != nil {
		return nil, fmt.Errorf("compile dispatch graph: %w", err)
	}
	return runner, nil
}
