// Package agent lets a language model drive the document pipeline. The
// user's instruction is rewritten into a task description, then a planner
// calls the toolbox until it gives a final answer.
package agent

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/valpere/doctran/internal/logging"
)

const DefaultMaxSteps = 10

var ErrStepLimit = errors.New("agent stopped: step limit reached")

type Agent struct {
	planner  Planner
	tools    *Toolbox
	maxSteps int
	logger   *zap.Logger

	// OnToolCall, if set, is called after every tool call with its result.
	OnToolCall func(call ToolCall, result string)
}

func New(planner Planner, tools *Toolbox, maxSteps int, logger *zap.Logger) *Agent {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return &Agent{
		planner:  planner,
		tools:    tools,
		maxSteps: maxSteps,
		logger:   logging.OrNop(logger),
	}
}

// Run carries out instruction and returns the planner's final answer.
func (a *Agent) Run(ctx context.Context, instruction string) (string, error) {
	prompt, err := renderTask(instruction)
	if err != nil {
		return "", fmt.Errorf("failed to render task prompt: %w", err)
	}

	task, err := a.planner.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to plan task: %w", err)
	}
	a.logger.Debug("task description", zap.String("task", task))

	history := []Message{
		{Role: RoleUser, Content: "Request: " + instruction + "\n\n" + task},
	}

	for step := 1; step <= a.maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		next, err := a.planner.Next(ctx, systemPrompt, history, a.tools.Tools())
		if err != nil {
			return "", fmt.Errorf("planner failed at step %d: %w", step, err)
		}

		if len(next.ToolCalls) == 0 {
			return next.Content, nil
		}

		history = append(history, Message{
			Role:      RoleAssistant,
			Content:   next.Content,
			ToolCalls: next.ToolCalls,
		})

		for _, call := range next.ToolCalls {
			result := a.tools.Call(ctx, call.Name, call.Args)
			a.logger.Info("tool called",
				zap.Int("step", step),
				zap.String("tool", call.Name),
				zap.Int("result_chars", len(result)),
			)
			if a.OnToolCall != nil {
				a.OnToolCall(call, result)
			}

			history = append(history, Message{
				Role:       RoleTool,
				Content:    result,
				ToolCallID: call.ID,
				Name:       call.Name,
			})
		}
	}

	return "", fmt.Errorf("%w (%d)", ErrStepLimit, a.maxSteps)
}
