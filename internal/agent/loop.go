// Package agent implements the core reason/act/observe loop.
package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sahtech/sahtech-ai-agent/internal/catalog"
	"github.com/sahtech/sahtech-ai-agent/internal/llm"
	"github.com/sahtech/sahtech-ai-agent/internal/profile"
	"github.com/sahtech/sahtech-ai-agent/internal/prompts"
	"github.com/sahtech/sahtech-ai-agent/internal/tools"
)

// State is the terminal state of a session.
type State int

const (
	// StateRunning is the in-flight state; Run never returns it.
	StateRunning State = iota

	// StateAnswered means the model produced a terminal answer.
	StateAnswered

	// StateExhausted means the iteration ceiling was reached without a
	// terminal answer. This is a distinct outcome, never a success.
	StateExhausted
)

// String returns the state name for logging and API responses.
func (s State) String() string {
	switch s {
	case StateAnswered:
		return "answered"
	case StateExhausted:
		return "exhausted"
	default:
		return "running"
	}
}

// Result is the terminal outcome of one session.
type Result struct {
	State      State
	Answer     string // final answer text when State is StateAnswered
	Iterations int
}

// DefaultMaxIterations bounds a session when no ceiling is configured.
const DefaultMaxIterations = 10

// Loop drives agent sessions: one model round-trip per iteration, with
// tool dispatch in between, until a terminal answer or the iteration
// ceiling.
//
// Each session is strictly sequential: one outstanding model call, one
// tool dispatch at a time. Separate sessions may run concurrently on the
// same Loop; the only shared state is the read-only backing stores.
type Loop struct {
	logger        *slog.Logger
	client        llm.Client
	model         string
	temperature   float64
	maxIterations int
	registry      *tools.Registry
	products      catalog.Store
	profiles      profile.Store
}

// NewLoop creates a session loop.
func NewLoop(logger *slog.Logger, client llm.Client, model string, temperature float64, maxIterations int, registry *tools.Registry, products catalog.Store, profiles profile.Store) *Loop {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &Loop{
		logger:        logger,
		client:        client,
		model:         model,
		temperature:   temperature,
		maxIterations: maxIterations,
		registry:      registry,
		products:      products,
		profiles:      profiles,
	}
}

// Run executes one session for a user/product pairing.
//
// The profile and product are fetched once up front and treated as
// read-only for the rest of the session; lookup failures fail the session
// before the first model call. Each iteration submits the full conversation,
// appends the assistant reply, and acts on the parsed outcome:
//
//   - terminal answer: the session ends with StateAnswered
//   - action: the tool result is appended as an Observation user message
//   - parse failure: a fixed "no valid action found" observation is appended
//   - neither: the loop continues with the reply left in the conversation
//     as context and no observation appended
//
// Cancellation is honored between iterations only. If the ceiling is
// reached without a terminal answer, Run returns StateExhausted.
func (l *Loop) Run(ctx context.Context, userID, barcode string) (*Result, error) {
	prof, err := l.profiles.Lookup(userID)
	if err != nil {
		return nil, fmt.Errorf("lookup profile %s: %w", userID, err)
	}

	prod, err := l.products.Lookup(barcode)
	if err != nil {
		return nil, fmt.Errorf("lookup product %s: %w", barcode, err)
	}

	sess := &tools.Session{Profile: prof, Product: prod}

	conv := NewConversation(prompts.System)
	conv.Append("user", prompts.OpeningQuery(prof, prod))

	l.logger.Info("session started",
		"user", userID,
		"barcode", barcode,
		"model", l.model,
		"max_iterations", l.maxIterations,
	)

	for i := 1; i <= l.maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("session cancelled: %w", err)
		}

		resp, err := l.client.Chat(ctx, l.model, conv.Snapshot(), l.temperature)
		if err != nil {
			return nil, fmt.Errorf("model call: %w", err)
		}

		reply := resp.Message.Content
		conv.Append("assistant", reply)

		parsed := Parse(reply)
		l.logger.Debug("iteration",
			"n", i,
			"outcome", parsed.Outcome.String(),
			"tool", parsed.Tool,
		)

		switch parsed.Outcome {
		case ParseTerminal:
			l.logger.Info("session answered", "user", userID, "iterations", i)
			return &Result{State: StateAnswered, Answer: reply, Iterations: i}, nil

		case ParseAction:
			obs := l.registry.Dispatch(ctx, parsed.Tool, parsed.Argument, sess)
			conv.Append("user", "Observation: "+obs)

		case ParseFailure:
			conv.Append("user", "Observation: "+tools.ObservationNoAction)

		case ParseNone:
			// The reply stays in the conversation as context; the next
			// iteration resubmits the grown conversation as-is.
		}
	}

	l.logger.Warn("session exhausted",
		"user", userID,
		"barcode", barcode,
		"iterations", l.maxIterations,
	)
	return &Result{State: StateExhausted, Iterations: l.maxIterations}, nil
}
