// Package tools defines the tools available to the agent.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/sahtech/sahtech-ai-agent/internal/catalog"
	"github.com/sahtech/sahtech-ai-agent/internal/profile"
	"github.com/sahtech/sahtech-ai-agent/internal/report"
	"github.com/sahtech/sahtech-ai-agent/internal/rules"
)

// Fixed observation texts the dispatcher returns so the loop can continue
// and let the model self-correct.
const (
	ObservationToolNotFound = "Tool not found"
	ObservationNoAction     = "No valid action found"
)

// Session carries the profile and product fetched once at the start of a
// run. Tools that operate on these structures read them from here rather
// than trusting the model to echo them back in an action argument.
type Session struct {
	Profile *profile.Profile
	Product *catalog.Product

	// Verdict is set by evaluate_compatibility and consumed by
	// persist_verdict.
	Verdict *rules.Verdict
}

// Sink persists verdicts at the end of a session.
type Sink interface {
	Save(ctx context.Context, sess *Session, v *rules.Verdict) error
}

// Tool represents a callable tool.
type Tool struct {
	Name        string
	Description string
	Handler     func(ctx context.Context, arg string, sess *Session) (string, error)
}

// Registry holds available tools.
type Registry struct {
	tools    map[string]*Tool
	products catalog.Store
	profiles profile.Store
	sink     Sink
	logger   *slog.Logger
}

// NewRegistry creates a tool registry backed by the given stores.
// The sink may be nil, in which case persist_verdict reports failure.
func NewRegistry(products catalog.Store, profiles profile.Store, sink Sink, logger *slog.Logger) *Registry {
	r := &Registry{
		tools:    make(map[string]*Tool),
		products: products,
		profiles: profiles,
		sink:     sink,
		logger:   logger,
	}
	r.registerBuiltins()
	return r
}

func (r *Registry) registerBuiltins() {
	r.Register(&Tool{
		Name:        "fetch_product",
		Description: "Retrieve product details (ingredients, additives, scores) by barcode.",
		Handler:     r.handleFetchProduct,
	})

	r.Register(&Tool{
		Name:        "fetch_profile",
		Description: "Retrieve a user's health profile by user ID.",
		Handler:     r.handleFetchProfile,
	})

	r.Register(&Tool{
		Name:        "evaluate_compatibility",
		Description: "Analyze compatibility between the session's profile and product.",
		Handler:     r.handleEvaluateCompatibility,
	})

	r.Register(&Tool{
		Name:        "format_report",
		Description: "Summarize the session product's nutrition, additives, and ingredients.",
		Handler:     r.handleFormatReport,
	})

	r.Register(&Tool{
		Name:        "persist_verdict",
		Description: "Save the compatibility verdict.",
		Handler:     r.handlePersistVerdict,
	})
}

// Register adds a tool to the registry.
func (r *Registry) Register(t *Tool) {
	r.tools[t.Name] = t
}

// Get retrieves a tool by name, or nil if unknown.
func (r *Registry) Get(name string) *Tool {
	return r.tools[name]
}

// Names returns the registered tool names, for logging and diagnostics.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// Dispatch executes the named tool and always returns observation text.
// Unknown tools yield [ObservationToolNotFound]; handler errors are
// converted to a failure description. Dispatch never aborts the loop.
func (r *Registry) Dispatch(ctx context.Context, name, arg string, sess *Session) string {
	tool := r.tools[name]
	if tool == nil {
		r.logger.Warn("unknown tool requested", "tool", name)
		return ObservationToolNotFound
	}

	out, err := tool.Handler(ctx, arg, sess)
	if err != nil {
		r.logger.Warn("tool execution failed", "tool", name, "error", err)
		return fmt.Sprintf("Tool execution failed - %v", err)
	}

	r.logger.Debug("tool executed", "tool", name, "arg", arg)
	return out
}

// Tool handlers

func (r *Registry) handleFetchProduct(ctx context.Context, arg string, sess *Session) (string, error) {
	if arg == "" {
		return "", fmt.Errorf("barcode is required")
	}

	p, err := r.products.Lookup(arg)
	if err != nil {
		return "", fmt.Errorf("product with barcode %s: %w", arg, err)
	}

	return marshalForModel(p)
}

func (r *Registry) handleFetchProfile(ctx context.Context, arg string, sess *Session) (string, error) {
	if arg == "" {
		return "", fmt.Errorf("user_id is required")
	}

	p, err := r.profiles.Lookup(arg)
	if err != nil {
		return "", fmt.Errorf("user profile with ID %s: %w", arg, err)
	}

	return marshalForModel(p)
}

// handleEvaluateCompatibility ignores the parsed argument and evaluates the
// session's already-fetched profile and product. The model is not trusted
// to echo these structures verbatim.
func (r *Registry) handleEvaluateCompatibility(ctx context.Context, arg string, sess *Session) (string, error) {
	if sess == nil || sess.Profile == nil || sess.Product == nil {
		return "", fmt.Errorf("session profile and product are not loaded")
	}

	v := rules.Evaluate(sess.Profile, sess.Product)
	sess.Verdict = v

	return marshalForModel(v)
}

// handleFormatReport summarizes the session product. Like
// evaluate_compatibility, the argument text is ignored.
func (r *Registry) handleFormatReport(ctx context.Context, arg string, sess *Session) (string, error) {
	if sess == nil || sess.Product == nil {
		return "", fmt.Errorf("session product is not loaded")
	}

	return report.Format(sess.Product), nil
}

// handlePersistVerdict saves the session verdict, evaluating first if the
// model skipped evaluate_compatibility. Failure surfaces as "saved: false"
// in the observation rather than ending the session.
func (r *Registry) handlePersistVerdict(ctx context.Context, arg string, sess *Session) (string, error) {
	if sess == nil || sess.Profile == nil || sess.Product == nil {
		return "", fmt.Errorf("session profile and product are not loaded")
	}

	v := sess.Verdict
	if v == nil {
		v = rules.Evaluate(sess.Profile, sess.Product)
		sess.Verdict = v
	}

	if r.sink == nil {
		return "Verdict saved: false (no verdict store configured)", nil
	}

	if err := r.sink.Save(ctx, sess, v); err != nil {
		r.logger.Warn("verdict save failed", "error", err)
		return "Verdict saved: false", nil
	}

	return "Verdict saved: true", nil
}

// marshalForModel renders a structure as compact JSON for use as an
// observation.
func marshalForModel(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return string(data), nil
}
