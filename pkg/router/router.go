// Package router decides, per user message, whether the assistant should
// answer directly from tool knowledge or draft an executable plan.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"

	"github.com/marcvidal/datapilot/pkg/llm"
	"github.com/marcvidal/datapilot/pkg/tools"
)

// Mode is the closed set of routing outcomes.
type Mode string

const (
	// ModeToolQA answers a capability question directly, without a plan.
	ModeToolQA Mode = "tool_qa"
	// ModePlan hands the message to the planner.
	ModePlan Mode = "plan"
)

const routeTool = "route"

// ErrBadDecision is returned when the model's routing response violates
// the strict two-key contract.
var ErrBadDecision = errors.New("routing response violates the decision contract")

// Decision is the routing verdict. Exactly these two keys, nothing else.
type Decision struct {
	Mode Mode   `json:"mode"`
	Why  string `json:"why"`
}

var decisionSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"mode": map[string]interface{}{"type": "string", "enum": []interface{}{string(ModeToolQA), string(ModePlan)}},
		"why":  map[string]interface{}{"type": "string", "maxLength": 120},
	},
	"required":             []string{"mode", "why"},
	"additionalProperties": false,
}

// Router classifies user messages against the exposed tool surface.
type Router struct {
	provider llm.Provider
	model    string
	schema   *gojsonschema.Schema
}

// NewRouter creates a router bound to a provider and model.
func NewRouter(provider llm.Provider, model string) (*Router, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(decisionSchema))
	if err != nil {
		return nil, fmt.Errorf("compiling decision schema: %w", err)
	}
	return &Router{provider: provider, model: model, schema: schema}, nil
}

// Route asks the model for a mode decision. Any response that is not the
// strict two-key structure is an ErrBadDecision; the caller surfaces it
// and leaves plan state untouched.
func (r *Router) Route(ctx context.Context, userText string, specs []tools.Spec) (*Decision, error) {
	resp, err := r.provider.Complete(ctx, llm.Request{
		Model:        r.model,
		SystemPrompt: routerRole(specs),
		Messages:     []llm.Message{{Role: "user", Content: userText}},
		Tools: []llm.Tool{{
			Name:        routeTool,
			Description: "Record the routing decision for the user's message.",
			Parameters:  decisionSchema,
		}},
		ForceTool: routeTool,
	})
	if err != nil {
		return nil, fmt.Errorf("routing call failed: %w", err)
	}

	args, err := r.decisionArgs(resp)
	if err != nil {
		return nil, err
	}

	result, err := r.schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return nil, err
	}
	if !result.Valid() {
		msgs := []string{}
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrBadDecision, strings.Join(msgs, "; "))
	}

	body, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	var decision Decision
	if err := json.Unmarshal(body, &decision); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadDecision, err)
	}

	log.Info().Str("mode", string(decision.Mode)).Str("why", decision.Why).Msg("Message routed")
	return &decision, nil
}

// decisionArgs extracts the structured decision from the response,
// tolerating providers that answer with raw JSON text instead of a call.
func (r *Router) decisionArgs(resp *llm.Response) (map[string]interface{}, error) {
	for i := range resp.ToolCalls {
		if resp.ToolCalls[i].Name == routeTool {
			return resp.ToolCalls[i].Arguments, nil
		}
	}

	trimmed := strings.TrimSpace(resp.Content)
	if strings.HasPrefix(trimmed, "{") {
		var args map[string]interface{}
		if err := json.Unmarshal([]byte(trimmed), &args); err == nil {
			return args, nil
		}
	}
	return nil, fmt.Errorf("%w: no structured decision in response", ErrBadDecision)
}

// AnswerFromSpecs answers a capability question directly from the tool
// descriptions. Used when routing picked tool_qa.
func (r *Router) AnswerFromSpecs(ctx context.Context, userText string, specs []tools.Spec) (string, error) {
	resp, err := r.provider.Complete(ctx, llm.Request{
		Model:        r.model,
		SystemPrompt: toolKnowledgeRole(specs),
		Messages:     []llm.Message{{Role: "user", Content: userText}},
	})
	if err != nil {
		return "", fmt.Errorf("tool answer call failed: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}
