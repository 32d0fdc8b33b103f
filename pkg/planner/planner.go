package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"

	"github.com/marcvidal/datapilot/pkg/llm"
	"github.com/marcvidal/datapilot/pkg/tools"
)

// makePlanTool is the virtual tool the model is forced to call when
// planning. It never executes; its arguments are the plan.
const makePlanTool = "make_plan"

// historyWindow bounds how many prior turns are replayed to the planner.
const historyWindow = 6

// ErrPlannerProse is returned when the model answers with text instead of
// the structured plan call.
var ErrPlannerProse = errors.New("planner returned prose instead of a structured plan")

// Planner produces candidate plans through the language-model boundary.
type Planner struct {
	provider    llm.Provider
	model       string
	temperature float64
}

// NewPlanner creates a planner bound to a provider and model.
func NewPlanner(provider llm.Provider, model string) *Planner {
	return &Planner{provider: provider, model: model}
}

// SetTemperature overrides the sampling temperature.
func (p *Planner) SetTemperature(t float64) {
	p.temperature = t
}

// ProposePlan asks the model for a minimal plan over the exposed tool
// specs. The returned plan is data only: it has not been validated
// against the execution registry beyond the spec enum, and it carries no
// approval.
func (p *Planner) ProposePlan(ctx context.Context, userText string, history []llm.Message, specs []tools.Spec) (*Plan, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("no tools exposed for planning")
	}

	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}

	messages := append(trimHistory(history), llm.Message{Role: "user", Content: userText})

	resp, err := p.provider.Complete(ctx, llm.Request{
		Model:        p.model,
		SystemPrompt: plannerRole(specs),
		Messages:     messages,
		Tools:        []llm.Tool{planFunctionTool(names)},
		ForceTool:    makePlanTool,
		Temperature:  p.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("planning call failed: %w", err)
	}

	var call *llm.ToolCall
	for i := range resp.ToolCalls {
		if resp.ToolCalls[i].Name == makePlanTool {
			call = &resp.ToolCalls[i]
			break
		}
	}
	if call == nil {
		log.Warn().Str("content", truncateForLog(resp.Content)).Msg("Planner produced no structured call")
		return nil, ErrPlannerProse
	}

	if err := validatePlanArgs(call.Arguments, names); err != nil {
		return nil, fmt.Errorf("planner returned a malformed plan: %w", err)
	}

	plan, err := decodePlan(call.Arguments)
	if err != nil {
		return nil, fmt.Errorf("planner returned an undecodable plan: %w", err)
	}

	log.Info().Str("plan_id", plan.ID).Int("steps", len(plan.Steps)).Str("why", plan.Why).Msg("Plan drafted")
	return plan, nil
}

// Summarize asks the model for a short English gloss of a plan.
func (p *Planner) Summarize(ctx context.Context, plan *Plan) (string, error) {
	body, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return "", err
	}

	resp, err := p.provider.Complete(ctx, llm.Request{
		Model:        p.model,
		SystemPrompt: SummarizerRole,
		Messages:     []llm.Message{{Role: "user", Content: "PLAN:\n" + string(body)}},
	})
	if err != nil {
		return "", fmt.Errorf("summarizer call failed: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}

// planFunctionTool builds the make_plan capability restricted to the
// exposed tool names.
func planFunctionTool(names []string) llm.Tool {
	enum := make([]interface{}, len(names))
	for i, n := range names {
		enum[i] = n
	}
	return llm.Tool{
		Name:        makePlanTool,
		Description: makePlanDescription,
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"steps": map[string]interface{}{
					"type":     "array",
					"minItems": 1,
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"tool": map[string]interface{}{"type": "string", "enum": enum},
							"args": map[string]interface{}{"type": "object"},
						},
						"required":             []string{"tool", "args"},
						"additionalProperties": false,
					},
				},
				"why": map[string]interface{}{
					"type":      "string",
					"maxLength": 120,
				},
				"assumptions": map[string]interface{}{
					"type":     "array",
					"items":    map[string]interface{}{"type": "string", "maxLength": 120},
					"maxItems": 3,
				},
			},
			"required":             []string{"steps", "why", "assumptions"},
			"additionalProperties": false,
		},
	}
}

// validatePlanArgs checks the structured arguments against the plan
// schema before anything trusts them.
func validatePlanArgs(args map[string]interface{}, names []string) error {
	schema := planFunctionTool(names).Parameters
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	if err != nil {
		return err
	}
	result, err := compiled.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return err
	}
	if !result.Valid() {
		msgs := []string{}
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return nil
}

func decodePlan(args map[string]interface{}) (*Plan, error) {
	body, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	var plan Plan
	if err := json.Unmarshal(body, &plan); err != nil {
		return nil, err
	}
	plan.ID = uuid.New().String()
	plan.CreatedAt = time.Now()
	if plan.Assumptions == nil {
		plan.Assumptions = []string{}
	}
	for i := range plan.Steps {
		if plan.Steps[i].Args == nil {
			plan.Steps[i].Args = map[string]interface{}{}
		}
	}
	return &plan, nil
}

func trimHistory(history []llm.Message) []llm.Message {
	kept := make([]llm.Message, 0, len(history))
	for _, m := range history {
		if m.Role == "user" || m.Role == "assistant" {
			kept = append(kept, m)
		}
	}
	if len(kept) > historyWindow {
		kept = kept[len(kept)-historyWindow:]
	}
	return kept
}

func truncateForLog(s string) string {
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
