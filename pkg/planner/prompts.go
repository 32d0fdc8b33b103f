package planner

import (
	"fmt"
	"strings"

	"github.com/marcvidal/datapilot/pkg/tools"
)

const makePlanDescription = "Record the minimal ordered plan of tool calls that answers the user's request."

// SummarizerRole instructs the model to gloss a drafted plan for the
// approval prompt.
const SummarizerRole = `You summarize analysis plans for a human reviewer.
Given a JSON plan, reply with one or two short sentences in plain English
describing what will happen if the plan runs. Do not use JSON, code, or
bullet points. Do not editorialize about whether the plan is good.`

// plannerRole renders the planning system prompt over the exposed specs.
func plannerRole(specs []tools.Spec) string {
	var b strings.Builder
	b.WriteString(`You are a careful data-analysis planner.
Draft the smallest plan of tool calls that satisfies the user's request.

Rules:
- Use only the tools listed below, with arguments matching their schemas.
- Prefer one step; add a second only when the first step's output is a
  required input of the next.
- "why" is one short sentence. "assumptions" lists at most three things
  you had to guess; use an empty list when you guessed nothing.
- Never invent column names or tables that the tools do not describe.

Available tools:
`)
	for _, s := range specs {
		fmt.Fprintf(&b, "- %s: %s\n", s.Name, s.Description)
	}
	return b.String()
}
