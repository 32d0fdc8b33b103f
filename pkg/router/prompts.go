package router

import (
	"fmt"
	"strings"

	"github.com/marcvidal/datapilot/pkg/tools"
)

func routerRole(specs []tools.Spec) string {
	var b strings.Builder
	b.WriteString(`You route user messages for a data-analysis assistant.

Pick exactly one mode:
- "tool_qa": the user is asking what the assistant can do, what a tool
  does, or what data is available. No data work should happen.
- "plan": the user wants actual analysis or transformation of the data.

"why" is one short sentence explaining the choice.

The assistant's tools:
`)
	writeSpecs(&b, specs)
	return b.String()
}

func toolKnowledgeRole(specs []tools.Spec) string {
	var b strings.Builder
	b.WriteString(`You answer questions about a data-analysis assistant's capabilities.
Answer only from the tool descriptions below. If the question is outside
what the tools can do, say so plainly. Keep answers to a few sentences.

Tools:
`)
	writeSpecs(&b, specs)
	return b.String()
}

func writeSpecs(b *strings.Builder, specs []tools.Spec) {
	for _, s := range specs {
		fmt.Fprintf(b, "- %s: %s\n", s.Name, s.Description)
	}
}
