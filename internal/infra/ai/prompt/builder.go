package prompt

import (
	"fmt"
	"strings"

	"github.com/compliai/compliai/internal/domain/compliance"
)

// System provides strict directions and the response schema for the scoring
// model. The selected regulations are named verbatim, joined in selection
// order. This template is the single place where the expected response shape
// is specified; the parser's contract depends on it.
func System(regs []compliance.Regulation) string {
	names := make([]string, 0, len(regs))
	for _, r := range regs {
		names = append(names, r.Display())
	}
	return fmt.Sprintf(`You are a senior compliance analyst. Evaluate the document provided by the user against the following regulations: %s.

Requirements:
- Output must be a single JSON object, nothing else.
- score is an integer from 0 to 100 representing overall compliance.
- Use lowercase severity values: high, medium, low.
- issues may be empty when the document is fully compliant.
- Keep descriptions and recommendations concise and actionable.

Schema (example with empty values):
{
  "score": 0,
  "issues": [
    {
      "severity": "<high|medium|low>",
      "description": "<string>",
      "recommendation": "<string>"
    }
  ],
  "summary": "<string>"
}`, strings.Join(names, ", "))
}

// User passes the document text unmodified as the subject of analysis.
func User(documentText string) string {
	return documentText
}
