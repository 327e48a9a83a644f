package llm

import (
	"fmt"
	"strings"
)

const systemPrompt = "You are an expense statement classifier. You MUST respond with ONLY a valid JSON object. Do not include any explanatory text, markdown formatting, or commentary before or after the JSON. Start your response directly with { and end with }."

// buildPrompt creates the classification prompt for an expense statement.
func buildPrompt(req ClassifyRequest) string {
	var categoryList strings.Builder
	for _, hint := range req.Categories {
		if hint.Description != "" {
			fmt.Fprintf(&categoryList, "- %s: %s\n", hint.Name, hint.Description)
		} else {
			fmt.Fprintf(&categoryList, "- %s\n", hint.Name)
		}
	}

	corrections := ""
	if len(req.Corrections) > 0 {
		var b strings.Builder
		b.WriteString("Previous human corrections (use these to calibrate):\n")
		for _, c := range req.Corrections {
			fmt.Fprintf(&b, "- %q was categorized as %s\n", c.Description, c.Category)
		}
		b.WriteString("\n")
		corrections = b.String()
	}

	return fmt.Sprintf(`Classify this expense statement into exactly one of the listed categories.

Expense statement:
%s

%sValid categories:
%s
Instructions:
1. Pick the single best-fitting category from the list above. Do not invent categories.
2. Report your confidence as a number between 0.0 and 1.0. Be honest: if the statement is ambiguous, report low confidence rather than guessing high.
3. If the statement contains a monetary amount, extract it; if it names a currency, extract the ISO code.

Respond with JSON in this exact shape:
{"category": "<category name>", "confidence": <0.0-1.0>, "amount": "<decimal, omit if absent>", "currency": "<ISO code, omit if absent>", "rationale": "<one short sentence>"}`,
		req.Description,
		corrections,
		categoryList.String())
}
