package analyzer

import "fmt"

// Truncation limits for README text sent to the model. Local models get a
// tighter budget since their context windows are smaller.
const (
	maxReadmeChars      = 8000
	maxReadmeCharsLocal = 4000
)

const systemPrompt = `You are an expert evaluator of AI agent capabilities. Analyze the given agent capability (skill/plugin) and score it on four dimensions (0-10):

1. **reliability_score** (reliability): code quality, error handling, stability
   - 9-10: production grade with thorough error handling and tests
   - 5-6: works but rough around the edges
   - 0-2: experimental, likely to break often

2. **safety_score** (safety): permission scope, data leakage risk, malicious behavior
   - 9-10: least-privilege design, no data leakage risk
   - 5-6: reasonable permissions but poorly documented
   - 0-2: overly broad permissions or known security concerns

3. **capability_score** (capability): feature completeness, edge case handling
   - 9-10: feature complete, covers edge cases
   - 5-6: core features work, edge cases lacking
   - 0-2: primitive, proof of concept only

4. **usability_score** (usability): documentation quality, interface design, onboarding friction
   - 9-10: great docs, rich examples, productive within five minutes
   - 5-6: basic docs, need to read the code to use it
   - 0-2: almost no documentation

Also provide:
- summary: a 2-3 sentence summary
- one_liner: a one-sentence description (80 characters max)
- install_guide: installation steps (Markdown)
- usage_guide: usage examples (Markdown)
- safety_notes: security analysis notes
- category_suggestion: suggested category (development / data / web / productivity / ai / media / trading / communication)

Respond in JSON format.`

// userPrompt assembles the per-capability message, truncating the README
// to fit the provider's budget.
func userPrompt(name, readme, description string, maxReadme int) string {
	readme = truncate(readme, maxReadme)
	return fmt.Sprintf("Capability name: %s\nDescription: %s\n\nREADME:\n%s", name, description, readme)
}
