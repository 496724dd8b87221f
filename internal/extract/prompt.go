package extract

import (
	"fmt"
	"strings"
)

// systemText is the extraction system prompt. It is stable across calls, so
// the anthropic client marks it cacheable.
const systemText = `You are a sales intelligence analyst. You extract structured facts from B2B sales call transcripts. Transcripts may be in Portuguese or English; always return field values in the transcript's language. Return ONLY a valid JSON object, no prose and no code fences. Use null for anything the call does not establish. Never invent facts.`

// factsSchema documents the output contract shown to the model.
const factsSchema = `{
  "company": "<prospect company name or null>",
  "stakeholders": [{"name": "<person>", "title": "<role or null>", "profile_url": "<url or null>"}],
  "pains": ["<pain point mentioned>"],
  "opportunities": ["<opportunity identified>"],
  "research_triggers": ["<topic to research before the next touch>"],
  "solutions": ["<solution or product discussed>"],
  "brand_mentions": ["<competitor or vendor brand named>"],
  "spin": {"situation": null, "problem": null, "implication": null, "need": null},
  "bant": {"budget": null, "authority": null, "need": null, "timeline": null}
}`

const userPromptTemplate = `Extract the sales facts from this call transcript.

Output JSON schema:
%s

Transcript:
%s

Return valid JSON matching the schema above. Every key must be present.`

// buildUserPrompt renders the user message for a transcript.
func buildUserPrompt(transcript string) string {
	return fmt.Sprintf(userPromptTemplate, factsSchema, strings.TrimSpace(transcript))
}
