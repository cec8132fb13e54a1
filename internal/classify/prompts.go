package classify

import (
	"fmt"
	"strings"
)

// PromptKey identifies detection calls in the llmcall history.
const PromptKey = "detect"

// SystemPrompt constrains the model to emit a bare JSON object.
const SystemPrompt = "You are an AI-generated text detection analyzer. You only output JSON. " +
	"Follow the requested format exactly and do not add any other content."

const userPromptFormat = `Analyze whether the following text was generated by AI and answer in JSON:

%s

JSON format (follow strictly):
{
  "label": "ai or human or uncertain",
  "score": a number between 0 and 1,
  "confidence": "high or medium or low",
  "rationale": "short reason for the judgement",
  "detailed_analysis": "detailed analysis",
  "key_indicators": ["indicator 1", "indicator 2"],
  "methodology": "description of the analysis method"
}

Important: return only the JSON object, with no other text or explanation!`

// UserPrompt embeds text into the classification request.
func UserPrompt(text string) string {
	return fmt.Sprintf(userPromptFormat, strings.TrimSpace(text))
}
