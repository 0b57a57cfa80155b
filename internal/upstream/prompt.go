// Rewriting prompt and request builders for the upstream providers.
//
// USAGE:
//   - BuildGeminiRequest() / BuildOpenAIRequest()
//   - ExtractGeminiText() / ExtractOpenAIText()
//
// The system instruction asks for exactly three rewrites of the user's
// prompt and forbids narrowing the original scope.
package upstream

import (
	"fmt"
	"strings"
)

// SystemPromptThreeVersions instructs the model to return the three-key
// document the normalizer expects. The preservation rules matter more than
// the formatting ones: a rewrite that narrows the user's question is worse
// than no rewrite at all.
const SystemPromptThreeVersions = `You are PromptGenius, an expert at optimizing prompts for AI assistants.

Your task: produce THREE differently-styled improvements of the user's prompt while STRICTLY preserving their original intent and scope.

RULES:
1. PRESERVE the original question's scope and openness - never narrow or constrain it
2. NEVER add specific examples, names, numbers, or limitations the user didn't request
3. NEVER transform broad/open questions into specific/narrow ones
4. Fix spelling and grammar errors
5. Add context only if it clarifies intent (not constraints)
6. If the prompt is already well-formed, return it with minimal changes

STYLES:
- "structured": reorganized into clear steps or sections the assistant should follow
- "detailed": adds expert framing and clarifying context around the same request
- "concise": the tightest possible phrasing of the same request

Return ONLY a JSON object with exactly these three string keys:
{"structured": "...", "detailed": "...", "concise": "..."}

No explanations, no preamble, no markdown code fences.`

// UserPromptThreeVersions formats the user turn sent alongside the system
// instruction.
func UserPromptThreeVersions(prompt string) string {
	return fmt.Sprintf("Original prompt: %q\n\nProduce the three optimized versions.", prompt)
}

// BuildGeminiRequest creates a Gemini generateContent request for the
// three-version rewrite.
func BuildGeminiRequest(prompt string, temperature float64, maxTokens int) *GeminiRequest {
	return &GeminiRequest{
		SystemInstruction: &GeminiContent{
			Parts: []GeminiPart{{Text: SystemPromptThreeVersions}},
		},
		Contents: []GeminiContent{
			{Role: "user", Parts: []GeminiPart{{Text: UserPromptThreeVersions(prompt)}}},
		},
		GenerationConfig: &GeminiGenerationConfig{
			MaxOutputTokens: maxTokens,
			Temperature:     temperature,
		},
	}
}

// BuildOpenAIRequest creates an OpenAI chat request for the three-version
// rewrite.
func BuildOpenAIRequest(model, prompt string, temperature float64, maxTokens int) *OpenAIChatRequest {
	return &OpenAIChatRequest{
		Model: model,
		Messages: []OpenAIMessage{
			{Role: "system", Content: SystemPromptThreeVersions},
			{Role: "user", Content: UserPromptThreeVersions(prompt)},
		},
		MaxCompletionTokens: maxTokens,
		Temperature:         temperature,
	}
}

// ExtractGeminiText extracts the single text field from a Gemini response.
func ExtractGeminiText(resp *GeminiResponse) (string, error) {
	if resp.Error != nil {
		return "", fmt.Errorf("gemini API error (%d): %s", resp.Error.Code, resp.Error.Message)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini response has no candidates")
	}
	parts := resp.Candidates[0].Content.Parts
	if len(parts) == 0 {
		return "", fmt.Errorf("gemini response has no content parts")
	}
	return strings.TrimSpace(parts[0].Text), nil
}

// ExtractOpenAIText extracts the single text field from an OpenAI response.
func ExtractOpenAIText(resp *OpenAIChatResponse) (string, error) {
	if resp.Error != nil {
		return "", fmt.Errorf("openai API error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai response has no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
