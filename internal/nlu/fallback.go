package nlu

import (
	"context"
	"encoding/json"
	"fmt"
	log "log/slog"
	"strings"

	openai "github.com/openai/openai-go/v3"
)

// Classifier is consulted when no rule matches.
type Classifier interface {
	Classify(ctx context.Context, utterance string) (MatchResult, bool, error)
}

type llmResult struct {
	Intent  string `json:"intent"`
	Product string `json:"product"`
	Query   string `json:"query"`
}

const systemPrompt = `
You are the intent classifier for the EchoMarket voice storefront.
Your ONLY job is to convert the shopper's utterance into a minimal JSON object.

RULES:
1. Do NOT converse.
2. Do NOT answer the question.
3. Output ONLY JSON. No markdown.
4. Never invent products.

OUTPUT FORMAT:
{
  "intent": "<string>",
  "product": "<spoken product phrase or empty>",
  "query": "<original user text>"
}

INTENTS:
- "go_to_cart"     open the shopping cart
- "show_products"  browse the catalog
- "checkout"       start paying for the cart
- "add_to_cart"    put a product in the cart; "product" holds the words the shopper used for it
- "greeting"
- "help"           the shopper asks what they can say
- "unknown"        anything else

If the meaning is unclear → intent = "unknown".
`

type LLMClassifier struct {
	client openai.Client
	model  openai.ChatModel
}

func NewLLMClassifier(client openai.Client, model string) *LLMClassifier {
	m := openai.ChatModel(model)
	if model == "" {
		m = openai.ChatModelGPT5Nano
	}
	return &LLMClassifier{client: client, model: m}
}

func (c *LLMClassifier) Classify(ctx context.Context, utterance string) (MatchResult, bool, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(utterance),
		},
		Model: c.model,
	})
	if err != nil {
		return MatchResult{}, false, fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return MatchResult{}, false, fmt.Errorf("no choices in response")
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return MatchResult{}, false, fmt.Errorf("empty message content")
	}

	log.Debug("Classified", "data", content)

	return parseClassification(content)
}

func parseClassification(content string) (MatchResult, bool, error) {
	var out llmResult
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return MatchResult{}, false, fmt.Errorf("unmarshal classification: %w (raw: %s)", err, content)
	}

	intent := Intent(strings.TrimSpace(out.Intent))
	if !intent.Valid() {
		return MatchResult{}, false, nil
	}

	product := strings.TrimSpace(out.Product)
	if intent == AddToCart && product == "" {
		return MatchResult{}, false, nil
	}

	for _, r := range Rules {
		if r.Intent == intent {
			return MatchResult{Intent: intent, Slot: product, Feedback: r.feedback(product)}, true, nil
		}
	}
	return MatchResult{}, false, nil
}
