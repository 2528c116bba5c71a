package provider

import "llmunify/internal/store"

// GeminiParser reads Gemini conversation exports. The export format is not
// decoded yet, so every payload yields no conversations.
type GeminiParser struct{}

func (GeminiParser) Name() string {
	return "Gemini"
}

func (GeminiParser) Parse(raw []byte) ([]store.Conversation, error) {
	return nil, nil
}

func (GeminiParser) Validate(conv *store.Conversation) error {
	return validateCommon(conv)
}
