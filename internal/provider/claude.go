package provider

import "llmunify/internal/store"

// ClaudeParser reads Claude conversation exports. The export format is not
// decoded yet, so every payload yields no conversations.
type ClaudeParser struct{}

func (ClaudeParser) Name() string {
	return "Claude"
}

func (ClaudeParser) Parse(raw []byte) ([]store.Conversation, error) {
	return nil, nil
}

func (ClaudeParser) Validate(conv *store.Conversation) error {
	return validateCommon(conv)
}
