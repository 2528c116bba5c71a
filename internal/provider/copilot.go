package provider

import "llmunify/internal/store"

// CopilotParser reads GitHub Copilot chat exports. The export format is
// not decoded yet, so every payload yields no conversations.
type CopilotParser struct{}

func (CopilotParser) Name() string {
	return "Copilot"
}

func (CopilotParser) Parse(raw []byte) ([]store.Conversation, error) {
	return nil, nil
}

func (CopilotParser) Validate(conv *store.Conversation) error {
	return validateCommon(conv)
}
