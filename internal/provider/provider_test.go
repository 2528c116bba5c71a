package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llmunify/internal/store"
)

func TestBuiltinParsers(t *testing.T) {
	tests := []struct {
		parser Parser
		name   string
	}{
		{ClaudeParser{}, "Claude"},
		{CopilotParser{}, "Copilot"},
		{GeminiParser{}, "Gemini"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.parser.Name())

			convs, err := tt.parser.Parse([]byte(`{"conversations":[{"id":"x"}]}`))
			require.NoError(t, err, "no data is not a failure")
			assert.Empty(t, convs)

			convs, err = tt.parser.Parse(nil)
			require.NoError(t, err)
			assert.Empty(t, convs)

			assert.NoError(t, tt.parser.Validate(&store.Conversation{ID: "c1"}))
			assert.ErrorIs(t, tt.parser.Validate(nil), ErrInvalid)
		})
	}
}

func TestRegistry(t *testing.T) {
	r := Default()
	assert.Equal(t, []string{"Claude", "Copilot", "Gemini"}, r.Names())

	for _, name := range []string{"claude", "CLAUDE", " Claude "} {
		p, err := r.Lookup(name)
		require.NoError(t, err, name)
		assert.Equal(t, "Claude", p.Name())
	}

	_, err := r.Lookup("chatgpt")
	assert.ErrorIs(t, err, ErrUnknownProvider)

	empty := NewRegistry()
	assert.Empty(t, empty.Names())
	_, err = empty.Lookup("Gemini")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}
