// Package provider defines the parser capability each AI-assistant export
// format implements, and a registry to look parsers up by name.
package provider

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"llmunify/internal/store"
)

var (
	// ErrParse reports a payload that could not be decoded. A parser that
	// simply found nothing returns an empty slice and a nil error instead.
	ErrParse           = errors.New("parse failed")
	ErrInvalid         = errors.New("invalid conversation")
	ErrUnknownProvider = errors.New("unknown provider")
)

// Parser turns one provider's raw export into normalized conversations.
type Parser interface {
	Name() string

	// Parse returns zero or more conversations with their Messages filled.
	// An empty result with a nil error means the payload held no data.
	Parse(raw []byte) ([]store.Conversation, error)

	Validate(conv *store.Conversation) error
}

type Registry struct {
	parsers map[string]Parser
}

func NewRegistry(parsers ...Parser) *Registry {
	r := &Registry{parsers: make(map[string]Parser)}
	for _, p := range parsers {
		r.Register(p)
	}
	return r
}

// Default returns a registry holding every built-in provider.
func Default() *Registry {
	return NewRegistry(ClaudeParser{}, CopilotParser{}, GeminiParser{})
}

// Register adds p, replacing any parser with the same case-insensitive name.
func (r *Registry) Register(p Parser) {
	r.parsers[strings.ToLower(p.Name())] = p
}

func (r *Registry) Lookup(name string) (Parser, error) {
	p, ok := r.parsers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return p, nil
}

// Names returns the display names of the registered parsers, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.parsers))
	for _, p := range r.parsers {
		names = append(names, p.Name())
	}
	sort.Strings(names)
	return names
}

// validateCommon holds the checks every built-in parser shares.
func validateCommon(conv *store.Conversation) error {
	if conv == nil {
		return fmt.Errorf("%w: nil conversation", ErrInvalid)
	}
	return nil
}
