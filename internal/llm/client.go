package llm

import (
	"context"
	"errors"
)

// Roles aceptados en una conversacion enviada al modelo.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	ErrEmptyResponse = errors.New("llm empty response")
	ErrNoMessages    = errors.New("llm: no messages")
)

// Message es un turno de la conversacion enviada al modelo.
type Message struct {
	Role    string
	Content string
}

// LLMClient define la interfaz para generar respuestas con un LLM.
type LLMClient interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}
