package dialogue

import (
	"context"
	"errors"
	"fmt"

	"diary-companion/internal/domain"
	"diary-companion/internal/llm"
	"diary-companion/internal/locale"
)

var ErrRemoteResolver = errors.New("remote resolver failure")

// Resolver es la ultima etapa de la cascada: siempre produce texto o error.
type Resolver interface {
	Resolve(ctx context.Context, in Input) (string, error)
}

// LocalResolver elige del pool generico evitando repetir la ultima frase.
type LocalResolver struct {
	loc locale.Provider
	rnd Rand
}

func NewLocalResolver(loc locale.Provider, rnd Rand) *LocalResolver {
	if rnd == nil {
		rnd = NewRand(0)
	}
	return &LocalResolver{loc: loc, rnd: rnd}
}

func (r *LocalResolver) Resolve(_ context.Context, in Input) (string, error) {
	return pickExcluding(r.rnd, r.loc.Pool(in.Language, "fallback.pool"), in.LastUtterance), nil
}

// RemoteResolver delega la respuesta en un modelo remoto.
type RemoteResolver struct {
	client llm.LLMClient
	loc    locale.Provider
}

func NewRemoteResolver(client llm.LLMClient, loc locale.Provider) *RemoteResolver {
	return &RemoteResolver{client: client, loc: loc}
}

// Resolve envia el prompt de sistema, la ventana reciente del historial y el texto nuevo.
func (r *RemoteResolver) Resolve(ctx context.Context, in Input) (string, error) {
	if r == nil || r.client == nil {
		return "", fmt.Errorf("%w: client not configured", ErrRemoteResolver)
	}
	history := in.History
	if len(history) > ContextWindow {
		history = history[len(history)-ContextWindow:]
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: r.loc.Resolve(in.Language, "remote.system_prompt", nil)})
	for _, turn := range history {
		role := llm.RoleUser
		if turn.Sender == domain.SenderAgent {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: turn.Text})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: in.Text})

	reply, err := r.client.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRemoteResolver, err)
	}
	if reply == "" {
		return "", fmt.Errorf("%w: empty reply", ErrRemoteResolver)
	}
	return reply, nil
}
