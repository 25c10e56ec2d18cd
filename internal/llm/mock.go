package llm

import "context"

// MockClient permite tests sin llamar a un LLM real. Guarda la ultima conversacion recibida.
type MockClient struct {
	Response string
	Err      error
	Calls    int
	Last     []Message
}

func (m *MockClient) Generate(ctx context.Context, messages []Message) (string, error) {
	m.Calls++
	m.Last = append([]Message(nil), messages...)
	return m.Response, m.Err
}
