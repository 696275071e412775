package assist

import (
	"context"
	"fmt"
)

type mockCall struct {
	System string
	User   string
}

type MockLLM struct {
	Response      string
	ResponseQueue []string
	Err           error
	Calls         []mockCall
}

func (m *MockLLM) Generate(ctx context.Context, system, user string) (string, error) {
	m.Calls = append(m.Calls, mockCall{System: system, User: user})
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.ResponseQueue) > 0 {
		resp := m.ResponseQueue[0]
		m.ResponseQueue = m.ResponseQueue[1:]
		return resp, nil
	}
	return m.Response, nil
}

type scriptedPrompter struct {
	answers   []string
	questions []string
	said      []string
}

func (p *scriptedPrompter) Say(text string) {
	p.said = append(p.said, text)
}

func (p *scriptedPrompter) Ask(question string) (string, error) {
	p.questions = append(p.questions, question)
	if len(p.answers) == 0 {
		return "", fmt.Errorf("no scripted answer for %q", question)
	}
	answer := p.answers[0]
	p.answers = p.answers[1:]
	return answer, nil
}
