package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/xiaot623/fieldwise/internal/domain"
)

// Scripted questions asked by the MockClient, in order. The last one is the
// confirmation prompt.
var mockScript = []string{
	"Hi, I'm Fieldwise. I'll help you file a maintenance report. Who am I speaking with?",
	"Thanks. What site are you visiting today?",
	"What problem are you addressing, or what type of maintenance are you performing?",
	"What symptoms did you notice? For example noises, leaks, power loss or vibrations.",
	"How long have you been tracking those symptoms?",
	"What parts are you replacing?",
	"Do the new parts have the same model number? If not, what is the new model number?",
	"Roughly what time did you start the maintenance?",
	"Okay, I think I have all the details. Shall I write up the report?",
}

// Keys the MockClient uses for the answers it collected, in script order.
var mockFields = []string{
	"technician_name",
	"site_name",
	"problem",
	"symptoms",
	"symptom_duration",
	"parts_replaced",
	"new_part_model_numbers",
	"maintenance_start_time",
}

var affirmatives = []string{"yes", "yeah", "yep", "sure", "correct", "that's right", "go ahead", "please do", "sounds good"}

// SummaryRequestPrefix opens the summarization instruction. The MockClient
// answers with a summary only when the final user turn starts with it.
const SummaryRequestPrefix = "The user has confirmed the report is ready."

// ErrMockUnavailable is returned by a MockClient told to fail.
var ErrMockUnavailable = errors.New("mock LLM unavailable")

// MockClient is a deterministic stand-in for the dialogue policy. It walks
// the guiding script one question per user answer, emits the completion
// marker only after an affirmative reply to the confirmation prompt, and
// answers summary requests with a JSON object echoing the collected answers.
type MockClient struct {
	mu       sync.Mutex
	failures int
	requests []*ChatCompletionRequest
}

// NewMockClient creates a new mock LLM client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// FailNext makes the next n calls fail with ErrMockUnavailable.
func (m *MockClient) FailNext(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = n
}

// Requests returns the requests received so far.
func (m *MockClient) Requests() []*ChatCompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*ChatCompletionRequest(nil), m.requests...)
}

// CreateChatCompletion returns the scripted response for the conversation.
func (m *MockClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.requests = append(m.requests, req)
	if m.failures > 0 {
		m.failures--
		m.mu.Unlock()
		return nil, ErrMockUnavailable
	}
	m.mu.Unlock()

	content := m.generateMockResponse(req)
	return &ChatCompletionResponse{
		ID:      fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   "mock-fieldwise",
		Choices: []Choice{
			{
				Index:        0,
				Message:      &ChatMessage{Role: "assistant", Content: content},
				FinishReason: "stop",
			},
		},
		Usage: &Usage{
			PromptTokens:     estimateTokens(req),
			CompletionTokens: len(content) / 4,
			TotalTokens:      estimateTokens(req) + len(content)/4,
		},
	}, nil
}

func (m *MockClient) generateMockResponse(req *ChatCompletionRequest) string {
	answers, lastAssistant, lastUser := m.walk(req.Messages)

	if isSummaryRequest(req.Messages) {
		return summarize(answers)
	}

	confirm := mockScript[len(mockScript)-1]
	if len(answers) < len(mockScript)-1 {
		return mockScript[len(answers)]
	}
	if lastAssistant == confirm && isAffirmative(lastUser) {
		return "Great, I'll write up the report now. " + domain.CompletionMarker
	}
	return confirm
}

// walk collects the technician's answers to the scripted questions, ignoring
// the reply to the confirmation prompt and any trailing summary instruction.
func (m *MockClient) walk(msgs []ChatMessage) (answers []string, lastAssistant, lastUser string) {
	if isSummaryRequest(msgs) {
		msgs = msgs[:len(msgs)-1]
	}
	for _, msg := range msgs {
		switch msg.Role {
		case "assistant":
			lastAssistant = msg.Content
		case "user":
			if strings.TrimSpace(msg.Content) == "" {
				continue
			}
			lastUser = msg.Content
			if len(answers) < len(mockFields) {
				answers = append(answers, msg.Content)
			}
		}
	}
	return answers, lastAssistant, lastUser
}

func isSummaryRequest(msgs []ChatMessage) bool {
	if len(msgs) == 0 {
		return false
	}
	last := msgs[len(msgs)-1]
	return last.Role == "user" && strings.HasPrefix(last.Content, SummaryRequestPrefix)
}

func isAffirmative(s string) bool {
	s = strings.ToLower(s)
	for _, a := range affirmatives {
		if strings.Contains(s, a) {
			return true
		}
	}
	return false
}

func summarize(answers []string) string {
	var b strings.Builder
	b.WriteString("{")
	for i, key := range mockFields {
		value := ""
		if i < len(answers) {
			value = answers[i]
		}
		k, _ := json.Marshal(key)
		v, _ := json.Marshal(value)
		if i > 0 {
			b.WriteString(", ")
		}
		b.Write(k)
		b.WriteString(": ")
		b.Write(v)
	}
	b.WriteString("}")
	return b.String()
}

// estimateTokens provides a rough token count estimate.
func estimateTokens(req *ChatCompletionRequest) int {
	total := 0
	for _, msg := range req.Messages {
		total += len(msg.Content) / 4
	}
	return total
}
