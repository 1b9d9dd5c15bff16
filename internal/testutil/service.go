// Package testutil builds a fully wired service for transport tests.
package testutil

import (
	"context"
	"testing"

	"github.com/xiaot623/fieldwise/internal/adapter/llm"
	"github.com/xiaot623/fieldwise/internal/adapter/speech"
	"github.com/xiaot623/fieldwise/internal/conversation"
	"github.com/xiaot623/fieldwise/internal/policy"
	store "github.com/xiaot623/fieldwise/internal/repository"
	"github.com/xiaot623/fieldwise/internal/service"
)

// Env is a service backed by the scripted policy, mock speech gateways and
// an in-memory report store.
type Env struct {
	Service     *service.Service
	Client      *llm.MockClient
	Store       *store.SQLiteStore
	Transcriber *speech.MockTranscriber
	Synthesizer *speech.MockSynthesizer
}

// Answers walks the scripted policy up to its confirmation prompt.
var Answers = []string{
	"Dana",
	"Pad 12",
	"Replacing a pump seal",
	"A slow leak and some vibration",
	"About a week",
	"The mechanical seal",
	"Same model number",
	"Around 9am",
}

// NewTestSQLiteStore opens an in-memory store closed at test cleanup.
func NewTestSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

// NewEnv wires a service for tests.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	filing, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	env := &Env{
		Client:      llm.NewMockClient(),
		Store:       NewTestSQLiteStore(t),
		Transcriber: &speech.MockTranscriber{},
		Synthesizer: &speech.MockSynthesizer{},
	}
	engine := conversation.NewEngine(conversation.NewLLMPolicy(env.Client, ""))
	env.Service = service.New(engine, env.Store, store.NewSessionRegistry(), filing, env.Transcriber, env.Synthesizer)
	return env
}
