package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/fieldwise/internal/adapter/llm"
	"github.com/xiaot623/fieldwise/internal/adapter/speech"
	"github.com/xiaot623/fieldwise/internal/conversation"
	"github.com/xiaot623/fieldwise/internal/domain"
	"github.com/xiaot623/fieldwise/internal/policy"
	store "github.com/xiaot623/fieldwise/internal/repository"
)

type fixture struct {
	svc         *Service
	client      *llm.MockClient
	reports     *store.SQLiteStore
	sessions    *store.SessionRegistry
	synthesizer *speech.MockSynthesizer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	reports, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { reports.Close() })

	filing, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	require.NoError(t, err)

	client := llm.NewMockClient()
	sessions := store.NewSessionRegistry()
	synth := &speech.MockSynthesizer{}
	engine := conversation.NewEngine(conversation.NewLLMPolicy(client, ""))

	return &fixture{
		svc:         New(engine, reports, sessions, filing, &speech.MockTranscriber{}, synth),
		client:      client,
		reports:     reports,
		sessions:    sessions,
		synthesizer: synth,
	}
}

var answers = []string{
	"Dana",
	"Pad 12",
	"Replacing a pump seal",
	"A slow leak and some vibration",
	"About a week",
	"The mechanical seal",
	"Same model number",
	"Around 9am",
}

// walkToConfirmation runs a session up to the confirmation prompt.
func walkToConfirmation(t *testing.T, f *fixture, id string, channel domain.Channel) {
	t.Helper()
	ctx := context.Background()

	res, err := f.svc.StartSession(ctx, channel, id)
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "Who am I speaking with?")

	for _, a := range answers {
		res, err = f.svc.Turn(ctx, id, channel, a)
		require.NoError(t, err)
		require.False(t, res.Complete)
	}
	assert.Contains(t, res.Reply, "Shall I write up the report?")
}

func TestTurnFilesReportAfterConfirmation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	walkToConfirmation(t, f, "web-1", domain.ChannelWeb)

	res, err := f.svc.Turn(ctx, "web-1", domain.ChannelWeb, "Yes, go ahead")
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Equal(t, WebFiledMessage, res.Reply)
	assert.NotZero(t, res.ReportID)
	assert.NotContains(t, res.Reply, domain.CompletionMarker)

	reports, err := f.svc.ListReports(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, res.ReportID, reports[0].ID)
	assert.Equal(t, "Pad 12", reports[0].Site())

	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(reports[0].Payload), &payload))
	assert.Equal(t, "Dana", payload["technician_name"])

	// The session is retired; the next message starts over.
	assert.Zero(t, f.sessions.Count())
	_, err = f.svc.History("web-1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	res, err = f.svc.Turn(ctx, "web-1", domain.ChannelWeb, "")
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "Who am I speaking with?")
}

func TestTurnNoMarkerWithoutConfirmation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	walkToConfirmation(t, f, "web-1", domain.ChannelWeb)

	res, err := f.svc.Turn(ctx, "web-1", domain.ChannelWeb, "Hold on, the site was Pad 14")
	require.NoError(t, err)
	assert.False(t, res.Complete)

	reports, err := f.svc.ListReports(ctx)
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestVoiceCompletionSkipsFarewellSynthesis(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	walkToConfirmation(t, f, "CA123", domain.ChannelVoice)
	before := len(f.synthesizer.Calls())

	res, err := f.svc.Turn(ctx, "CA123", domain.ChannelVoice, "yes")
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Equal(t, VoiceFiledMessage, res.Reply)
	assert.Empty(t, res.AudioFile)
	assert.Len(t, f.synthesizer.Calls(), before)
}

func TestTurnSynthesizesEachReply(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.svc.StartSession(ctx, domain.ChannelVoice, "CA1")
	require.NoError(t, err)
	assert.Equal(t, "CA1_0.mp3", res.AudioFile)

	res, err = f.svc.Turn(ctx, "CA1", domain.ChannelVoice, "Dana")
	require.NoError(t, err)
	assert.Equal(t, "CA1_1.mp3", res.AudioFile)
	assert.Equal(t, []string{"CA1_0.mp3", "CA1_1.mp3"}, f.synthesizer.Calls())
}

func TestTurnContinuesWithoutAudio(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.synthesizer.Fail = true

	res, err := f.svc.StartSession(ctx, domain.ChannelVoice, "CA1")
	require.NoError(t, err)
	assert.Empty(t, res.AudioFile)
	assert.NotEmpty(t, res.Reply)
}

func TestTurnRetriesUpstreamOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.StartSession(ctx, domain.ChannelWeb, "web-1")
	require.NoError(t, err)

	f.client.FailNext(1)
	res, err := f.svc.Turn(ctx, "web-1", domain.ChannelWeb, "Dana")
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "What site")

	history, err := f.svc.History("web-1")
	require.NoError(t, err)
	var users int
	for _, turn := range history {
		if turn.Role == domain.RoleUser {
			users++
		}
	}
	assert.Equal(t, 1, users)
}

func TestTurnUpstreamUnavailable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.client.FailNext(2)
	_, err := f.svc.StartSession(ctx, domain.ChannelWeb, "web-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)

	// The session survives and recovers on the next turn.
	res, err := f.svc.Turn(ctx, "web-1", domain.ChannelWeb, "")
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "Who am I speaking with?")
}

func TestSummaryRetriedOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	walkToConfirmation(t, f, "web-1", domain.ChannelWeb)

	// The confirmation reply succeeds, then the first summary call fails.
	client := f.client
	summaryFails := &failAfter{LLMClient: client, after: 1}
	f.svc.engine = conversation.NewEngine(conversation.NewLLMPolicy(summaryFails, ""))

	res, err := f.svc.Turn(ctx, "web-1", domain.ChannelWeb, "yes")
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Equal(t, 1, summaryFails.failed)
}

// failAfter lets the first n calls through and fails the next one.
type failAfter struct {
	llm.LLMClient
	after  int
	calls  int
	failed int
}

func (f *failAfter) CreateChatCompletion(ctx context.Context, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
	f.calls++
	if f.calls == f.after+1 {
		f.failed++
		return nil, errors.New("connection reset")
	}
	return f.LLMClient.CreateChatCompletion(ctx, req)
}

func TestConcurrentSessionsFileSeparately(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := f.svc.StartSession(ctx, domain.ChannelWeb, id); err != nil {
				errs <- err
				return
			}
			for _, a := range append(append([]string(nil), answers...), "yes") {
				if _, err := f.svc.Turn(ctx, id, domain.ChannelWeb, a); err != nil {
					errs <- err
					return
				}
			}
		}(fmt.Sprintf("web-%d", i))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	reports, err := f.svc.ListReports(ctx)
	require.NoError(t, err)
	assert.Len(t, reports, 5)
}

func TestStartSessionGeneratesID(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.StartSession(context.Background(), domain.ChannelWeb, "")
	require.NoError(t, err)
	assert.Regexp(t, `^web-[0-9a-f-]{36}$`, res.SessionID)
}

func TestGetReportNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetReport(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrReportNotFound)
}

func TestTranscribeDataURL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	text, err := f.svc.TranscribeDataURL(ctx, "data:audio/wav;base64,IERhbmEg")
	require.NoError(t, err)
	assert.Equal(t, "Dana", text)

	_, err = f.svc.TranscribeDataURL(ctx, "not a data url")
	assert.ErrorIs(t, err, domain.ErrInvalidAudio)

	_, err = f.svc.TranscribeDataURL(ctx, "data:audio/wav;base64,@@@")
	assert.ErrorIs(t, err, domain.ErrInvalidAudio)
}

func TestDecodeDataURL(t *testing.T) {
	audio, err := DecodeDataURL("data:audio/webm;codecs=opus;base64,AAEC")
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2}, audio)
}

func TestArtifactsNotReusedAfterFiling(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	walkToConfirmation(t, f, "web-1", domain.ChannelWeb)

	res, err := f.svc.Turn(ctx, "web-1", domain.ChannelWeb, "yes")
	require.NoError(t, err)
	require.True(t, res.Complete)
	require.NotEmpty(t, res.AudioFile)

	issued := map[string]int{}
	for _, name := range f.synthesizer.Calls() {
		issued[name]++
	}
	for name, n := range issued {
		require.Equal(t, 1, n, "artifact %s issued twice", name)
	}

	res, err = f.svc.Turn(ctx, "web-1", domain.ChannelWeb, "Dana again")
	require.NoError(t, err)
	require.NotEmpty(t, res.AudioFile)
	assert.Zero(t, issued[res.AudioFile], "artifact %s was already issued", res.AudioFile)
}

func TestConcurrentStartSessionGreetsOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var wg sync.WaitGroup
	replies := make([]string, 4)
	errs := make([]error, 4)
	for i := range replies {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.svc.StartSession(ctx, domain.ChannelWeb, "web-1")
			errs[i] = err
			if err == nil {
				replies[i] = res.Reply
			}
		}(i)
	}
	wg.Wait()

	for i := range replies {
		require.NoError(t, errs[i])
		assert.Contains(t, replies[i], "Who am I speaking with?")
	}
	assert.Len(t, f.client.Requests(), 1)

	history, err := f.svc.History("web-1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestStartSessionResumesWithoutPolicyCall(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.StartSession(ctx, domain.ChannelWeb, "web-1")
	require.NoError(t, err)
	next, err := f.svc.Turn(ctx, "web-1", domain.ChannelWeb, "Dana")
	require.NoError(t, err)

	res, err := f.svc.StartSession(ctx, domain.ChannelWeb, "web-1")
	require.NoError(t, err)
	assert.Equal(t, next.Reply, res.Reply)
	assert.Empty(t, res.AudioFile)
	assert.Len(t, f.client.Requests(), 2)
}

// emptyOnce returns a blank completion on its first call.
type emptyOnce struct {
	llm.LLMClient
	done bool
}

func (e *emptyOnce) CreateChatCompletion(ctx context.Context, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
	if !e.done {
		e.done = true
		return &llm.ChatCompletionResponse{Choices: []llm.Choice{{Message: &llm.ChatMessage{Role: "assistant", Content: " "}}}}, nil
	}
	return e.LLMClient.CreateChatCompletion(ctx, req)
}

func TestEmptyReplyIsRetried(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.svc.engine = conversation.NewEngine(conversation.NewLLMPolicy(&emptyOnce{LLMClient: f.client}, ""))

	res, err := f.svc.StartSession(ctx, domain.ChannelWeb, "web-1")
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "Who am I speaking with?")

	history, err := f.svc.History("web-1")
	require.NoError(t, err)
	for _, turn := range history {
		assert.NotEmpty(t, turn.Content)
	}
}
