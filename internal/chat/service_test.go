package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/faqbot/internal/config"
	"github.com/hyperjump/faqbot/internal/llm"
	"github.com/hyperjump/faqbot/internal/models"
	"github.com/hyperjump/faqbot/internal/prompt"
	"github.com/hyperjump/faqbot/internal/safety"
	"github.com/hyperjump/faqbot/internal/search"
	"github.com/hyperjump/faqbot/internal/stream"
)

type fakeSearcher struct {
	calls  int
	result *search.Result
	err    error
}

func (f *fakeSearcher) Search(context.Context, string) (*search.Result, error) {
	f.calls++
	return f.result, f.err
}

type fakeCompleter struct {
	enabled bool
	format  string
	body    string
	err     error
	calls   int
	system  string
	prompt  string
}

func (f *fakeCompleter) Enabled() bool  { return f.enabled }
func (f *fakeCompleter) Format() string { return f.format }

func (f *fakeCompleter) Stream(_ context.Context, system, prompt string) (io.ReadCloser, error) {
	f.calls++
	f.system, f.prompt = system, prompt
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(strings.NewReader(f.body)), nil
}

var entries = []*models.FAQEntry{
	{ID: 1, Question: "How do I book a counselling session?", Answer: "Email cservices."},
	{ID: 2, Question: "Is counselling confidential?", Answer: "Yes, always."},
	{ID: 3, Question: "When is the IPOD session?", Answer: "Wednesdays."},
}

func acceptedResult() *search.Result {
	return &search.Result{
		Accepted: true,
		TopScore: 0.82,
		Candidates: []*models.ScoredCandidate{
			{Entry: entries[0], Score: 0.82, Source: models.SourceVector},
			{Entry: entries[1], Score: 0.61, Source: models.SourceKeyword},
			{Entry: entries[2], Score: 0.45, Source: models.SourceVector},
		},
	}
}

type fixture struct {
	svc      *Service
	searcher *fakeSearcher
	llm      *fakeCompleter
	resp     *safety.Responses
}

func newFixture(t *testing.T, res *search.Result, completer *fakeCompleter) *fixture {
	t.Helper()
	cfg := config.Config{}
	config.ApplyDefaults(&cfg)
	resp := safety.NewResponses(safety.Contact{
		Organization:    cfg.Chat.Organization,
		Institute:       cfg.Chat.Institute,
		Email:           cfg.Chat.ContactEmail,
		EmergencyNumber: "112",
	})
	searcher := &fakeSearcher{result: res}
	if completer.format == "" {
		completer.format = stream.FormatSSE
	}
	svc, err := NewService(Deps{
		Classifier: safety.NewClassifier(),
		Responses:  resp,
		Searcher:   searcher,
		Prompts:    prompt.NewBuilder(cfg.Chat.Organization, resp.NoAnswer()),
		LLM:        completer,
		Config:     cfg.Chat,
	})
	require.NoError(t, err)
	return &fixture{svc: svc, searcher: searcher, llm: completer, resp: resp}
}

func respond(t *testing.T, f *fixture, message string) (*stream.Collector, error) {
	t.Helper()
	var c stream.Collector
	err := f.svc.Respond(context.Background(), message, &c)
	return &c, err
}

func TestRespond_Validation(t *testing.T) {
	f := newFixture(t, acceptedResult(), &fakeCompleter{enabled: true})

	c, err := respond(t, f, "")
	require.NoError(t, err)
	assert.Equal(t, models.MsgMessageRequired, c.Reply().Reply)
	assert.True(t, c.Done())

	c, err = respond(t, f, strings.Repeat("a", 501))
	require.NoError(t, err)
	assert.Equal(t, models.MsgMessageTooLong, c.Reply().Reply)

	c, err = respond(t, f, strings.Repeat("a", 500))
	require.NoError(t, err)
	assert.NotEqual(t, models.MsgMessageTooLong, c.Reply().Reply)
}

func TestRespond_CannedRepliesSkipRetrieval(t *testing.T) {
	tests := []struct {
		name    string
		message string
		class   models.Classification
	}{
		{"crisis", "I don't want to live anymore", models.ClassCrisis},
		{"depression", "I've been feeling really anxious lately", models.ClassDepression},
		{"greeting", "Hello there", models.ClassGreeting},
		{"meta", "What is your context?", models.ClassMeta},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, acceptedResult(), &fakeCompleter{enabled: true})
			c, err := respond(t, f, tt.message)
			require.NoError(t, err)

			want, ok := f.resp.For(tt.class)
			require.True(t, ok)
			assert.Equal(t, want, c.Reply().Reply)
			assert.Equal(t, 2, c.Frames())
			assert.Nil(t, c.Reply().Suggestions)
			assert.Zero(t, f.searcher.calls, "no retrieval for canned replies")
			assert.Zero(t, f.llm.calls, "no LLM call for canned replies")
		})
	}
}

func TestRespond_CrisisMentionsEmergencyNumber(t *testing.T) {
	f := newFixture(t, acceptedResult(), &fakeCompleter{enabled: true})
	c, err := respond(t, f, "i want to end my life")
	require.NoError(t, err)
	assert.Contains(t, c.Reply().Reply, "112")
}

func TestRespond_NoConfidentMatch(t *testing.T) {
	res := &search.Result{
		Accepted:   false,
		TopScore:   0.42,
		Candidates: []*models.ScoredCandidate{{Entry: entries[0], Score: 0.42}},
	}
	f := newFixture(t, res, &fakeCompleter{enabled: true})
	c, err := respond(t, f, "what is the wifi password")
	require.NoError(t, err)
	assert.Equal(t, f.resp.Fallback(), c.Reply().Reply)
	assert.Equal(t, 1, f.searcher.calls)
	assert.Zero(t, f.llm.calls)
}

func TestRespond_StreamsAnswerWithSuggestions(t *testing.T) {
	body := `data: {"choices":[{"delta":{"content":"Email "}}]}` + "\n" +
		`data: {oops` + "\n" +
		`data: {"choices":[{"delta":{"content":"cservices."}}]}` + "\n" +
		"data: [DONE]\n"
	f := newFixture(t, acceptedResult(), &fakeCompleter{enabled: true, body: body})

	c, err := respond(t, f, "how can I book a session")
	require.NoError(t, err)
	assert.Equal(t, 1, f.searcher.calls)
	assert.Equal(t, 1, f.llm.calls)

	reply := c.Reply()
	assert.Equal(t, "Email cservices.", reply.Reply)
	require.Len(t, reply.Suggestions, 2)
	assert.Equal(t, entries[0].Question, reply.Suggestions[0].Question)
	assert.Equal(t, entries[1].Question, reply.Suggestions[1].Question)

	assert.Contains(t, f.llm.prompt, "### USER QUERY\nhow can I book a session")
	assert.Contains(t, f.llm.prompt, "Question: When is the IPOD session?")
	assert.Contains(t, f.llm.system, "IIT Gandhinagar Counselling Services")
}

func TestRespond_NDJSONUpstream(t *testing.T) {
	body := `{"response":"Wed"}` + "\n" + `{"response":"nesdays."}` + "\n" + `{"done":true}`
	f := newFixture(t, acceptedResult(), &fakeCompleter{enabled: true, format: stream.FormatNDJSON, body: body})
	c, err := respond(t, f, "when is ipod")
	require.NoError(t, err)
	assert.Equal(t, "Wednesdays.", c.Reply().Reply)
}

func TestRespond_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantKind  string
		wantReply string
	}{
		{"connect", errors.Join(llm.ErrConnect, errors.New("dial tcp: refused")), KindConnect, MsgConnectFailed},
		{"timeout", errors.Join(llm.ErrConnect, llm.ErrTimeout), KindConnect, MsgConnectFailed},
		{"status", &llm.APIError{StatusCode: 503, Body: "overloaded"}, KindStatus, MsgLLMError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, acceptedResult(), &fakeCompleter{enabled: true, err: tt.err})
			c, err := respond(t, f, "how can I book a session")

			var upErr *UpstreamError
			require.ErrorAs(t, err, &upErr)
			assert.Equal(t, tt.wantKind, upErr.Kind)
			assert.Equal(t, tt.wantReply, upErr.Reply)
			assert.ErrorIs(t, err, tt.err)
			assert.Zero(t, c.Frames(), "nothing is written before an upstream failure")
		})
	}
}

func TestRespond_SearchError(t *testing.T) {
	f := newFixture(t, nil, &fakeCompleter{enabled: true})
	f.searcher.err = errors.New("embedding failed: worker crashed")
	c, err := respond(t, f, "how can I book a session")
	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, KindEmbedding, upErr.Kind)
	assert.Zero(t, c.Frames())
}

func TestRespond_NoLLMStreamsTopAnswer(t *testing.T) {
	f := newFixture(t, acceptedResult(), &fakeCompleter{enabled: false})
	c, err := respond(t, f, "how can I book a session")
	require.NoError(t, err)
	assert.Equal(t, entries[0].Answer, c.Reply().Reply)
	assert.Len(t, c.Reply().Suggestions, 2)
	assert.Zero(t, f.llm.calls)
}

func TestNewService_UnknownFormat(t *testing.T) {
	_, err := NewService(Deps{LLM: &fakeCompleter{format: "xml"}})
	assert.Error(t, err)
}

func TestRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "abc")
	assert.Equal(t, "abc", requestID(ctx))
	assert.Len(t, requestID(context.Background()), 36)
}
