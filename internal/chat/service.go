// Package chat runs the request pipeline: validation, safety classification, hybrid retrieval,
// prompt construction and the streamed LLM answer.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/faqbot/internal/config"
	"github.com/hyperjump/faqbot/internal/llm"
	"github.com/hyperjump/faqbot/internal/models"
	"github.com/hyperjump/faqbot/internal/prompt"
	"github.com/hyperjump/faqbot/internal/safety"
	"github.com/hyperjump/faqbot/internal/search"
	"github.com/hyperjump/faqbot/internal/stream"
)

// Replies for failures that happen before any frame is written.
const (
	MsgConnectFailed = "Failed to connect to LLM. Please try again."
	MsgLLMError      = "LLM error. Please try again."
	MsgSystemError   = "System error. Please contact the administrator."
)

// Upstream error kinds.
const (
	KindConnect   = "connect"
	KindStatus    = "status"
	KindEmbedding = "embedding"
)

// UpstreamError is returned by Respond when a collaborator fails before the response started.
// Reply is safe to show to the user; Err is for logs only.
type UpstreamError struct {
	Kind  string
	Reply string
	Err   error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s upstream error: %v", e.Kind, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Searcher runs hybrid retrieval. *search.Engine satisfies it.
type Searcher interface {
	Search(ctx context.Context, text string) (*search.Result, error)
}

// Completer opens streamed completions. *llm.Client satisfies it.
type Completer interface {
	Enabled() bool
	Format() string
	Stream(ctx context.Context, system, prompt string) (io.ReadCloser, error)
}

// Observer receives pipeline metrics. *observability.Metrics satisfies it.
type Observer interface {
	stream.Observer
	ObserveRequest(classification string)
	ObserveFallback()
	ObserveUpstreamError(kind string)
	ObserveTopScore(score float64)
}

// Deps are the collaborators of a Service. Observer and Logger may be nil.
type Deps struct {
	Classifier *safety.Classifier
	Responses  *safety.Responses
	Searcher   Searcher
	Prompts    *prompt.Builder
	LLM        Completer
	Config     config.ChatConfig
	Observer   Observer
	Logger     *zap.Logger
}

// Service answers chat messages.
type Service struct {
	deps   Deps
	relay  *stream.Relay
	logger *zap.Logger
}

// NewService wires a Service. It fails if the completer's stream format is unknown.
func NewService(deps Deps) (*Service, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	decoder, err := stream.NewDecoder(deps.LLM.Format())
	if err != nil {
		return nil, err
	}
	var relayObserver stream.Observer
	if deps.Observer != nil {
		relayObserver = deps.Observer
	}
	return &Service{
		deps:   deps,
		relay:  stream.NewRelay(decoder, deps.Logger, relayObserver),
		logger: deps.Logger,
	}, nil
}

// Respond answers message by writing frames to sink. Every path that writes frames ends with
// exactly one done frame. An *UpstreamError is returned, with nothing written, when the LLM or
// embedding backend fails before the response starts.
func (s *Service) Respond(ctx context.Context, message string, sink stream.FrameSink) error {
	start := time.Now()
	log := s.logger.With(zap.String("request_id", requestID(ctx)))

	req := models.ChatRequest{Message: message}
	if reply := req.Validate(s.deps.Config.MaxMessageLength); reply != "" {
		s.observeRequest("invalid")
		log.Debug("rejected message", zap.String("reason", reply))
		return stream.WriteReply(sink, reply)
	}

	class := s.deps.Classifier.Classify(message)
	if reply, ok := s.deps.Responses.For(class); ok {
		s.observeRequest(string(class))
		log.Info("canned reply", zap.String("classification", string(class)))
		return stream.WriteReply(sink, reply)
	}
	s.observeRequest(string(models.ClassNone))

	res, err := s.deps.Searcher.Search(ctx, message)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return s.upstreamError(log, KindEmbedding, MsgSystemError, err)
	}
	if s.deps.Observer != nil {
		s.deps.Observer.ObserveTopScore(res.TopScore)
	}
	if !res.Accepted {
		if s.deps.Observer != nil {
			s.deps.Observer.ObserveFallback()
		}
		log.Info("no confident match", zap.Float64("top_score", res.TopScore))
		return stream.WriteReply(sink, s.deps.Responses.Fallback())
	}

	suggestions := search.Suggestions(res.Candidates, s.deps.Config.Suggestions)
	if !s.deps.LLM.Enabled() {
		if err := sink.WriteFrame(models.ChunkFrame(res.Candidates[0].Entry.Answer)); err != nil {
			return err
		}
		return sink.WriteFrame(models.DoneFrame(suggestions))
	}

	p := s.deps.Prompts.Build(res.Candidates, message)
	body, err := s.deps.LLM.Stream(ctx, s.deps.Prompts.SystemMessage(), p)
	if err != nil {
		var apiErr *llm.APIError
		if errors.As(err, &apiErr) {
			return s.upstreamError(log, KindStatus, MsgLLMError, err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return s.upstreamError(log, KindConnect, MsgConnectFailed, err)
	}
	defer body.Close()

	sum, err := s.relay.Run(ctx, body, sink, suggestions)
	fields := []zap.Field{
		zap.Int("chunks", sum.Chunks),
		zap.Int("bytes", sum.Bytes),
		zap.Int("skipped_lines", sum.Skipped),
		zap.Float64("top_score", res.TopScore),
		zap.Duration("took", time.Since(start)),
	}
	if err != nil {
		if sum.Failed && s.deps.Observer != nil {
			s.deps.Observer.ObserveUpstreamError("stream")
		}
		log.Warn("stream ended early", append(fields, zap.Error(err))...)
		return nil
	}
	log.Info("answered", fields...)
	return nil
}

func (s *Service) observeRequest(class string) {
	if s.deps.Observer != nil {
		s.deps.Observer.ObserveRequest(class)
	}
}

func (s *Service) upstreamError(log *zap.Logger, kind, reply string, err error) error {
	if s.deps.Observer != nil {
		s.deps.Observer.ObserveUpstreamError(kind)
	}
	log.Error("upstream failure", zap.String("kind", kind), zap.Error(err))
	return &UpstreamError{Kind: kind, Reply: reply, Err: err}
}

type requestIDKey struct{}

// WithRequestID returns ctx carrying id for log correlation.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// requestID returns the id stored by WithRequestID, or a new uuid.
func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}
