package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/faqbot/internal/models"
)

// StreamErrorMessage is the error text of the terminal frame when the upstream fails mid-stream.
const StreamErrorMessage = "Stream error"

const readSize = 4096

// Frame kinds reported to the observer.
const (
	KindChunk = "chunk"
	KindDone  = "done"
	KindError = "error"
)

// Observer receives relay metrics. *observability.Metrics satisfies it.
type Observer interface {
	ObserveFrame(kind string)
	ObserveSkippedLine()
}

// Summary describes one relayed stream.
type Summary struct {
	Chunks  int
	Bytes   int
	Skipped int
	Text    string
	// Failed is set when the stream ended with an error frame.
	Failed bool
}

// Relay converts an upstream body into client frames.
type Relay struct {
	decoder  Decoder
	logger   *zap.Logger
	observer Observer
}

// NewRelay returns a relay decoding lines with decoder. observer may be nil.
func NewRelay(decoder Decoder, logger *zap.Logger, observer Observer) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{decoder: decoder, logger: logger, observer: observer}
}

// Run reads body until EOF, forwarding each decoded chunk to sink, then writes exactly one
// terminal frame: done with suggestions on EOF, or an error frame if reading fails or ctx is
// cancelled. The returned error is the upstream or sink failure, for logging; the client has
// already been told through the terminal frame when possible.
func (r *Relay) Run(ctx context.Context, body io.Reader, sink FrameSink, suggestions []models.Suggestion) (Summary, error) {
	var (
		sum  Summary
		text strings.Builder
		buf  LineBuffer
		p    = make([]byte, readSize)
	)

	emit := func(line string) error {
		chunk, err := r.decoder.Decode(line)
		if err != nil {
			sum.Skipped++
			r.logger.Debug("skipping malformed stream line", zap.Error(err), zap.Int("len", len(line)))
			if r.observer != nil {
				r.observer.ObserveSkippedLine()
			}
			return nil
		}
		if chunk == "" {
			return nil
		}
		if err := r.write(sink, models.ChunkFrame(chunk), KindChunk); err != nil {
			return err
		}
		sum.Chunks++
		sum.Bytes += len(chunk)
		text.WriteString(chunk)
		return nil
	}

	fail := func(cause error) (Summary, error) {
		sum.Text = text.String()
		sum.Failed = true
		if err := r.write(sink, models.ErrorFrame(StreamErrorMessage), KindError); err != nil {
			return sum, errors.Join(cause, err)
		}
		return sum, cause
	}

	for {
		if err := ctx.Err(); err != nil {
			return fail(fmt.Errorf("stream cancelled: %w", err))
		}
		n, readErr := body.Read(p)
		if n > 0 {
			for _, line := range buf.Feed(p[:n]) {
				if err := emit(line); err != nil {
					sum.Text = text.String()
					return sum, fmt.Errorf("write frame: %w", err)
				}
			}
		}
		if readErr == nil {
			continue
		}
		if !errors.Is(readErr, io.EOF) {
			return fail(fmt.Errorf("read upstream: %w", readErr))
		}
		break
	}

	if rest := buf.Flush(); strings.TrimSpace(rest) != "" {
		if err := emit(rest); err != nil {
			sum.Text = text.String()
			return sum, fmt.Errorf("write frame: %w", err)
		}
	}
	sum.Text = text.String()
	if err := r.write(sink, models.DoneFrame(suggestions), KindDone); err != nil {
		return sum, fmt.Errorf("write frame: %w", err)
	}
	return sum, nil
}

func (r *Relay) write(sink FrameSink, frame models.StreamFrame, kind string) error {
	if err := sink.WriteFrame(frame); err != nil {
		return err
	}
	if r.observer != nil {
		r.observer.ObserveFrame(kind)
	}
	return nil
}
