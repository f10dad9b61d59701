//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/hyperjump/faqbot/pkg/utils"
)

var (
	ortOnce    sync.Once
	ortInitErr error
)

// initRuntime initializes the process-wide onnxruntime environment exactly once.
func initRuntime(sharedLibraryPath string) error {
	ortOnce.Do(func() {
		if sharedLibraryPath != "" {
			ort.SetSharedLibraryPath(sharedLibraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			ortInitErr = fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	})
	return ortInitErr
}

// ONNXOptions configures an ONNXEmbedder.
type ONNXOptions struct {
	ModelPath         string
	SharedLibraryPath string
	OutputName        string
	Dimensions        int
	MaxTokens         int
}

// ONNXEmbedder runs a BERT-style sentence encoder with ONNX Runtime. The model output is the
// per-token hidden state; the embedding is its attention-masked mean, L2 normalized.
// One ONNXEmbedder owns one session; callers share it through a Pool.
type ONNXEmbedder struct {
	session    *ort.AdvancedSession
	tokenizer  Tokenizer
	dimensions int
	maxTokens  int
	// Pre-allocated tensors for Run(); we update input data and read output.
	inputIDsTensor      *ort.Tensor[int64]
	attentionMaskTensor *ort.Tensor[int64]
	tokenTypeIDsTensor  *ort.Tensor[int64]
	outputTensor        *ort.Tensor[float32]
	mu                  sync.Mutex
}

// NewONNXEmbedder loads the model and allocates its tensors.
func NewONNXEmbedder(opts ONNXOptions, tokenizer Tokenizer) (*ONNXEmbedder, error) {
	if err := initRuntime(opts.SharedLibraryPath); err != nil {
		return nil, err
	}
	if opts.OutputName == "" {
		opts.OutputName = "last_hidden_state"
	}
	seq := int64(opts.MaxTokens)
	inputShape := ort.NewShape(1, seq)

	e := &ONNXEmbedder{
		tokenizer:  tokenizer,
		dimensions: opts.Dimensions,
		maxTokens:  opts.MaxTokens,
	}
	var err error
	if e.inputIDsTensor, err = ort.NewTensor(inputShape, make([]int64, seq)); err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	if e.attentionMaskTensor, err = ort.NewTensor(inputShape, make([]int64, seq)); err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	if e.tokenTypeIDsTensor, err = ort.NewTensor(inputShape, make([]int64, seq)); err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	outputShape := ort.NewShape(1, seq, int64(opts.Dimensions))
	if e.outputTensor, err = ort.NewEmptyTensor[float32](outputShape); err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	e.session, err = ort.NewAdvancedSession(
		opts.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{opts.OutputName},
		[]ort.ArbitraryTensor{e.inputIDsTensor, e.attentionMaskTensor, e.tokenTypeIDsTensor},
		[]ort.ArbitraryTensor{e.outputTensor},
		nil,
	)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	return e, nil
}

// Embed returns the unit-length sentence embedding for text.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, fmt.Errorf("onnx embedder is closed")
	}

	inputIDs, attentionMask, tokenTypeIDs := e.tokenizer.Tokenize(text, e.maxTokens)
	copy(e.inputIDsTensor.GetData(), inputIDs)
	copy(e.attentionMaskTensor.GetData(), attentionMask)
	copy(e.tokenTypeIDsTensor.GetData(), tokenTypeIDs)

	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	embedding := meanPool(e.outputTensor.GetData(), attentionMask, e.dimensions)
	utils.NormalizeL2(embedding)
	return embedding, nil
}

// EmbedBatch calls Embed for each text.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, e.Embed)
}

// Dimensions returns the embedding dimension.
func (e *ONNXEmbedder) Dimensions() int {
	return e.dimensions
}

// Close destroys the session and tensors.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	if e.inputIDsTensor != nil {
		_ = e.inputIDsTensor.Destroy()
		e.inputIDsTensor = nil
	}
	if e.attentionMaskTensor != nil {
		_ = e.attentionMaskTensor.Destroy()
		e.attentionMaskTensor = nil
	}
	if e.tokenTypeIDsTensor != nil {
		_ = e.tokenTypeIDsTensor.Destroy()
		e.tokenTypeIDsTensor = nil
	}
	if e.outputTensor != nil {
		_ = e.outputTensor.Destroy()
		e.outputTensor = nil
	}
	return err
}
