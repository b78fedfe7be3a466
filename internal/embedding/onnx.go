//go:build onnx

package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	ort "github.com/yalue/onnxruntime_go"
	"github.com/sirupsen/logrus"
)

// bertTokenizer handles BERT-style WordPiece tokenization, just enough
// to feed a MiniLM-family sentence-embedding model.
type bertTokenizer struct {
	vocab     map[string]int
	clsToken  int
	sepToken  int
	unkToken  int
}

// onnxEmbedder wraps a small transformer sentence-embedding model
// loaded once via ONNX Runtime, satisfying the "loaded once per
// process" contract for the Embedder interface.
type onnxEmbedder struct {
	session    *ort.DynamicAdvancedSession
	tokenizer  *bertTokenizer
	dimensions int
	modelPath  string
}

// newONNXEmbedder loads a MiniLM-family ONNX model and its WordPiece
// tokenizer. It is only compiled into -tags onnx builds.
func newONNXEmbedder(modelPath, tokenizerPath string) (Embedder, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("embedding: onnx model path is required")
	}
	if tokenizerPath == "" {
		return nil, fmt.Errorf("embedding: onnx tokenizer path is required")
	}

	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("embedding: initialize onnx runtime: %w", err)
	}

	tokenizer, err := loadBERTTokenizer(tokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("embedding: load tokenizer: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("embedding: create onnx session: %w", err)
	}

	logrus.WithField("model", modelPath).Info("onnx embedder loaded")

	return &onnxEmbedder{session: session, tokenizer: tokenizer, dimensions: Dims, modelPath: modelPath}, nil
}

const maxSeqLen = 128

func (e *onnxEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	tokens := e.tokenizer.tokenize(text)

	inputIDs := make([]int64, maxSeqLen)
	attentionMask := make([]int64, maxSeqLen)
	tokenTypeIDs := make([]int64, maxSeqLen)

	inputIDs[0] = int64(e.tokenizer.clsToken)
	attentionMask[0] = 1

	tokenLen := len(tokens)
	if tokenLen > maxSeqLen-2 {
		tokenLen = maxSeqLen - 2
	}
	for i := 0; i < tokenLen; i++ {
		inputIDs[i+1] = tokens[i]
		attentionMask[i+1] = 1
	}
	endPos := tokenLen + 1
	inputIDs[endPos] = int64(e.tokenizer.sepToken)
	attentionMask[endPos] = 1

	shape := ort.NewShape(1, int64(maxSeqLen))
	inputIDsTensor, err := ort.NewTensor(shape, inputIDs)
	if err != nil {
		return nil, fmt.Errorf("embedding: input_ids tensor: %w", err)
	}
	defer inputIDsTensor.Destroy()

	attentionMaskTensor, err := ort.NewTensor(shape, attentionMask)
	if err != nil {
		return nil, fmt.Errorf("embedding: attention_mask tensor: %w", err)
	}
	defer attentionMaskTensor.Destroy()

	tokenTypeIDsTensor, err := ort.NewTensor(shape, tokenTypeIDs)
	if err != nil {
		return nil, fmt.Errorf("embedding: token_type_ids tensor: %w", err)
	}
	defer tokenTypeIDsTensor.Destroy()

	inputTensors := []ort.Value{inputIDsTensor, attentionMaskTensor, tokenTypeIDsTensor}
	outputTensors := []ort.Value{nil}
	if err := e.session.Run(inputTensors, outputTensors); err != nil {
		return nil, fmt.Errorf("embedding: onnx inference: %w", err)
	}
	defer func() {
		for _, out := range outputTensors {
			if out != nil {
				out.Destroy()
			}
		}
	}()

	outputTensor, ok := outputTensors[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("embedding: unexpected output tensor type")
	}

	outputData := outputTensor.GetData()
	outputShape := outputTensor.GetShape()

	var vec []float32
	switch len(outputShape) {
	case 2:
		if len(outputData) < e.dimensions {
			return nil, fmt.Errorf("embedding: output dimension mismatch: got %d, want %d", len(outputData), e.dimensions)
		}
		vec = append([]float32(nil), outputData[:e.dimensions]...)
	case 3:
		seqLen := int(outputShape[1])
		hidden := int(outputShape[2])
		if hidden != e.dimensions {
			return nil, fmt.Errorf("embedding: hidden size mismatch: got %d, want %d", hidden, e.dimensions)
		}
		vec = make([]float32, e.dimensions)
		var attended float32
		for i := 0; i < seqLen; i++ {
			if attentionMask[i] == 0 {
				continue
			}
			attended++
			offset := i * hidden
			for j := 0; j < hidden; j++ {
				vec[j] += outputData[offset+j]
			}
		}
		if attended > 0 {
			for j := range vec {
				vec[j] /= attended
			}
		}
	default:
		return nil, fmt.Errorf("embedding: unexpected output shape %v", outputShape)
	}

	return normalize(vec), nil
}

func (e *onnxEmbedder) Dimensions() int { return e.dimensions }

// ModelVersion identifies the loaded model by path. Swapping model
// files (even keeping the same filename conventions) changes the
// vectors produced, so callers that care about cross-file drift should
// version their model paths.
func (e *onnxEmbedder) ModelVersion() string { return "onnx:" + e.modelPath }

func (e *onnxEmbedder) Close() error {
	if e.session == nil {
		return nil
	}
	return e.session.Destroy()
}

func loadBERTTokenizer(path string) (*bertTokenizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var tokenizerData struct {
		Model struct {
			Vocab map[string]int `json:"vocab"`
		} `json:"model"`
	}
	if err := json.Unmarshal(data, &tokenizerData); err != nil {
		return nil, err
	}

	return &bertTokenizer{
		vocab:    tokenizerData.Model.Vocab,
		clsToken: 101,
		sepToken: 102,
		unkToken: 100,
	}, nil
}

func (t *bertTokenizer) tokenize(text string) []int64 {
	words := strings.Fields(strings.ToLower(text))

	var tokens []int64
	for _, word := range words {
		word = strings.Trim(word, ".,!?;:\"'")
		if id, ok := t.vocab[word]; ok {
			tokens = append(tokens, int64(id))
			continue
		}
		for _, sub := range t.wordPiece(word) {
			if id, ok := t.vocab[sub]; ok {
				tokens = append(tokens, int64(id))
			} else {
				tokens = append(tokens, int64(t.unkToken))
			}
		}
	}
	return tokens
}

func (t *bertTokenizer) wordPiece(word string) []string {
	if len(word) == 0 {
		return nil
	}

	var subwords []string
	start := 0
	for start < len(word) {
		end := len(word)
		found := false
		for end > start {
			substr := word[start:end]
			if start > 0 {
				substr = "##" + substr
			}
			if _, ok := t.vocab[substr]; ok {
				subwords = append(subwords, substr)
				start = end
				found = true
				break
			}
			end--
		}
		if !found {
			subwords = append(subwords, "[UNK]")
			start++
		}
	}
	return subwords
}
