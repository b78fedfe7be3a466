//go:build !onnx

package embedding

import "errors"

// newONNXEmbedder is the no-op fallback used when the binary is built
// without the onnx tag. Build with -tags onnx to get the real
// transformer-backed implementation in onnx.go.
func newONNXEmbedder(modelPath, tokenizerPath string) (Embedder, error) {
	return nil, errors.New("embedding: built without onnx support; rebuild with -tags onnx")
}
