package embedding

// NewFromConfig selects an Embedder by name. "stub" (the default) needs
// no model; "onnx" requires the binary to be built with the onnx build
// tag (see onnx.go) and is resolved by newONNXEmbedder, which is
// replaced by a non-nil implementation only in onnx-tagged builds.
func NewFromConfig(name, modelPath, tokenizerPath string) (Embedder, error) {
	switch name {
	case "", "stub":
		return NewStub(), nil
	case "onnx":
		return newONNXEmbedder(modelPath, tokenizerPath)
	default:
		return nil, &UnknownProviderError{Name: name}
	}
}

// UnknownProviderError is returned by NewFromConfig for an unrecognized
// provider name.
type UnknownProviderError struct {
	Name string
}

func (e *UnknownProviderError) Error() string {
	return "embedding: unknown provider " + e.Name
}
