package model

import (
	"errors"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	ErrShape     = errors.New("input does not match model shape")
	ErrNoTap     = errors.New("model exposes no feature tap")
	ErrInference = errors.New("inference failed")
)

// InitializeRuntime loads the ONNX Runtime shared library once per process.
// An empty path keeps the library's default lookup.
func InitializeRuntime(libraryPath string) error {
	if ort.IsInitialized() {
		return nil
	}
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}
	return nil
}

func DestroyRuntime() error {
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

// Session is a frozen graph with preallocated I/O tensors. Run is not
// reentrant, so every call holds mu for the copy-in, run, copy-out sequence.
type Session struct {
	Metadata Metadata

	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	tap     *ort.Tensor[float32]
}

// NewSession opens modelPath with the tensors described by meta. When meta
// has a feature tap, the tap output is bound next to the class output so one
// run fills both.
func NewSession(modelPath string, meta Metadata) (*Session, error) {
	s := &Session{Metadata: meta}

	var err error
	s.input, err = ort.NewEmptyTensor[float32](ort.NewShape(meta.InputShape...))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	s.output, err = ort.NewEmptyTensor[float32](ort.NewShape(meta.OutputShape...))
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	outputNames := []string{meta.OutputName}
	outputs := []ort.ArbitraryTensor{s.output}
	if meta.FeatureTap != nil {
		s.tap, err = ort.NewEmptyTensor[float32](ort.NewShape(meta.FeatureTap.Shape...))
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to create %s tensor: %w", meta.FeatureTap.Layer, err)
		}
		outputNames = append(outputNames, meta.FeatureTap.OutputName)
		outputs = append(outputs, s.tap)
	}

	s.session, err = ort.NewAdvancedSession(modelPath,
		[]string{meta.InputName}, outputNames,
		[]ort.ArbitraryTensor{s.input}, outputs,
		nil)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create ONNX session for %s: %w", modelPath, err)
	}

	return s, nil
}

// Predict returns a copy of the output distribution for one input tensor.
func (s *Session) Predict(input []float32) ([]float32, error) {
	probs, _, err := s.Run(input)
	return probs, err
}

// Features runs the graph and returns a copy of the feature tap output.
func (s *Session) Features(input []float32) (FeatureMap, error) {
	if s.tap == nil {
		return FeatureMap{}, ErrNoTap
	}
	_, fm, err := s.Run(input)
	return fm, err
}

// Run returns the output distribution and, when the model has a tap, the
// feature map from the same inference. Without a tap the map is empty.
func (s *Session) Run(input []float32) ([]float32, FeatureMap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.run(input); err != nil {
		return nil, FeatureMap{}, err
	}

	out := s.output.GetData()
	probs := make([]float32, len(out))
	copy(probs, out)

	if s.tap == nil {
		return probs, FeatureMap{}, nil
	}
	shape := s.Metadata.FeatureTap.Shape
	fm := FeatureMap{
		Height:   int(shape[1]),
		Width:    int(shape[2]),
		Channels: int(shape[3]),
		Data:     make([]float32, numElements(shape)),
	}
	copy(fm.Data, s.tap.GetData())
	return probs, fm, nil
}

func (s *Session) run(input []float32) error {
	if want := numElements(s.Metadata.InputShape); len(input) != want {
		return fmt.Errorf("%w: expected %d values, got %d", ErrShape, want, len(input))
	}

	copy(s.input.GetData(), input)

	if err := s.session.Run(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInference, s.Metadata.Name, err)
	}
	return nil
}

func (s *Session) Close() {
	if s.input != nil {
		s.input.Destroy()
	}
	if s.output != nil {
		s.output.Destroy()
	}
	if s.tap != nil {
		s.tap.Destroy()
	}
	if s.session != nil {
		s.session.Destroy()
	}
}
