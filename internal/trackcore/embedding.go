package trackcore

import (
	"fmt"
	"image"
	"log/slog"
	"math"

	ort "github.com/yalue/onnxruntime_go"
)

// EmbeddingBackendConfig describes one ONNX embedding model and the object
// types that should route to it. Several type tags may share one backend.
type EmbeddingBackendConfig struct {
	Name        string
	ModelPath   string
	InputLayer  string
	OutputLayer string
	InputW      int
	InputH      int
	Dim         int
	ObjectTypes []ObjectType
}

// embeddingBackend wraps one loaded ONNX session producing fixed-dimension
// embeddings for region crops. Grounded on the teacher's Embedder, relaxed
// from face-only 112x112/512-dim ArcFace constants to per-config values.
type embeddingBackend struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	inputW       int
	inputH       int
	dim          int
}

func newEmbeddingBackend(cfg EmbeddingBackendConfig) (*embeddingBackend, error) {
	inputShape := ort.NewShape(1, 3, int64(cfg.InputH), int64(cfg.InputW))
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	outputShape := ort.NewShape(1, int64(cfg.Dim))
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(cfg.ModelPath,
		[]string{cfg.InputLayer},
		[]string{cfg.OutputLayer},
		[]ort.Value{inputTensor},
		[]ort.Value{outputTensor},
		nil,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("create embedding session %q: %w", cfg.Name, err)
	}

	return &embeddingBackend{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		inputW:       cfg.InputW,
		inputH:       cfg.InputH,
		dim:          cfg.Dim,
	}, nil
}

func (b *embeddingBackend) extract(crop image.Image) ([]float64, error) {
	chw := imageToFloat32CHW(crop, b.inputW, b.inputH, [3]float32{127.5, 127.5, 127.5}, [3]float32{127.5, 127.5, 127.5})

	inputSlice := b.inputTensor.GetData()
	copy(inputSlice, chw)

	if err := b.session.Run(); err != nil {
		return nil, fmt.Errorf("run embedding: %w", err)
	}

	out := b.outputTensor.GetData()
	v := make([]float64, b.dim)
	for i, x := range out {
		v[i] = float64(x)
	}
	l2Normalize(v)
	return v, nil
}

func (b *embeddingBackend) close() {
	if b.session != nil {
		b.session.Destroy()
	}
	if b.inputTensor != nil {
		b.inputTensor.Destroy()
	}
	if b.outputTensor != nil {
		b.outputTensor.Destroy()
	}
}

func l2Normalize(v []float64) {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	norm := math.Sqrt(sum)
	if norm > 0 {
		for i := range v {
			v[i] /= norm
		}
	}
}

// EmbeddingExtractor routes object types to shared ONNX backends. A type
// with no registered backend silently falls back to empty embeddings; the
// fallback is reported once via the logger at construction time, never per
// frame (§4.3, §7).
type EmbeddingExtractor struct {
	byType map[ObjectType]*embeddingBackend
	// closers holds each distinct backend exactly once so Close doesn't
	// double-destroy a backend shared by several types.
	closers []*embeddingBackend
}

// NewEmbeddingExtractor builds one backend per config entry and maps every
// listed object type to it. A config whose backend fails to initialize is
// skipped (logged once); the types it would have served simply have no
// backend, matching the spec's "never fatal" initialization policy.
func NewEmbeddingExtractor(cfgs []EmbeddingBackendConfig) *EmbeddingExtractor {
	ext := &EmbeddingExtractor{byType: make(map[ObjectType]*embeddingBackend)}

	for _, cfg := range cfgs {
		backend, err := newEmbeddingBackend(cfg)
		if err != nil {
			slog.Error("embedding backend init failed, affected types fall back to empty embeddings",
				"backend", cfg.Name, "types", cfg.ObjectTypes, "err", err)
			continue
		}
		ext.closers = append(ext.closers, backend)
		for _, t := range cfg.ObjectTypes {
			ext.byType[t] = backend
		}
	}

	return ext
}

// Extract produces the embedding for a region of the given type cropped
// from frame. Returns an empty vector (no error) when no backend is
// registered for t, or the crop could not be cut from frame.
func (e *EmbeddingExtractor) Extract(frame image.Image, brect Rect, t ObjectType) ([]float64, float64, error) {
	backend, ok := e.byType[t]
	if !ok || frame == nil || brect.Empty() {
		return nil, 0, nil
	}

	crop := cropRegion(frame, brect)
	if crop == nil {
		return nil, 0, nil
	}

	v, err := backend.extract(crop)
	if err != nil {
		return nil, 0, fmt.Errorf("extract embedding for type %q: %w", t, err)
	}
	return v, dot(v, v), nil
}

// Close releases every distinct backend's ONNX resources.
func (e *EmbeddingExtractor) Close() {
	for _, b := range e.closers {
		b.close()
	}
}
