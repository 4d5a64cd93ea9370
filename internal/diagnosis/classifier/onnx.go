package classifier

import (
	"fmt"
	"log/slog"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis/encoder"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis/schema"
)

// session runs one row through the model and returns per-label
// probabilities in label order.
type session interface {
	Predict(features []float32) ([]float32, error)
	Destroy() error
}

// Model is the Adapter backed by an ONNX export of the trained classifier.
type Model struct {
	schema  *schema.Schema
	labels  []string
	session session
	logger  *slog.Logger
}

func newModel(s *schema.Schema, labels []string, sess session) *Model {
	return &Model{
		schema:  s,
		labels:  labels,
		session: sess,
		logger:  slog.Default().With("component", "classifier"),
	}
}

func (m *Model) Available() bool { return true }
func (m *Model) Schema() *schema.Schema { return m.schema }

// Labels returns the class labels in model output order.
func (m *Model) Labels() []string {
	out := make([]string, len(m.labels))
	copy(out, m.labels)
	return out
}

func (m *Model) Infer(v encoder.Vector) ([]diagnosis.Candidate, error) {
	if v.SchemaVersion != m.schema.Version() || len(v.Values) != m.schema.Len() {
		return nil, fmt.Errorf("%w: vector %s/%d, model %s/%d",
			ErrSchemaMismatch, v.SchemaVersion, len(v.Values), m.schema.Version(), m.schema.Len())
	}
	probs, err := m.session.Predict(v.Values)
	if err != nil {
		return nil, fmt.Errorf("running classifier: %w", err)
	}
	if len(probs) != len(m.labels) {
		return nil, fmt.Errorf("classifier returned %d probabilities for %d labels", len(probs), len(m.labels))
	}
	out := make([]diagnosis.Candidate, len(probs))
	for i, p := range probs {
		out[i] = diagnosis.Candidate{
			Disease: m.labels[i],
			Score:   toScore(p),
			Source:  diagnosis.SourceClassifier,
		}
	}
	return out, nil
}

func (m *Model) Close() error {
	return m.session.Destroy()
}

// ortSession is a session on top of onnxruntime. Tensors are allocated per
// call; the underlying session is safe for concurrent Run calls.
type ortSession struct {
	session    *ort.DynamicAdvancedSession
	numColumns int
	numLabels  int
}

var ortInit sync.Mutex

// openORT initializes the runtime environment if needed and opens the
// model. The environment is process-wide and is torn down by Close.
func openORT(modelPath, libPath, inputName, outputName string, numColumns, numLabels int) (*ortSession, error) {
	ortInit.Lock()
	defer ortInit.Unlock()
	if !ort.IsInitialized() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initializing onnxruntime: %w", err)
		}
	}
	sess, err := ort.NewDynamicAdvancedSession(modelPath, []string{inputName}, []string{outputName}, nil)
	if err != nil {
		return nil, fmt.Errorf("opening model %s: %w", modelPath, err)
	}
	return &ortSession{session: sess, numColumns: numColumns, numLabels: numLabels}, nil
}

func (s *ortSession) Predict(features []float32) ([]float32, error) {
	input, err := ort.NewTensor(ort.NewShape(1, int64(s.numColumns)), features)
	if err != nil {
		return nil, fmt.Errorf("creating input tensor: %w", err)
	}
	defer input.Destroy()

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(s.numLabels)))
	if err != nil {
		return nil, fmt.Errorf("creating output tensor: %w", err)
	}
	defer output.Destroy()

	if err := s.session.Run([]ort.Value{input}, []ort.Value{output}); err != nil {
		return nil, err
	}
	data := output.GetData()
	probs := make([]float32, len(data))
	copy(probs, data)
	return probs, nil
}

func (s *ortSession) Destroy() error {
	err := s.session.Destroy()
	ortInit.Lock()
	defer ortInit.Unlock()
	if ort.IsInitialized() {
		if derr := ort.DestroyEnvironment(); derr != nil && err == nil {
			err = derr
		}
	}
	return err
}
