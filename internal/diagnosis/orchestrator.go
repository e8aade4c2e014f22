package diagnosis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Praharsha2005/Disease-Classification-using-AI/internal/gradcam"
	"github.com/Praharsha2005/Disease-Classification-using-AI/internal/imaging"
	"github.com/Praharsha2005/Disease-Classification-using-AI/internal/logger"
	"github.com/Praharsha2005/Disease-Classification-using-AI/internal/model"
)

// ConfidenceWarningThreshold is the rounded confidence below which a record
// carries an advisory. Inherited without a documented derivation.
const ConfidenceWarningThreshold = 60.0

const (
	ConfidenceWarning    = "Prediction confidence is low. Please consult a doctor for confirmation."
	NarrativeUnavailable = "AI response is unavailable right now. Please consult a doctor for detailed guidance."
)

type Stage string

const (
	StageDecoding    Stage = "decoding"
	StageDomainCheck Stage = "domain_check"
	StageClassifying Stage = "classifying"
	StageConfidence  Stage = "confidence_evaluation"
	StageExplanation Stage = "explanation"
	StageNarrative   Stage = "narrative"
	StageAssembled   Stage = "assembled"
)

// Explainer produces the heatmap overlay. ExplainFeatures reuses a feature
// map captured during classification; Explain runs the extractor itself.
type Explainer interface {
	Explain(input imaging.Tensor, display imaging.Display, classIndex int) (gradcam.Explanation, error)
	ExplainFeatures(fm model.FeatureMap, display imaging.Display, classIndex int) (gradcam.Explanation, error)
}

// Narrator produces the patient-facing text for a canonical label.
type Narrator interface {
	Narrate(ctx context.Context, disease string) (string, error)
}

type Request struct {
	Image   []byte
	Patient Patient
	// ExplainClass overrides the class the heatmap is computed for. Nil
	// explains the predicted class.
	ExplainClass *int
}

type Orchestrator struct {
	gate       *DomainGate
	classifier *DiseaseClassifier
	explainer  Explainer
	narrator   Narrator
	log        *slog.Logger
	now        func() time.Time
}

type Option func(*Orchestrator)

func WithNarrator(n Narrator) Option {
	return func(o *Orchestrator) { o.narrator = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func NewOrchestrator(gate *DomainGate, classifier *DiseaseClassifier, explainer Explainer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gate:       gate,
		classifier: classifier,
		explainer:  explainer,
		log:        logger.Discard(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run takes one image through the pipeline and returns either a complete
// record or a *Error, never both.
func (o *Orchestrator) Run(ctx context.Context, req Request) (rec *Record, err error) {
	id := uuid.NewString()
	log := o.log.With("request_id", id)
	stage := StageDecoding

	defer func() {
		if r := recover(); r != nil {
			log.Error("diagnosis.panic", "stage", stage, "panic", r)
			rec, err = nil, fail(stage, KindInference, fmt.Errorf("panic: %v", r))
		}
	}()

	labels := o.classifier.Labels()
	if req.ExplainClass != nil && (*req.ExplainClass < 0 || *req.ExplainClass >= labels.Len()) {
		return nil, fail(stage, KindInvalidRequest,
			fmt.Errorf("%w: %d not in [0,%d)", gradcam.ErrClassIndex, *req.ExplainClass, labels.Len()))
	}

	log.Debug("diagnosis.stage", "stage", stage, "bytes", len(req.Image))
	tensor, display, err := imaging.Normalize(req.Image)
	if err != nil {
		log.Info("diagnosis.rejected", "stage", stage, "error", err)
		return nil, fail(stage, KindDecode, fmt.Errorf("%w: %w", ErrUnreadable, err))
	}
	inputPNG, err := imaging.EncodePNG(display)
	if err != nil {
		return nil, fail(stage, KindInference, err)
	}

	stage = StageDomainCheck
	log.Debug("diagnosis.stage", "stage", stage)
	inDomain, err := o.gate.IsInDomain(tensor)
	if err != nil {
		log.Error("diagnosis.failed", "stage", stage, "error", err)
		return nil, fail(stage, KindInference, err)
	}
	if !inDomain {
		log.Info("diagnosis.rejected", "stage", stage)
		return nil, fail(stage, KindDomainRejected, ErrDomainRejected)
	}

	stage = StageClassifying
	log.Debug("diagnosis.stage", "stage", stage)
	cls, err := o.classifier.Classify(tensor)
	if err != nil {
		log.Error("diagnosis.failed", "stage", stage, "error", err)
		return nil, fail(stage, kindOf(err), err)
	}

	stage = StageConfidence
	confidence := RoundConfidence(cls.Confidence)
	log.Debug("diagnosis.stage", "stage", stage, "disease", cls.Disease, "confidence", confidence)

	rec = &Record{
		Patient:        req.Patient,
		RequestID:      id,
		Disease:        cls.Disease,
		Confidence:     confidence,
		InputImage:     inputPNG,
		PDFAvailable:   true,
		Classification: cls,
	}
	if confidence < ConfidenceWarningThreshold {
		rec.ConfidenceWarning = ConfidenceWarning
	}

	if !labels.IsNormal(cls.Disease) {
		stage = StageExplanation
		target := cls.Index
		if req.ExplainClass != nil {
			target = *req.ExplainClass
		}
		log.Debug("diagnosis.stage", "stage", stage, "class_index", target)

		var exp gradcam.Explanation
		if len(cls.Features.Data) > 0 {
			exp, err = o.explainer.ExplainFeatures(cls.Features, display, target)
		} else {
			exp, err = o.explainer.Explain(tensor, display, target)
		}
		if err != nil {
			log.Error("diagnosis.failed", "stage", stage, "error", err)
			return nil, fail(stage, kindOf(err), err)
		}
		rec.GradCAMImage = exp.Overlay
		rec.Heatmap = &exp.Heatmap
	}

	stage = StageNarrative
	log.Debug("diagnosis.stage", "stage", stage)
	rec.AIResponse = o.narrate(ctx, log, cls.Disease)

	stage = StageAssembled
	rec.Stamp(o.now())
	log.Info("diagnosis.assembled",
		"disease", rec.Disease,
		"confidence", rec.Confidence,
		"warning", rec.ConfidenceWarning != "",
		"gradcam", rec.GradCAMImage != nil)
	return rec, nil
}

func (o *Orchestrator) narrate(ctx context.Context, log *slog.Logger, disease string) string {
	if o.narrator == nil {
		return NarrativeUnavailable
	}
	text, err := o.narrator.Narrate(ctx, disease)
	if err != nil || text == "" {
		log.Warn("diagnosis.narrative_unavailable", "error", err)
		return NarrativeUnavailable
	}
	return text
}

func kindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, imaging.ErrShape):
		return KindShapeMismatch
	case errors.Is(err, gradcam.ErrClassIndex):
		return KindInvalidRequest
	default:
		return KindInference
	}
}
