package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Praharsha2005/Disease-Classification-using-AI/internal/config"
	"github.com/Praharsha2005/Disease-Classification-using-AI/internal/diagnosis"
	"github.com/Praharsha2005/Disease-Classification-using-AI/internal/gradcam"
	"github.com/Praharsha2005/Disease-Classification-using-AI/internal/handlers"
	"github.com/Praharsha2005/Disease-Classification-using-AI/internal/model"
	"github.com/Praharsha2005/Disease-Classification-using-AI/internal/narrative"
	"github.com/Praharsha2005/Disease-Classification-using-AI/internal/report"
)

// App owns the loaded models for the lifetime of the process. Everything a
// request needs is built once here and injected downward.
type App struct {
	config  *config.Config
	log     *slog.Logger
	gate    *model.Session
	disease *model.Session
	labels  *model.LabelTable

	orchestrator *diagnosis.Orchestrator
	reports      *report.Renderer
}

func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	start := time.Now()
	if err := model.InitializeRuntime(cfg.ORTLibraryPath); err != nil {
		return nil, err
	}

	a := &App{config: cfg, log: log}

	var head []model.Layer
	var g errgroup.Group
	g.Go(func() (err error) {
		a.gate, _, err = loadSession(cfg.GateModelPath, cfg.GateMetadataPath)
		return err
	})
	g.Go(func() error {
		s, meta, err := loadSession(cfg.DiseaseModelPath, cfg.DiseaseMetadataPath)
		if err != nil {
			return err
		}
		a.disease = s
		head, err = model.LoadHead(meta, filepath.Dir(cfg.DiseaseMetadataPath))
		return err
	})
	g.Go(func() (err error) {
		a.labels, err = model.LoadLabels(cfg.LabelsPath)
		return err
	})
	if err := g.Wait(); err != nil {
		a.Close()
		return nil, err
	}

	if a.disease.Metadata.Classes() != a.labels.Len() {
		a.Close()
		return nil, fmt.Errorf("disease model has %d outputs but label table %s has %d classes",
			a.disease.Metadata.Classes(), a.labels.Version, a.labels.Len())
	}

	gh, err := gradcam.NewHead(head)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.orchestrator = diagnosis.NewOrchestrator(
		diagnosis.NewDomainGate(a.gate, a.gate.Metadata.Scale()),
		diagnosis.NewDiseaseClassifier(a.disease, a.labels),
		gradcam.NewEngine(a.disease, gh),
		diagnosis.WithNarrator(a.narrator()),
		diagnosis.WithLogger(log),
	)
	a.reports = report.NewRenderer(nil)

	if cfg.GroqAPIKey == "" {
		log.Warn("narrative.disabled", "reason", "GROQ_API_KEY not set")
	}
	log.Info("app.ready",
		"gate", a.gate.Metadata.Name,
		"disease", a.disease.Metadata.Name,
		"labels", a.labels.Version,
		"classes", a.labels.Classes,
		"elapsed", time.Since(start).String())
	return a, nil
}

func loadSession(modelPath, metadataPath string) (*model.Session, model.Metadata, error) {
	meta, err := model.LoadMetadata(metadataPath)
	if err != nil {
		return nil, model.Metadata{}, err
	}
	s, err := model.NewSession(modelPath, meta)
	if err != nil {
		return nil, model.Metadata{}, err
	}
	return s, meta, nil
}

func (a *App) narrator() *narrative.Client {
	return narrative.New(narrative.Config{
		APIKey:   a.config.GroqAPIKey,
		Model:    a.config.GroqModel,
		BaseURL:  a.config.GroqBaseURL,
		Timeout:  a.config.NarrativeTimeout,
		Normal:   a.labels.Canonical(a.labels.Normal),
		Diseases: a.labels.Diseases(),
	})
}

func (a *App) Labels() *model.LabelTable {
	return a.labels
}

func (a *App) Diagnose(ctx context.Context, req diagnosis.Request) (*diagnosis.Record, error) {
	return a.orchestrator.Run(ctx, req)
}

func (a *App) Handler() http.Handler {
	h := handlers.NewHandler(a.orchestrator, a.reports, a.config.MaxUploadBytes(), a.log)
	return handlers.NewRouter(h)
}

// Close releases both sessions and the runtime. Safe on a partially built App.
func (a *App) Close() error {
	if a.gate != nil {
		a.gate.Close()
	}
	if a.disease != nil {
		a.disease.Close()
	}
	return model.DestroyRuntime()
}
