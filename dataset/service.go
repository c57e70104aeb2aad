package dataset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vegasq/tabq/engine"
	"github.com/vegasq/tabq/reader"
)

// Default preview sizes
const (
	DefaultPreviewLimit     = 100
	DefaultEditPreviewLimit = 50
)

// Service runs the engine against stored datasets.
type Service struct {
	store            Store
	engine           *engine.Engine
	logger           *zap.Logger
	previewLimit     int
	editPreviewLimit int
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPreviewLimits overrides the row limits of Preview (preview) and of
// PreviewTransformations and PreviewMeasures (edit). Non-positive values keep
// the defaults.
func WithPreviewLimits(preview, edit int) ServiceOption {
	return func(s *Service) {
		if preview > 0 {
			s.previewLimit = preview
		}
		if edit > 0 {
			s.editPreviewLimit = edit
		}
	}
}

// NewService creates a service over store. A nil engine uses engine.New().
func NewService(store Store, eng *engine.Engine, opts ...ServiceOption) *Service {
	if eng == nil {
		eng = engine.New()
	}
	s := &Service{
		store:            store,
		engine:           eng,
		logger:           zap.NewNop(),
		previewLimit:     DefaultPreviewLimit,
		editPreviewLimit: DefaultEditPreviewLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register records a new dataset for the file or glob pattern at path.
func (s *Service) Register(ctx context.Context, name, path string) (*Dataset, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("dataset name is required")
	}
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("dataset path is required")
	}
	if !reader.IsGlob(path) {
		if _, err := reader.DetectFormat(path); err != nil {
			return nil, err
		}
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("dataset file: %w", err)
		}
	}

	ds := &Dataset{
		ID:              uuid.NewString(),
		Name:            name,
		FilePath:        path,
		Transformations: "[]",
		Measures:        "[]",
		UploadedAt:      time.Now().UTC(),
	}
	if err := s.store.Create(ctx, ds); err != nil {
		return nil, fmt.Errorf("failed to register dataset: %w", err)
	}
	s.logger.Info("dataset registered",
		zap.String("dataset_id", ds.ID),
		zap.String("name", name),
		zap.String("path", path),
	)
	return ds, nil
}

// List returns the stored datasets.
func (s *Service) List(ctx context.Context) ([]*Dataset, error) {
	return s.store.List(ctx)
}

// Get returns one stored dataset.
func (s *Service) Get(ctx context.Context, id string) (*Dataset, error) {
	return s.store.Get(ctx, id)
}

// Query runs the full pipeline with the dataset's saved transformations and
// measures.
func (s *Service) Query(ctx context.Context, id string, req engine.QueryRequest) (*engine.Result, error) {
	ds, steps, measures, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.engine.Execute(ctx, ds.FilePath, req, steps, measures)
}

// Preview returns the first rows after the saved transformations and
// measures. limit <= 0 uses the preview default.
func (s *Service) Preview(ctx context.Context, id string, limit int) (*engine.Result, error) {
	ds, steps, measures, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.previewLimit
	}
	return s.engine.Preview(ctx, ds.FilePath, limit, steps, measures)
}

// PreviewTransformations previews unsaved steps together with the saved
// measures.
func (s *Service) PreviewTransformations(ctx context.Context, id string, steps []engine.TransformationStep) (*engine.Result, error) {
	ds, _, measures, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.engine.Preview(ctx, ds.FilePath, s.editPreviewLimit, steps, measures)
}

// PreviewMeasures previews unsaved measures on top of the saved
// transformations.
func (s *Service) PreviewMeasures(ctx context.Context, id string, measures []engine.MeasureDefinition) (*engine.Result, error) {
	ds, steps, _, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.engine.Preview(ctx, ds.FilePath, s.editPreviewLimit, steps, measures)
}

// SaveTransformations replaces the dataset's saved steps.
func (s *Service) SaveTransformations(ctx context.Context, id string, steps []engine.TransformationStep) error {
	text, err := engine.EncodeSteps(steps)
	if err != nil {
		return fmt.Errorf("failed to encode transformations: %w", err)
	}
	if err := s.store.UpdateTransformations(ctx, id, text); err != nil {
		return err
	}
	s.logger.Info("transformations saved", zap.String("dataset_id", id), zap.Int("steps", len(steps)))
	return nil
}

// SaveMeasures replaces the dataset's saved measures.
func (s *Service) SaveMeasures(ctx context.Context, id string, measures []engine.MeasureDefinition) error {
	text, err := engine.EncodeMeasures(measures)
	if err != nil {
		return fmt.Errorf("failed to encode measures: %w", err)
	}
	if err := s.store.UpdateMeasures(ctx, id, text); err != nil {
		return err
	}
	s.logger.Info("measures saved", zap.String("dataset_id", id), zap.Int("measures", len(measures)))
	return nil
}

// load fetches a dataset and decodes its saved definitions. Malformed saved
// JSON fails with engine.ErrFatal.
func (s *Service) load(ctx context.Context, id string) (*Dataset, []engine.TransformationStep, []engine.MeasureDefinition, error) {
	ds, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}
	steps, err := engine.DecodeSteps(ds.Transformations)
	if err != nil {
		s.logger.Error("stored transformations are malformed", zap.String("dataset_id", id), zap.Error(err))
		return nil, nil, nil, err
	}
	measures, err := engine.DecodeMeasures(ds.Measures)
	if err != nil {
		s.logger.Error("stored measures are malformed", zap.String("dataset_id", id), zap.Error(err))
		return nil, nil, nil, err
	}
	return ds, steps, measures, nil
}
