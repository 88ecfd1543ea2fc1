package ingest

import (
	"log/slog"
	"time"

	"github.com/doodlesbykumbi/scanstore/pkg/config"
	"github.com/doodlesbykumbi/scanstore/pkg/logging"
	"github.com/doodlesbykumbi/scanstore/pkg/model"
	"github.com/doodlesbykumbi/scanstore/pkg/report/parser"
	"github.com/doodlesbykumbi/scanstore/pkg/store"
)

// Service stores security reports.
type Service struct {
	stores *store.Stores
	cfg    *config.ScanstoreConfig
	logger *slog.Logger
}

// NewService creates an ingest service. A nil cfg uses config.Get().
func NewService(stores *store.Stores, cfg *config.ScanstoreConfig, logger *slog.Logger) *Service {
	if cfg == nil {
		cfg = config.Get()
	}
	return &Service{
		stores: stores,
		cfg:    cfg,
		logger: logging.Component(logger, "ingest"),
	}
}

func (s *Service) signaturesEnabled() bool {
	return s.cfg.FeatureAvailable(config.FeatureFindingSignatures)
}

func (s *Service) parseOptions(pipeline *model.Pipeline) parser.Options {
	opts := parser.Options{
		Namespace:         s.cfg.Namespace(),
		SignaturesEnabled: s.signaturesEnabled(),
	}
	if pipeline != nil {
		opts.ProjectID = pipeline.ProjectID
		opts.PipelineID = pipeline.ID
		opts.CreatedAt = pipeline.CreatedAt
	}
	if opts.CreatedAt.IsZero() {
		opts.CreatedAt = time.Now().UTC()
	}
	return opts
}
