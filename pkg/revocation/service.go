package revocation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/doodlesbykumbi/scanstore/pkg/audit"
	"github.com/doodlesbykumbi/scanstore/pkg/logging"
	"github.com/doodlesbykumbi/scanstore/pkg/metrics"
	"github.com/doodlesbykumbi/scanstore/pkg/model"
	"github.com/doodlesbykumbi/scanstore/pkg/report"
	"github.com/doodlesbykumbi/scanstore/pkg/store"
)

// Revoker is implemented by Client.
type Revoker interface {
	Revoke(ctx context.Context, tokens []Token) error
}

type Service struct {
	findings store.FindingsStore
	revoker  Revoker
	logger   *slog.Logger
}

func NewService(findings store.FindingsStore, revoker Revoker, logger *slog.Logger) *Service {
	return &Service{findings: findings, revoker: revoker, logger: logging.Component(logger, "revocation")}
}

// ScanSecrets revokes the secrets reported by the secret detection scans of
// pipeline. It returns the number of tokens sent.
func (s *Service) ScanSecrets(ctx context.Context, pipeline *model.Pipeline) (int, error) {
	findings, err := s.findings.PipelineFindings(ctx, pipeline.ID, report.ReportTypeSecretDetection)
	if err != nil {
		return 0, fmt.Errorf("failed to load secret detection findings of pipeline %d: %w", pipeline.ID, err)
	}

	tokens := TokensFor(pipeline, findings)
	if len(tokens) == 0 {
		return 0, nil
	}

	err = s.revoker.Revoke(ctx, tokens)
	event := audit.RevocationEvent{
		ProjectID:  pipeline.ProjectID,
		PipelineID: pipeline.ID,
		Tokens:     len(tokens),
		Success:    err == nil,
	}
	if err != nil {
		event.ErrorMessage = err.Error()
		audit.Log(event)
		metrics.TokensRevokedTotal.WithLabelValues("error").Add(float64(len(tokens)))
		return 0, err
	}
	audit.Log(event)
	metrics.TokensRevokedTotal.WithLabelValues("sent").Add(float64(len(tokens)))
	logging.Pipeline(s.logger, pipeline.ProjectID, pipeline.ID).Info("sent tokens for revocation", "count", len(tokens))
	return len(tokens), nil
}

// TokensFor converts secret detection findings into revocation tokens.
// Findings without a source code extract are skipped.
func TokensFor(pipeline *model.Pipeline, findings []model.Finding) []Token {
	var tokens []Token
	for _, f := range findings {
		data := f.FindingData
		if data.RawSourceCodeExtract == "" {
			continue
		}
		id := data.PrimaryIdentifier()
		if id == nil {
			continue
		}
		tokens = append(tokens, Token{
			Type:     id.ExternalID,
			Token:    data.RawSourceCodeExtract,
			Location: blobURL(pipeline, data.Location),
		})
	}
	return tokens
}

func blobURL(pipeline *model.Pipeline, loc *report.Location) string {
	if loc == nil {
		return ""
	}
	url := fmt.Sprintf("/projects/%d/-/blob/%s/%s", pipeline.ProjectID, pipeline.SHA, loc.File)
	if loc.StartLine > 0 {
		url += fmt.Sprintf("#L%d", loc.StartLine)
	}
	return url
}
