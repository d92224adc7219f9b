package dashboard

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"nursery-tracker/internal/domain"
)

// StatsAPI is the slice of the API client the dashboard needs.
type StatsAPI interface {
	DashboardStats(ctx context.Context) (domain.DashboardStats, error)
	ExportCSV(ctx context.Context) (domain.ExportFile, error)
}

// Service fetches backend-computed aggregates and handles CSV export. It
// performs no local aggregation: the backend owns the numbers.
type Service struct {
	api       StatsAPI
	exportDir string
	logger    *logrus.Logger
}

func NewService(api StatsAPI, exportDir string, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{
		api:       api,
		exportDir: exportDir,
		logger:    logger,
	}
}

// Stats fetches the aggregate statistics object, rendered as-is by callers.
func (s *Service) Stats(ctx context.Context) (domain.DashboardStats, error) {
	return s.api.DashboardStats(ctx)
}

// ExportCSV downloads the export payload and writes it under the configured
// export directory, using the backend's suggested filename reduced to a safe
// basename. It returns the written path for the caller to hand off.
func (s *Service) ExportCSV(ctx context.Context) (string, error) {
	file, err := s.api.ExportCSV(ctx)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.exportDir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	path := filepath.Join(s.exportDir, exportBasename(file.Filename))
	if err := os.WriteFile(path, file.Data, 0o644); err != nil {
		return "", fmt.Errorf("write export file: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"path":  path,
		"bytes": len(file.Data),
	}).Info("csv export written")
	return path, nil
}

func exportBasename(name string) string {
	base := filepath.Base(name)
	if base == "" || base == "." || base == string(filepath.Separator) {
		return fmt.Sprintf("nursery_data_%s.csv", time.Now().Format("20060102"))
	}
	return base
}
