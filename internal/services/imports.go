package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/importer"
	"fintrack/internal/metrics"
	"fintrack/internal/storage"
)

// ImportService previews and confirms CSV uploads.
type ImportService struct {
	repo      *storage.SQLiteRepository
	analytics *AnalyticsService
	events    eventSink
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewImportService(repo *storage.SQLiteRepository, analytics *AnalyticsService, publisher Publisher, m *metrics.Metrics, logger *slog.Logger) *ImportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportService{
		repo:      repo,
		analytics: analytics,
		events:    newEventSink(publisher, m, logger),
		metrics:   m,
		logger:    logger,
	}
}

// Preview returns the columns, a few sample rows and the row count.
func (s *ImportService) Preview(filename string, data []byte) (importer.Preview, error) {
	if err := importer.CheckFilename(filename); err != nil {
		return importer.Preview{}, err
	}
	table, err := importer.Parse(data)
	if err != nil {
		return importer.Preview{}, err
	}
	return importer.BuildPreview(table), nil
}

// Confirm maps every row and stores the good ones in one database
// transaction.
func (s *ImportService) Confirm(ctx context.Context, userID, filename string, data []byte, m importer.Mapping) (importer.Result, error) {
	m.DateColumn = strings.TrimSpace(m.DateColumn)
	m.AmountColumn = strings.TrimSpace(m.AmountColumn)
	m.DescriptionColumn = strings.TrimSpace(m.DescriptionColumn)
	m.CategoryID = strings.TrimSpace(m.CategoryID)
	m.HouseholdID = strings.TrimSpace(m.HouseholdID)

	if err := m.Validate(); err != nil {
		return importer.Result{}, err
	}
	if err := importer.CheckFilename(filename); err != nil {
		return importer.Result{}, err
	}
	if _, err := s.repo.GetVisibleCategory(ctx, userID, m.CategoryID); err != nil {
		return importer.Result{}, fmt.Errorf("category: %w", err)
	}
	if _, err := authorizeScope(ctx, s.repo, userID, m.HouseholdID); err != nil {
		return importer.Result{}, err
	}

	table, err := importer.Parse(data)
	if err != nil {
		return importer.Result{}, err
	}
	for _, col := range []string{m.DateColumn, m.AmountColumn} {
		if !table.HasColumn(col) {
			return importer.Result{}, core.Invalidf("column %q not found in CSV", col)
		}
	}

	txs, res := importer.Plan(table, m, userID)
	if err := s.repo.CreateTransactions(ctx, txs); err != nil {
		return importer.Result{}, fmt.Errorf("store imported transactions: %w", err)
	}

	if s.metrics != nil {
		s.metrics.ImportedRows.WithLabelValues("imported").Add(float64(res.Imported))
		s.metrics.ImportedRows.WithLabelValues("skipped").Add(float64(res.Skipped))
	}
	s.logger.InfoContext(ctx, "CSV import completed",
		"component", "import",
		"user_id", userID,
		"household_id", m.HouseholdID,
		"imported", res.Imported,
		"skipped", res.Skipped)

	if len(txs) > 0 {
		if s.analytics != nil {
			s.analytics.Invalidate(userID, m.HouseholdID)
		}
		ids := make([]string, len(txs))
		for i, t := range txs {
			ids[i] = t.ID
		}
		s.events.publish(ctx, amqp.NewImportEvent(ids, userID, m.HouseholdID))
	}
	return res, nil
}
