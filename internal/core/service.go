package core

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/dailyfinance/internal/config"
	"github.com/JonMunkholm/dailyfinance/internal/entry"
)

// Service is the entry point for imports, form submissions and listings.
// It is safe for concurrent use; each call is independent.
type Service struct {
	store       entry.Store
	audit       entry.AuditLog // nil when the store keeps no activity log
	importer    *Importer
	limiter     *ImportLimiter
	maxFileSize int64
}

// NewService creates a Service over store, configured by cfg.
func NewService(store entry.Store, cfg *config.Config) *Service {
	s := &Service{
		store:       store,
		importer:    NewImporter(store),
		limiter:     NewImportLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		maxFileSize: cfg.Upload.MaxFileSize,
	}
	if log, ok := store.(entry.AuditLog); ok {
		s.audit = log
	}
	return s
}

// DiscoverSheets lists the sheets of an uploaded workbook.
func (s *Service) DiscoverSheets(ctx context.Context, data []byte) (*SheetList, error) {
	if err := s.checkSize(data); err != nil {
		return nil, err
	}
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	return s.importer.DiscoverSheets(data)
}

// Import runs a spreadsheet import for req.Owner. The call blocks until
// every row has been processed.
func (s *Service) Import(ctx context.Context, req ImportRequest) (*ImportSummary, error) {
	if err := s.checkSize(req.Data); err != nil {
		return nil, err
	}
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	summary, err := s.importer.Import(ctx, req)
	if err != nil {
		return nil, err
	}
	s.recordImport(ctx, req.Owner, summary)
	return summary, nil
}

// Submit creates the entries of one form submission owned by actor.
func (s *Service) Submit(ctx context.Context, actor string, payloads []EntryPayload) (*SubmitResult, error) {
	result, err := SubmitEntries(ctx, s.store, actor, payloads)
	if err != nil {
		return nil, err
	}
	s.recordSubmit(ctx, actor, result)
	return result, nil
}

// ListEntries returns the owner's entries, newest date first.
func (s *Service) ListEntries(ctx context.Context, filter entry.ListFilter) ([]entry.Entry, error) {
	entries, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// Report totals the owner's entries, optionally limited to one import.
func (s *Service) Report(ctx context.Context, filter entry.ListFilter) (entry.Totals, error) {
	filter.Limit = 0
	entries, err := s.ListEntries(ctx, filter)
	if err != nil {
		return entry.Totals{}, err
	}
	return entry.Summarize(entries), nil
}

// LimiterStatus reports the import limiter state.
func (s *Service) LimiterStatus() ImportLimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until in-flight imports finish or ctx is done.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

func (s *Service) checkSize(data []byte) error {
	if s.maxFileSize > 0 && int64(len(data)) > s.maxFileSize {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrFileTooLarge, len(data), s.maxFileSize)
	}
	return nil
}
