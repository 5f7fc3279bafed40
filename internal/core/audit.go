package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/dailyfinance/internal/entry"
	"github.com/JonMunkholm/dailyfinance/internal/logging"
)

// DefaultHistoryLimit bounds History when the caller passes no limit.
const DefaultHistoryLimit = 50

// ErrAuditUnavailable is returned by History when the store keeps no
// activity log.
var ErrAuditUnavailable = errors.New("activity log not available for this store")

// recordImport logs a completed import. Audit failures are logged and never
// fail the import.
func (s *Service) recordImport(ctx context.Context, owner string, summary *ImportSummary) {
	s.recordAudit(ctx, entry.AuditEntry{
		Action:   entry.ActionImport,
		Owner:    owner,
		ImportID: summary.ImportID,
		FileName: summary.FileName,
		Sheet:    summary.Sheet,
		Created:  summary.Imported,
		Skipped:  summary.Skipped,
	})
}

// recordSubmit logs a completed form submission.
func (s *Service) recordSubmit(ctx context.Context, owner string, result *SubmitResult) {
	s.recordAudit(ctx, entry.AuditEntry{
		Action:  entry.ActionSubmit,
		Owner:   owner,
		Created: result.Created,
	})
}

func (s *Service) recordAudit(ctx context.Context, e entry.AuditEntry) {
	if s.audit == nil {
		return
	}
	e.Owner = strings.TrimSpace(e.Owner)
	client := ClientFromContext(ctx)
	e.IPAddress, e.UserAgent = client.IPAddress, client.UserAgent

	// The request may already be past its deadline; the record still counts.
	if _, err := s.audit.RecordAudit(context.WithoutCancel(ctx), e); err != nil {
		logging.FromContext(ctx).Warn("failed to record activity",
			"action", e.Action,
			"owner", e.Owner,
			"error", err,
		)
	}
}

// History returns the owner's recent imports and submissions, newest first.
func (s *Service) History(ctx context.Context, owner string, limit int) ([]entry.AuditEntry, error) {
	if s.audit == nil {
		return nil, ErrAuditUnavailable
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	history, err := s.audit.ListAudit(ctx, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return history, nil
}
