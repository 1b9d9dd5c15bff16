package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xiaot623/fieldwise/internal/conversation"
	"github.com/xiaot623/fieldwise/internal/domain"
	"github.com/xiaot623/fieldwise/internal/logger"
	"github.com/xiaot623/fieldwise/internal/policy"
)

// ErrFilingBlocked is returned when the filing policy refuses a report.
var ErrFilingBlocked = errors.New("report filing blocked")

// complete summarizes a confirmed session, files the report and marks the
// session completed. The caller holds the session lock and retires the
// session once the turn is done.
func (s *Service) complete(ctx context.Context, sess *domain.Session) (int64, error) {
	log := logger.With("session_id", sess.ID)

	summary, err := s.engine.Summarize(ctx, sess)
	if err != nil && errors.Is(err, domain.ErrUpstreamUnavailable) && ctx.Err() == nil {
		log.Warn("retrying summary", "error", err)
		summary, err = s.engine.Summarize(ctx, sess)
	}
	if err != nil {
		return 0, err
	}
	summary = conversation.CleanSummary(summary)

	last, _ := sess.LastAssistant()
	decision, err := s.filing.Evaluate(ctx, policy.FilingInput{
		SessionID:    sess.ID,
		Channel:      string(sess.Channel),
		MarkerSeen:   conversation.IsComplete(last),
		AlreadyFiled: sess.Filed(),
		Payload:      summary,
		PayloadJSON:  json.Valid([]byte(summary)),
	})
	if err != nil {
		return 0, fmt.Errorf("filing policy: %w", err)
	}
	if !decision.Allowed() {
		log.Warn("report filing blocked", "reason", decision.Reason)
		return 0, fmt.Errorf("%w: %s", ErrFilingBlocked, decision.Reason)
	}

	id, err := s.reports.Save(ctx, summary)
	if err != nil {
		return 0, err
	}

	sess.State = domain.SessionStateCompleted
	sess.ReportID = id

	log.Info("report filed", "report_id", id, "reason", decision.Reason)
	return id, nil
}
