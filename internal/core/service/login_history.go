package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fitlog/fitness-api/internal/core/domain"
	"github.com/fitlog/fitness-api/internal/core/ports"
)

const maxUserAgentLen = 256

type loginHistoryService struct {
	repo ports.LoginEventRepository
	log  zerolog.Logger
	now  func() time.Time
}

// NewLoginHistoryService returns a LoginHistoryService implementation.
func NewLoginHistoryService(repo ports.LoginEventRepository, log zerolog.Logger) ports.LoginHistoryService {
	return &loginHistoryService{repo: repo, log: log, now: time.Now}
}

// Process stamps and persists a single login event.
func (s *loginHistoryService) Process(ctx context.Context, event domain.LoginEvent) error {
	if event.Method == "" || event.Outcome == "" {
		return domain.Invalid("login event requires method and outcome")
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now()
	}
	event.OccurredAt = event.OccurredAt.UTC()
	event.Email = domain.NormalizeEmail(event.Email)
	if len(event.UserAgent) > maxUserAgentLen {
		event.UserAgent = event.UserAgent[:maxUserAgentLen]
	}
	event.UserAgent = strings.ToValidUTF8(event.UserAgent, "")

	if err := s.repo.Insert(ctx, &event); err != nil {
		return fmt.Errorf("record login event: %w", err)
	}

	s.log.Debug().
		Str("method", event.Method).
		Str("outcome", event.Outcome).
		Str("user_id", event.UserID).
		Msg("login event recorded")
	return nil
}
