package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"coffee-backoffice/internal/auth"
	"coffee-backoffice/internal/wallet"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records internal audit information.
//
// IMPORTANT:
// - Audit is internal-only. Do not expose these records to owners.
// - Callers should treat audit logging as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogLedgerDiscrepancy records a failed ledger chain check with the full check as metadata.
func (s *Service) LogLedgerDiscrepancy(ctx context.Context, actor auth.Identity, walletID string, check wallet.LedgerCheck) error {
	if walletID == "" {
		return ErrInvalidEvent
	}
	meta, err := json.Marshal(check)
	if err != nil {
		return fmt.Errorf("audit metadata: %w", err)
	}
	return s.Append(ctx, Event{
		Type:        EventTypeLedgerDiscrepancy,
		ActorUserID: actor.UserID,
		ActorRole:   actor.Role,
		WalletID:    walletID,
		Message:     fmt.Sprintf("ledger off by %d credits, %d broken links", check.DiscrepancyCredits, len(check.Breaks)),
		Metadata:    string(meta),
	})
}
