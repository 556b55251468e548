package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	property "kitchensafe-cloud/internal/property/domain"
	teamlog "kitchensafe-cloud/internal/teamlog/domain"
)

var (
	// ErrMessageRequired indicates a handover without a message.
	ErrMessageRequired = errors.New("team log: message is required")
	// ErrIDRequired indicates a read receipt without a handover id.
	ErrIDRequired = errors.New("team log: handover id is required")
)

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

// Service coordinates the handover board.
type Service struct {
	handovers teamlog.Repository
	users     property.UserDirectory
	clock     Clock
}

// NewService constructs a Service.
func NewService(handovers teamlog.Repository, users property.UserDirectory, clock Clock) (*Service, error) {
	if handovers == nil {
		return nil, errors.New("team log service: nil repository")
	}
	if clock == nil {
		return nil, errors.New("team log service: nil clock")
	}
	return &Service{handovers: handovers, users: users, clock: clock}, nil
}

// Post publishes a handover note. The board rotates on write: anything older
// than the retention window is pruned first, so no background sweeper is
// needed.
func (s *Service) Post(ctx context.Context, propertyID, userID, message string) (teamlog.Handover, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return teamlog.Handover{}, ErrMessageRequired
	}

	now := s.clock.Now().UTC()
	if err := s.handovers.PruneBefore(ctx, propertyID, teamlog.RetentionCutoff(now)); err != nil {
		return teamlog.Handover{}, err
	}

	handover := teamlog.Handover{
		ID:           uuid.NewString(),
		PropertyID:   propertyID,
		AuthorID:     userID,
		Message:      message,
		HandoverDate: teamlog.DayStart(now),
		CreatedAt:    now,
	}
	if err := s.handovers.Insert(ctx, &handover); err != nil {
		return teamlog.Handover{}, err
	}
	return handover, nil
}

// MarkRead records that the user has seen the handover. Re-reading succeeds
// without touching the first receipt.
func (s *Service) MarkRead(ctx context.Context, propertyID, userID, handoverID string) error {
	handoverID = strings.TrimSpace(handoverID)
	if handoverID == "" {
		return ErrIDRequired
	}

	exists, err := s.handovers.Exists(ctx, propertyID, handoverID)
	if err != nil {
		return err
	}
	if !exists {
		return teamlog.ErrNotFound
	}

	return s.handovers.MarkRead(ctx, &teamlog.Read{
		ID:         uuid.NewString(),
		HandoverID: handoverID,
		ReaderID:   userID,
		ReadAt:     s.clock.Now().UTC(),
	})
}

// ReadView is a receipt decorated with the reader's display name.
type ReadView struct {
	ReaderID string    `json:"readerId"`
	Reader   string    `json:"reader,omitempty"`
	ReadAt   time.Time `json:"readAt"`
}

// HandoverView is a handover with its author and receipts resolved.
type HandoverView struct {
	teamlog.Handover
	Author string     `json:"author,omitempty"`
	Reads  []ReadView `json:"reads"`
}

// List returns the retained board, newest first.
func (s *Service) List(ctx context.Context, propertyID string) ([]HandoverView, error) {
	cutoff := teamlog.RetentionCutoff(s.clock.Now())
	handovers, err := s.handovers.List(ctx, propertyID, cutoff)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(handovers))
	for _, handover := range handovers {
		ids = append(ids, handover.ID)
	}
	var reads []teamlog.Read
	if len(ids) > 0 {
		reads, err = s.handovers.Reads(ctx, ids)
		if err != nil {
			return nil, err
		}
	}

	users, err := s.resolveUsers(ctx, handovers, reads)
	if err != nil {
		return nil, err
	}

	readsByHandover := make(map[string][]ReadView)
	for _, read := range reads {
		view := ReadView{ReaderID: read.ReaderID, ReadAt: read.ReadAt}
		if user, ok := users[read.ReaderID]; ok {
			view.Reader = user.DisplayName()
		}
		readsByHandover[read.HandoverID] = append(readsByHandover[read.HandoverID], view)
	}

	views := make([]HandoverView, 0, len(handovers))
	for _, handover := range handovers {
		view := HandoverView{Handover: handover, Reads: readsByHandover[handover.ID]}
		if view.Reads == nil {
			view.Reads = []ReadView{}
		}
		if user, ok := users[handover.AuthorID]; ok {
			view.Author = user.DisplayName()
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *Service) resolveUsers(ctx context.Context, handovers []teamlog.Handover, reads []teamlog.Read) (map[string]property.User, error) {
	if s.users == nil {
		return map[string]property.User{}, nil
	}
	seen := make(map[string]struct{})
	ids := make([]string, 0, len(handovers)+len(reads))
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, handover := range handovers {
		add(handover.AuthorID)
	}
	for _, read := range reads {
		add(read.ReaderID)
	}
	if len(ids) == 0 {
		return map[string]property.User{}, nil
	}
	return s.users.GetUsers(ctx, ids)
}
