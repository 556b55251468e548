package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	procurement "kitchensafe-cloud/internal/procurement/domain"
	property "kitchensafe-cloud/internal/property/domain"
)

const maxItemNameLength = 120

var (
	// ErrItemNameRequired indicates a create without an item name.
	ErrItemNameRequired = errors.New("procurement: item name is required")
	// ErrItemNameTooLong indicates an item name over the limit.
	ErrItemNameTooLong = errors.New("procurement: item name is too long")
	// ErrInvalidCategory indicates an unknown category.
	ErrInvalidCategory = errors.New("procurement: category must be FOOD or SUPPLIES")
	// ErrInvalidStatus indicates an unknown status filter.
	ErrInvalidStatus = errors.New("procurement: unknown status")
	// ErrInvalidReason indicates an unknown rejection reason.
	ErrInvalidReason = errors.New("procurement: invalid rejection reason")
	// ErrNoteRequired indicates an OTHER rejection without a note.
	ErrNoteRequired = errors.New("procurement: note is required when reason is OTHER")
	// ErrIDRequired indicates a decision without a request id.
	ErrIDRequired = errors.New("procurement: id is required")
)

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

// Service coordinates procurement requests.
type Service struct {
	requests procurement.Repository
	users    property.UserDirectory
	clock    Clock
}

// NewService constructs a Service.
func NewService(requests procurement.Repository, users property.UserDirectory, clock Clock) (*Service, error) {
	if requests == nil {
		return nil, errors.New("procurement service: nil repository")
	}
	if clock == nil {
		return nil, errors.New("procurement service: nil clock")
	}
	return &Service{requests: requests, users: users, clock: clock}, nil
}

// CreateRequest is a staff purchase request.
type CreateRequest struct {
	PropertyID string
	UserID     string
	Category   string
	ItemName   string
	Quantity   *float64
	Unit       string
	NeededBy   *time.Time
	Notes      string
}

// Create files a request in PENDING state.
func (s *Service) Create(ctx context.Context, req CreateRequest) (procurement.Request, error) {
	itemName := strings.TrimSpace(req.ItemName)
	if itemName == "" {
		return procurement.Request{}, ErrItemNameRequired
	}
	if len(itemName) > maxItemNameLength {
		return procurement.Request{}, ErrItemNameTooLong
	}
	category, ok := procurement.NormalizeCategory(strings.ToUpper(req.Category))
	if !ok {
		return procurement.Request{}, ErrInvalidCategory
	}

	request := procurement.Request{
		ID:                uuid.NewString(),
		PropertyID:        req.PropertyID,
		Category:          category,
		Status:            procurement.StatusPending,
		ItemName:          itemName,
		Quantity:          req.Quantity,
		Unit:              strings.TrimSpace(req.Unit),
		NeededBy:          req.NeededBy,
		Notes:             strings.TrimSpace(req.Notes),
		RequestedByUserID: req.UserID,
		CreatedAt:         s.clock.Now().UTC(),
	}
	if err := s.requests.Insert(ctx, &request); err != nil {
		return procurement.Request{}, err
	}
	return request, nil
}

// RequestView is a request decorated with display identities.
type RequestView struct {
	procurement.Request
	RequestedBy string `json:"requestedBy,omitempty"`
	DecidedBy   string `json:"decidedBy,omitempty"`
}

// List returns requests matching the filter, pending first.
func (s *Service) List(ctx context.Context, propertyID, category, status string, limit int) ([]RequestView, error) {
	filter := procurement.ListFilter{Limit: limit}
	if category != "" {
		normalized, ok := procurement.NormalizeCategory(strings.ToUpper(category))
		if !ok {
			return nil, ErrInvalidCategory
		}
		filter.Category = normalized
	}
	if status != "" {
		normalized, ok := procurement.NormalizeStatus(strings.ToUpper(status))
		if !ok {
			return nil, ErrInvalidStatus
		}
		filter.Status = normalized
	}

	requests, err := s.requests.List(ctx, propertyID, filter)
	if err != nil {
		return nil, err
	}
	return s.decorate(ctx, requests)
}

// MarkOrdered transitions a PENDING request to ORDERED.
func (s *Service) MarkOrdered(ctx context.Context, propertyID, userID, requestID string) (RequestView, error) {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return RequestView{}, ErrIDRequired
	}

	decided, err := s.requests.Decide(ctx, propertyID, procurement.Decision{
		RequestID: requestID,
		UserID:    userID,
		Status:    procurement.StatusOrdered,
		DecidedAt: s.clock.Now().UTC(),
	})
	if err != nil {
		return RequestView{}, err
	}
	views, err := s.decorate(ctx, []procurement.Request{*decided})
	if err != nil {
		return RequestView{}, err
	}
	return views[0], nil
}

// Reject transitions a PENDING request to REJECTED with a reason. An OTHER
// reason must carry a note.
func (s *Service) Reject(ctx context.Context, propertyID, userID, requestID, reason, note string) (RequestView, error) {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return RequestView{}, ErrIDRequired
	}
	normalized, ok := procurement.NormalizeRejectReason(strings.ToUpper(strings.TrimSpace(reason)))
	if !ok {
		return RequestView{}, ErrInvalidReason
	}
	note = strings.TrimSpace(note)
	if normalized == procurement.ReasonOther && note == "" {
		return RequestView{}, ErrNoteRequired
	}

	decided, err := s.requests.Decide(ctx, propertyID, procurement.Decision{
		RequestID: requestID,
		UserID:    userID,
		Status:    procurement.StatusRejected,
		Reason:    normalized,
		Note:      note,
		DecidedAt: s.clock.Now().UTC(),
	})
	if err != nil {
		return RequestView{}, err
	}
	views, err := s.decorate(ctx, []procurement.Request{*decided})
	if err != nil {
		return RequestView{}, err
	}
	return views[0], nil
}

func (s *Service) decorate(ctx context.Context, requests []procurement.Request) ([]RequestView, error) {
	views := make([]RequestView, 0, len(requests))
	users := map[string]property.User{}
	if s.users != nil && len(requests) > 0 {
		ids := make([]string, 0, len(requests)*2)
		seen := make(map[string]struct{})
		for _, req := range requests {
			for _, id := range []string{req.RequestedByUserID, req.DecidedByUserID} {
				if id == "" {
					continue
				}
				if _, ok := seen[id]; ok {
					continue
				}
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
		resolved, err := s.users.GetUsers(ctx, ids)
		if err != nil {
			return nil, err
		}
		users = resolved
	}

	for _, req := range requests {
		view := RequestView{Request: req}
		if user, ok := users[req.RequestedByUserID]; ok {
			view.RequestedBy = user.DisplayName()
		}
		if user, ok := users[req.DecidedByUserID]; ok {
			view.DecidedBy = user.DisplayName()
		}
		views = append(views, view)
	}
	return views, nil
}
