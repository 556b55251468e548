package procurement

import (
	"context"
	"errors"
	"time"
)

// Category groups what a request is for.
type Category string

const (
	CategoryFood     Category = "FOOD"
	CategorySupplies Category = "SUPPLIES"
)

// NormalizeCategory validates a category string. Empty defaults to FOOD.
func NormalizeCategory(value string) (Category, bool) {
	switch Category(value) {
	case "":
		return CategoryFood, true
	case CategoryFood, CategorySupplies:
		return Category(value), true
	default:
		return "", false
	}
}

// Status is a request's lifecycle state. A request leaves PENDING exactly
// once; decisions on an already-decided request are rejected.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusOrdered  Status = "ORDERED"
	StatusRejected Status = "REJECTED"
)

// NormalizeStatus validates a status filter value.
func NormalizeStatus(value string) (Status, bool) {
	switch Status(value) {
	case StatusPending, StatusOrdered, StatusRejected:
		return Status(value), true
	default:
		return "", false
	}
}

// RejectReason is why an admin declined a request.
type RejectReason string

const (
	ReasonMenuChange         RejectReason = "MENU_CHANGE"
	ReasonOutOfSeason        RejectReason = "OUT_OF_SEASON"
	ReasonSupplierOutOfStock RejectReason = "SUPPLIER_OUT_OF_STOCK"
	ReasonAlreadyInStock     RejectReason = "ALREADY_IN_STOCK"
	ReasonBudgetCostControl  RejectReason = "BUDGET_COST_CONTROL"
	ReasonNotApproved        RejectReason = "NOT_APPROVED"
	ReasonOther              RejectReason = "OTHER"
)

// NormalizeRejectReason validates a rejection reason.
func NormalizeRejectReason(value string) (RejectReason, bool) {
	switch RejectReason(value) {
	case ReasonMenuChange, ReasonOutOfSeason, ReasonSupplierOutOfStock,
		ReasonAlreadyInStock, ReasonBudgetCostControl, ReasonNotApproved, ReasonOther:
		return RejectReason(value), true
	default:
		return "", false
	}
}

// Request is a staff purchase request awaiting an admin decision.
type Request struct {
	ID         string   `json:"id"`
	PropertyID string   `json:"propertyId"`
	Category   Category `json:"category"`
	Status     Status   `json:"status"`

	ItemName string     `json:"itemName"`
	Quantity *float64   `json:"quantity"`
	Unit     string     `json:"unit,omitempty"`
	NeededBy *time.Time `json:"neededBy"`
	Notes    string     `json:"notes,omitempty"`

	RequestedByUserID string     `json:"requestedByUserId"`
	DecidedByUserID   string     `json:"decidedByUserId,omitempty"`
	DecidedAt         *time.Time `json:"decidedAt"`

	RejectedReason RejectReason `json:"rejectedReason,omitempty"`
	RejectedNote   string       `json:"rejectedNote,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// ErrAlreadyDecided reports a decision against a request no longer PENDING.
var ErrAlreadyDecided = errors.New("procurement: request already decided")

// ErrNotFound reports a request the property does not own.
var ErrNotFound = errors.New("procurement: request not found")

// ListFilter narrows a request listing.
type ListFilter struct {
	Category Category
	Status   Status
	Limit    int
}

// Decision carries an admin transition.
type Decision struct {
	RequestID string
	UserID    string
	Status    Status
	Reason    RejectReason
	Note      string
	DecidedAt time.Time
}

// Repository persists procurement requests.
type Repository interface {
	Insert(ctx context.Context, req *Request) error
	List(ctx context.Context, propertyID string, filter ListFilter) ([]Request, error)
	// Decide applies a transition with a guarded UPDATE: it succeeds only
	// while the request is still PENDING. ErrNotFound when the property does
	// not own the request, ErrAlreadyDecided when it was decided already.
	Decide(ctx context.Context, propertyID string, decision Decision) (*Request, error)
}
