package alerting

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	blastchill "kitchensafe-cloud/internal/blastchill/domain"
	property "kitchensafe-cloud/internal/property/domain"
	refrigeration "kitchensafe-cloud/internal/refrigeration/domain"
)

// Clock provides time for cooldown bookkeeping.
type Clock interface {
	Now() time.Time
}

type sendRecord struct {
	at   time.Time
	hash string
}

// Notifier renders and delivers food safety alerts. One notifier serves both
// blast-chill failures and refrigeration readings outside the safe band.
type Notifier struct {
	properties   property.PropertyRepository
	users        property.UserDirectory
	channel      Channel
	template     *Template
	clock        Clock
	mu           sync.Mutex
	sent         map[string]sendRecord
	cooldown     time.Duration
	dedupeWindow time.Duration
}

// Option configures the notifier.
type Option func(*Notifier)

// WithClock overrides the default clock.
func WithClock(clock Clock) Option {
	return func(n *Notifier) {
		if clock != nil {
			n.clock = clock
		}
	}
}

// WithCooldown sets a minimum interval between alerts for the same subject.
func WithCooldown(interval time.Duration) Option {
	return func(n *Notifier) {
		if interval > 0 {
			n.cooldown = interval
		}
	}
}

// WithDedupeWindow suppresses identical alerts within the window.
func WithDedupeWindow(window time.Duration) Option {
	return func(n *Notifier) {
		if window > 0 {
			n.dedupeWindow = window
		}
	}
}

// WithUserDirectory resolves user ids to display names in alert content.
func WithUserDirectory(users property.UserDirectory) Option {
	return func(n *Notifier) { n.users = users }
}

// WithPropertyRepository resolves property ids to names in alert content.
func WithPropertyRepository(properties property.PropertyRepository) Option {
	return func(n *Notifier) { n.properties = properties }
}

// NewNotifier constructs an alert notifier.
func NewNotifier(channel Channel, template *Template, opts ...Option) (*Notifier, error) {
	if channel == nil {
		return nil, errors.New("alert notifier: nil channel")
	}
	if template == nil {
		defaultTemplate, err := NewTemplate("")
		if err != nil {
			return nil, err
		}
		template = defaultTemplate
	}
	n := &Notifier{
		channel:  channel,
		template: template,
		clock:    systemClock{},
		sent:     make(map[string]sendRecord),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// BatchOutOfRange reports a blast-chill cycle that missed its target.
func (n *Notifier) BatchOutOfRange(ctx context.Context, propertyID string, batch blastchill.Batch) {
	if n == nil || n.channel == nil {
		return
	}
	reading := ""
	if batch.EndTempC != nil {
		reading = fmt.Sprintf("%.1f C", *batch.EndTempC)
	}
	if batch.Minutes != nil {
		if reading != "" {
			reading += " after "
		}
		reading += fmt.Sprintf("%d min", *batch.Minutes)
	}
	at := ""
	if batch.EndAt != nil {
		at = batch.EndAt.UTC().Format(time.RFC3339)
	}
	data := TemplateData{
		Property:   n.propertyName(ctx, propertyID),
		Subject:    fmt.Sprintf("Blast chill: %s", batch.FoodName),
		Reading:    reading,
		Limit:      "target temperature within the chill window",
		Time:       at,
		LoggedBy:   n.userName(ctx, batch.EndUserID),
		Suggestion: "Reheat or discard the batch and record the corrective action.",
		Event:      "chill_out_of_range",
		EventLabel: "Alert",
	}
	n.dispatch(ctx, "chill|"+batch.BatchID, data)
}

// ReadingOutOfRange reports a unit temperature outside the safe band.
func (n *Notifier) ReadingOutOfRange(ctx context.Context, propertyID string, unit refrigeration.Unit, check refrigeration.Check) {
	if n == nil || n.channel == nil {
		return
	}
	reading := ""
	if check.ValueC != nil {
		reading = fmt.Sprintf("%.1f C", *check.ValueC)
	}
	limit := "fridge safe band"
	if unit.Type == refrigeration.UnitFreezer {
		limit = "freezer safe band"
	}
	data := TemplateData{
		Property:   n.propertyName(ctx, propertyID),
		Subject:    fmt.Sprintf("Unit: %s", unit.Name),
		Reading:    reading,
		Limit:      limit,
		Time:       check.LoggedAt.UTC().Format(time.RFC3339),
		LoggedBy:   n.userName(ctx, check.CreatedByUserID),
		Suggestion: "Check the unit, move stock if needed and log a follow-up reading.",
		Event:      "reading_out_of_range",
		EventLabel: "Alert",
	}
	n.dispatch(ctx, "unit|"+unit.ID, data)
}

func (n *Notifier) dispatch(ctx context.Context, key string, data TemplateData) {
	content, err := n.template.Render(data)
	if err != nil {
		return
	}
	if !n.shouldSend(key, content) {
		return
	}
	if err := n.channel.Send(ctx, content); err != nil {
		return
	}
	n.markSent(key, content)
}

func (n *Notifier) propertyName(ctx context.Context, propertyID string) string {
	if n.properties != nil {
		if prop, err := n.properties.Get(ctx, propertyID); err == nil && prop != nil && prop.Name != "" {
			return prop.Name
		}
	}
	return propertyID
}

func (n *Notifier) userName(ctx context.Context, userID string) string {
	if userID == "" {
		return ""
	}
	if n.users != nil {
		if users, err := n.users.GetUsers(ctx, []string{userID}); err == nil {
			if user, ok := users[userID]; ok {
				return user.DisplayName()
			}
		}
	}
	return userID
}

func (n *Notifier) shouldSend(key, content string) bool {
	if n.cooldown <= 0 && n.dedupeWindow <= 0 {
		return true
	}
	now := n.clock.Now().UTC()
	hash := hashContent(content)

	n.mu.Lock()
	record, ok := n.sent[key]
	n.mu.Unlock()
	if !ok {
		return true
	}
	if n.cooldown > 0 && now.Sub(record.at) < n.cooldown {
		return false
	}
	if n.dedupeWindow > 0 && record.hash == hash && now.Sub(record.at) < n.dedupeWindow {
		return false
	}
	return true
}

func (n *Notifier) markSent(key, content string) {
	now := n.clock.Now().UTC()
	horizon := n.cooldown
	if n.dedupeWindow > horizon {
		horizon = n.dedupeWindow
	}

	n.mu.Lock()
	// Records past both windows can never suppress again; drop them so the
	// map stays bounded by recently alerted subjects.
	for k, record := range n.sent {
		if now.Sub(record.at) > horizon {
			delete(n.sent, k)
		}
	}
	n.sent[key] = sendRecord{at: now, hash: hashContent(content)}
	n.mu.Unlock()
}

func hashContent(content string) string {
	sum := sha1.Sum([]byte(content))
	return hex.EncodeToString(sum[:8])
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
