package counselors

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/wolfman30/banyan-booking/internal/kv"
	"github.com/wolfman30/banyan-booking/pkg/logging"
)

// KeyDirectory holds the full counselor list.
const KeyDirectory = "counselors:directory"

var (
	ErrCounselorNotFound = errors.New("counselors: counselor not found")
	ErrInvalidCounselor  = errors.New("counselors: invalid counselor")
)

// Slot is a bookable weekly time unit.
type Slot struct {
	ID     string `json:"id"`
	Day    string `json:"day"`
	Time   string `json:"time"`
	Booked bool   `json:"booked"`
}

// Counselor is a directory entry. Prices are per session, in cents.
type Counselor struct {
	ID              string   `json:"id"`
	SerialNumber    string   `json:"serial_number"`
	Name            string   `json:"name"`
	Title           string   `json:"title"`
	AvatarURL       string   `json:"avatar_url,omitempty"`
	ExperienceYears int      `json:"experience_years"`
	SessionHours    int      `json:"session_hours"`
	Specialties     []string `json:"specialties"`
	Tags            []string `json:"tags"`
	Training        []string `json:"training,omitempty"`
	Bio             string   `json:"bio"`
	Education       string   `json:"education"`
	PriceCents      int64    `json:"price_cents"`
	TrialPriceCents int64    `json:"trial_price_cents,omitempty"`
	Rating          float64  `json:"rating"`
	Available       bool     `json:"available"`
	Slots           []Slot   `json:"slots"`
}

// HasOpenSlot reports whether day/time names an unbooked slot.
func (c *Counselor) HasOpenSlot(day, time string) bool {
	for _, s := range c.Slots {
		if s.Day == day && s.Time == time {
			return !s.Booked
		}
	}
	return false
}

func (c *Counselor) validate() error {
	if strings.TrimSpace(c.ID) == "" || strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: id and name required", ErrInvalidCounselor)
	}
	if c.PriceCents <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrInvalidCounselor)
	}
	if c.TrialPriceCents < 0 {
		return fmt.Errorf("%w: trial price must not be negative", ErrInvalidCounselor)
	}
	return nil
}

// Directory is the counselor list kept in the shared store.
type Directory struct {
	store  kv.Store
	logger *logging.Logger

	mu sync.Mutex // serializes read-modify-write in Upsert
}

// NewDirectory creates a directory. Seeded counselors are served until the
// owner console saves a list.
func NewDirectory(store kv.Store, logger *logging.Logger) *Directory {
	if store == nil {
		panic("counselors: kv store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Directory{store: store, logger: logger}
}

func (d *Directory) load(ctx context.Context) ([]Counselor, error) {
	var list []Counselor
	found, err := kv.GetJSON(ctx, d.store, KeyDirectory, &list)
	if err != nil {
		return nil, fmt.Errorf("counselors: load directory: %w", err)
	}
	if !found {
		return Seed(), nil
	}
	return list, nil
}

// List returns every counselor ordered by serial number.
func (d *Directory) List(ctx context.Context) ([]Counselor, error) {
	list, err := d.load(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].SerialNumber < list[j].SerialNumber })
	return list, nil
}

// Get returns one counselor.
func (d *Directory) Get(ctx context.Context, id string) (*Counselor, error) {
	list, err := d.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].ID == id {
			c := list[i]
			return &c, nil
		}
	}
	return nil, ErrCounselorNotFound
}

// Upsert inserts or replaces a counselor by id.
func (d *Directory) Upsert(ctx context.Context, c Counselor) error {
	if err := c.validate(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	list, err := d.load(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i := range list {
		if list[i].ID == c.ID {
			list[i] = c
			replaced = true
			break
		}
	}
	if !replaced {
		list = append(list, c)
	}
	if err := kv.SetJSON(ctx, d.store, KeyDirectory, list); err != nil {
		return fmt.Errorf("counselors: save directory: %w", err)
	}
	d.logger.Info("counselor saved", "counselor_id", c.ID, "created", !replaced)
	return nil
}
