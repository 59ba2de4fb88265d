package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/wolfman30/banyan-booking/internal/kv"
	"github.com/wolfman30/banyan-booking/pkg/logging"
)

// NewBookingPackageID marks a form filled in during the booking flow. Such
// submissions are not stored; they complete the booking session instead.
const NewBookingPackageID = "new_booking_temp"

// KeyPackages holds the intake package list.
const KeyPackages = "intake:packages"

var (
	ErrInvalidForm      = errors.New("intake: invalid form")
	ErrPackageNotFound  = errors.New("intake: package not found")
	ErrAlreadyCompleted = errors.New("intake: package already completed")
	ErrSessionRequired  = errors.New("intake: booking session id required")
)

// Status of an intake package.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Package is an intake form link issued by the owner console.
type Package struct {
	ID            string      `json:"id"`
	ClientName    string      `json:"client_name"`
	CounselorID   string      `json:"counselor_id"`
	CounselorName string      `json:"counselor_name"`
	CreatedAt     time.Time   `json:"created_at"`
	Status        Status      `json:"status"`
	Form          *Submission `json:"form,omitempty"`
}

// SessionCompleter advances a booking session past intake.
type SessionCompleter interface {
	CompleteIntake(ctx context.Context, sessionID string) error
}

// Service stores intake packages and accepts submissions.
type Service struct {
	store    kv.Store
	sessions SessionCompleter
	validate *validator.Validate
	logger   *logging.Logger
	now      func() time.Time
	mu       sync.Mutex
}

func NewService(store kv.Store, sessions SessionCompleter, logger *logging.Logger) *Service {
	if store == nil {
		panic("intake: kv store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:    store,
		sessions: sessions,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// List returns every package, newest first.
func (s *Service) List(ctx context.Context) ([]Package, error) {
	list, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Package, len(list))
	for i := range list {
		out[len(list)-1-i] = list[i]
	}
	return out, nil
}

// Get returns one package.
func (s *Service) Get(ctx context.Context, id string) (*Package, error) {
	list, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].ID == id {
			p := list[i]
			return &p, nil
		}
	}
	return nil, ErrPackageNotFound
}

// Create issues a pending package.
func (s *Service) Create(ctx context.Context, clientName, counselorID, counselorName string) (*Package, error) {
	clientName = strings.TrimSpace(clientName)
	if clientName == "" || strings.TrimSpace(counselorID) == "" {
		return nil, fmt.Errorf("%w: client name and counselor are required", ErrInvalidForm)
	}
	pkg := Package{
		ID:            uuid.NewString(),
		ClientName:    clientName,
		CounselorID:   counselorID,
		CounselorName: counselorName,
		CreatedAt:     s.now().UTC(),
		Status:        StatusPending,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	list = append(list, pkg)
	if err := kv.SetJSON(ctx, s.store, KeyPackages, list); err != nil {
		return nil, fmt.Errorf("intake: save packages: %w", err)
	}
	s.logger.Info("intake package created", "package_id", pkg.ID, "counselor_id", counselorID)
	return &pkg, nil
}

// Submit validates and signs a form. Under NewBookingPackageID it completes
// the booking session sessionID; otherwise it completes the stored package.
func (s *Service) Submit(ctx context.Context, packageID, sessionID string, form Form) (*Submission, error) {
	if err := s.validate.Struct(form); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidForm, err)
	}
	sub := &Submission{Form: form, SubmittedAt: s.now().UTC(), Hash: NewHash()}

	if packageID == NewBookingPackageID {
		if strings.TrimSpace(sessionID) == "" || s.sessions == nil {
			return nil, ErrSessionRequired
		}
		if err := s.sessions.CompleteIntake(ctx, sessionID); err != nil {
			return nil, fmt.Errorf("intake: complete booking: %w", err)
		}
		s.logger.Info("booking intake submitted", "session_id", sessionID, "hash", sub.Hash)
		return sub, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	idx := -1
	for i := range list {
		if list[i].ID == packageID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrPackageNotFound
	}
	if list[idx].Status == StatusCompleted {
		return nil, ErrAlreadyCompleted
	}
	list[idx].Status = StatusCompleted
	list[idx].Form = sub
	if err := kv.SetJSON(ctx, s.store, KeyPackages, list); err != nil {
		return nil, fmt.Errorf("intake: save packages: %w", err)
	}
	s.logger.Info("intake package completed", "package_id", packageID, "hash", sub.Hash)
	return sub, nil
}

func (s *Service) load(ctx context.Context) ([]Package, error) {
	var list []Package
	if _, err := kv.GetJSON(ctx, s.store, KeyPackages, &list); err != nil {
		return nil, fmt.Errorf("intake: load packages: %w", err)
	}
	return list, nil
}
