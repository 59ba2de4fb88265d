package practice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/wolfman30/banyan-booking/internal/credits"
	"github.com/wolfman30/banyan-booking/internal/kv"
	"github.com/wolfman30/banyan-booking/pkg/logging"
)

// Keys under which practice settings are stored.
const (
	KeyPayment   = "practice:payment"
	KeyCharity   = "practice:charity"
	KeyAssistant = "practice:assistant_qr"

	keyPrefix = "practice:"
)

// PaymentConfig is the practice's collection account shown on the payment step.
type PaymentConfig struct {
	QRCodeURL     string `json:"qr_code_url"`
	AccountName   string `json:"account_name"`
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
}

// CharityProgram is the reduced-fee program run by the practice owner.
type CharityProgram struct {
	ID                        string         `json:"id"`
	Enabled                   bool           `json:"enabled"`
	Name                      string         `json:"name"`
	PriceCents                int64          `json:"price_cents"`
	SessionCount              int            `json:"session_count"`
	UsageLimitPerClient       int            `json:"usage_limit_per_client"`
	Description               string         `json:"description"`
	ParticipatingCounselorIDs []string       `json:"participating_counselor_ids"`
	MaxClientsPerCounselor    int            `json:"max_clients_per_counselor"`
	Usage                     map[string]int `json:"usage"`
	ClientUsage               map[string]int `json:"client_usage"`
	ShareURL                  string         `json:"share_url,omitempty"`
}

// AssistantQR points clients at the practice assistant for manual reconciliation.
type AssistantQR struct {
	ImageURL string `json:"image_url"`
}

// DefaultPaymentConfig returns the account used until the owner configures one.
func DefaultPaymentConfig() PaymentConfig {
	return PaymentConfig{
		AccountName:   "深圳市伴言心理咨询有限责任公司",
		BankName:      "招商银行股份有限公司深圳南山支行",
		AccountNumber: "7559 5218 0510 101",
	}
}

// DefaultCharityProgram returns the disabled program template.
func DefaultCharityProgram() CharityProgram {
	return CharityProgram{
		ID:                        "charity_2024",
		Enabled:                   false,
		Name:                      "伴言 · 公益直通计划",
		PriceCents:                3990,
		SessionCount:              1,
		UsageLimitPerClient:       4,
		Description:               "由创始人严选专家参与，旨在提供高质量的低门槛心理服务。为了确保资源的公平分配，每位来访者仅限享受有限次数。",
		ParticipatingCounselorIDs: []string{},
		MaxClientsPerCounselor:    5,
		Usage:                     map[string]int{},
		ClientUsage:               map[string]int{},
	}
}

// Accepting reports whether a participating counselor can take another
// charity client.
func (c CharityProgram) Accepting(counselorID string) bool {
	if !c.Enabled || !c.Participates(counselorID) {
		return false
	}
	return c.Usage[counselorID] < c.MaxClientsPerCounselor
}

// ClientAllowed reports whether a client is under the per-client limit. A
// limit of zero means unlimited.
func (c CharityProgram) ClientAllowed(phone string) bool {
	return c.UsageLimitPerClient == 0 || c.ClientUsage[phone] < c.UsageLimitPerClient
}

// admit checks every rule for one more charity session.
func (c CharityProgram) admit(counselorID, phone string) error {
	switch {
	case !c.Enabled:
		return ErrCharityDisabled
	case !c.Participates(counselorID):
		return fmt.Errorf("%w: %s", ErrNotParticipating, counselorID)
	case !c.Accepting(counselorID):
		return ErrCharityFull
	case !c.ClientAllowed(phone):
		return ErrClientLimitReached
	}
	return nil
}

func (c *CharityProgram) ensureMaps() {
	if c.Usage == nil {
		c.Usage = map[string]int{}
	}
	if c.ClientUsage == nil {
		c.ClientUsage = map[string]int{}
	}
}

// Participates reports whether a counselor is listed in the program.
func (c CharityProgram) Participates(counselorID string) bool {
	for _, id := range c.ParticipatingCounselorIDs {
		if id == counselorID {
			return true
		}
	}
	return false
}

func (c CharityProgram) validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: name required", ErrInvalidConfig)
	}
	if c.PriceCents < 0 || c.SessionCount < 1 || c.UsageLimitPerClient < 0 || c.MaxClientsPerCounselor < 0 {
		return fmt.Errorf("%w: counts and price must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Service is the typed configuration API over the shared store.
type Service struct {
	store  kv.Store
	logger *logging.Logger

	// mu serialises charity usage writes within this replica; kv.Update
	// covers writers on other replicas.
	mu sync.Mutex
}

// NewService creates a practice configuration service.
func NewService(store kv.Store, logger *logging.Logger) *Service {
	if store == nil {
		panic("practice: kv store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, logger: logger}
}

// Payment returns the configured account or the default when none is saved.
func (s *Service) Payment(ctx context.Context) (PaymentConfig, error) {
	cfg := DefaultPaymentConfig()
	if _, err := kv.GetJSON(ctx, s.store, KeyPayment, &cfg); err != nil {
		return PaymentConfig{}, fmt.Errorf("practice: get payment config: %w", err)
	}
	return cfg, nil
}

func (s *Service) SetPayment(ctx context.Context, cfg PaymentConfig) error {
	if strings.TrimSpace(cfg.AccountName) == "" && strings.TrimSpace(cfg.QRCodeURL) == "" {
		return fmt.Errorf("%w: account name or qr code required", ErrInvalidConfig)
	}
	if err := kv.SetJSON(ctx, s.store, KeyPayment, cfg); err != nil {
		return fmt.Errorf("practice: save payment config: %w", err)
	}
	return nil
}

// Charity returns the charity program, falling back to the default template.
func (s *Service) Charity(ctx context.Context) (CharityProgram, error) {
	var program CharityProgram
	found, err := kv.GetJSON(ctx, s.store, KeyCharity, &program)
	if err != nil {
		return CharityProgram{}, fmt.Errorf("practice: get charity program: %w", err)
	}
	if !found {
		return DefaultCharityProgram(), nil
	}
	program.ensureMaps()
	return program, nil
}

func (s *Service) SetCharity(ctx context.Context, program CharityProgram) error {
	if err := program.validate(); err != nil {
		return err
	}
	program.ensureMaps()
	if err := kv.SetJSON(ctx, s.store, KeyCharity, program); err != nil {
		return fmt.Errorf("practice: save charity program: %w", err)
	}
	return nil
}

// RecordCharityUse counts one charity session for a client against a
// counselor. The check and the increment are one atomic update of the
// stored program, so concurrent calls cannot exceed the capacity.
func (s *Service) RecordCharityUse(ctx context.Context, counselorID, phone string) (CharityProgram, error) {
	phone = credits.NormalizePhone(phone)
	if phone == "" {
		return CharityProgram{}, ErrClientRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var program CharityProgram
	err := kv.UpdateJSON(ctx, s.store, KeyCharity, func(p *CharityProgram, found bool) error {
		if !found {
			*p = DefaultCharityProgram()
		}
		p.ensureMaps()
		if err := p.admit(counselorID, phone); err != nil {
			program = *p
			return err
		}
		p.Usage[counselorID]++
		p.ClientUsage[phone]++
		program = *p
		return nil
	})
	switch {
	case err == nil:
		return program, nil
	case errors.Is(err, ErrCharityDisabled), errors.Is(err, ErrNotParticipating),
		errors.Is(err, ErrCharityFull), errors.Is(err, ErrClientLimitReached):
		return program, err
	default:
		return CharityProgram{}, fmt.Errorf("practice: record charity use: %w", err)
	}
}

func (s *Service) Assistant(ctx context.Context) (AssistantQR, error) {
	var qr AssistantQR
	if _, err := kv.GetJSON(ctx, s.store, KeyAssistant, &qr); err != nil {
		return AssistantQR{}, fmt.Errorf("practice: get assistant qr: %w", err)
	}
	return qr, nil
}

func (s *Service) SetAssistant(ctx context.Context, qr AssistantQR) error {
	if err := kv.SetJSON(ctx, s.store, KeyAssistant, qr); err != nil {
		return fmt.Errorf("practice: save assistant qr: %w", err)
	}
	return nil
}

// Changes streams writes to practice keys until ctx ends.
func (s *Service) Changes(ctx context.Context) (<-chan kv.Change, error) {
	all, err := s.store.Subscribe(ctx)
	if err != nil {
		return nil, fmt.Errorf("practice: subscribe: %w", err)
	}
	out := make(chan kv.Change)
	go func() {
		defer close(out)
		for c := range all {
			if !strings.HasPrefix(c.Key, keyPrefix) {
				continue
			}
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Watch calls fn for every practice change until ctx ends. It blocks.
func (s *Service) Watch(ctx context.Context, fn func(kv.Change)) error {
	changes, err := s.Changes(ctx)
	if err != nil {
		return err
	}
	for c := range changes {
		fn(c)
	}
	return nil
}
