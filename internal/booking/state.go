package booking

import (
	"fmt"
	"strings"
)

// Stage names the step of the booking flow.
type Stage string

const (
	StageProfile   Stage = "profile"
	StagePackages  Stage = "packages"
	StagePayment   Stage = "payment"
	StageAssistant Stage = "assistant"
	StageIntake    Stage = "intake"
	StageSuccess   Stage = "success"
	// StageCrisis is reserved for a risk-disclosure flow; no transition enters it yet.
	StageCrisis Stage = "crisis"
)

// PaymentMethod is display-only; verification ignores it.
type PaymentMethod string

const (
	MethodQR       PaymentMethod = "qr"
	MethodTransfer PaymentMethod = "transfer"
)

// ParsePaymentMethod accepts qr or transfer, case-insensitively.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(strings.ToLower(strings.TrimSpace(s))) {
	case MethodQR:
		return MethodQR, nil
	case MethodTransfer:
		return MethodTransfer, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, s)
}

// Slot is the chosen day and time labels.
type Slot struct {
	Day  string `json:"day" validate:"required"`
	Time string `json:"time" validate:"required"`
}

// State is the booking flow position. Each stage carries only the fields
// that are meaningful in it.
type State interface {
	Stage() Stage
	sealed()
}

type Profile struct {
	Slot *Slot
}

type Packages struct {
	Slot         Slot
	SessionCount int
	Method       PaymentMethod
}

type Payment struct {
	Slot         Slot
	SessionCount int
	Method       PaymentMethod
	OrderID      string
	// Verified only moves from false to true for a given order.
	Verified bool
	// Checking is set while a manual check is in flight.
	Checking bool
	// Settling is set while a verified order is being credited.
	Settling bool
}

type Assistant struct {
	OrderID      string
	SessionCount int
}

type Intake struct {
	OrderID      string
	SessionCount int
}

type Success struct {
	OrderID string
}

type Crisis struct{}

func (Profile) Stage() Stage   { return StageProfile }
func (Packages) Stage() Stage  { return StagePackages }
func (Payment) Stage() Stage   { return StagePayment }
func (Assistant) Stage() Stage { return StageAssistant }
func (Intake) Stage() Stage    { return StageIntake }
func (Success) Stage() Stage   { return StageSuccess }
func (Crisis) Stage() Stage    { return StageCrisis }

func (Profile) sealed()   {}
func (Packages) sealed()  {}
func (Payment) sealed()   {}
func (Assistant) sealed() {}
func (Intake) sealed()    {}
func (Success) sealed()   {}
func (Crisis) sealed()    {}
