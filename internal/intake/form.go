package intake

import (
	"crypto/rand"
	"math/big"
	"time"
)

// ExtremeThoughts answers the risk screening question.
type ExtremeThoughts string

const (
	ThoughtsNone     ExtremeThoughts = "none"
	ThoughtsIdeation ExtremeThoughts = "ideation"
	ThoughtsBehavior ExtremeThoughts = "behavior"
)

// Form is the client intake questionnaire.
type Form struct {
	RealName              string          `json:"real_name" validate:"required,max=64"`
	Gender                string          `json:"gender" validate:"omitempty,oneof=male female diverse unspecified"`
	Age                   string          `json:"age" validate:"omitempty,numeric,max=3"`
	Education             string          `json:"education" validate:"max=64"`
	Phone                 string          `json:"phone" validate:"required,min=5,max=32"`
	EmergencyContact      string          `json:"emergency_contact" validate:"required,max=64"`
	EmergencyRelation     string          `json:"emergency_relation" validate:"required,max=32"`
	EmergencyPhone        string          `json:"emergency_phone" validate:"required,min=5,max=32"`
	IsVoluntary           bool            `json:"is_voluntary"`
	HasKnowledge          bool            `json:"has_knowledge"`
	HasExperience         bool            `json:"has_experience"`
	HelpTopics            []string        `json:"help_topics" validate:"dive,required,max=64"`
	ExtremeThoughts       ExtremeThoughts `json:"extreme_thoughts" validate:"required,oneof=none ideation behavior"`
	MedicalHistory        string          `json:"medical_history" validate:"max=2000"`
	AgreedConfidentiality bool            `json:"agreed_confidentiality" validate:"required"`
	AgreedEthical         bool            `json:"agreed_ethical" validate:"required"`
	SignatureData         string          `json:"signature_data" validate:"required"`
}

// Submission is a signed form with its receipt hash.
type Submission struct {
	Form
	SubmittedAt time.Time `json:"submitted_at"`
	Hash        string    `json:"hash"`
}

const (
	hashPrefix   = "BANYAN-E-"
	hashLen      = 9
	hashAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// NewHash returns a receipt hash like BANYAN-E-4K2Q9ZP1X.
func NewHash() string {
	buf := make([]byte, hashLen)
	max := big.NewInt(int64(len(hashAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err)
		}
		buf[i] = hashAlphabet[n.Int64()]
	}
	return hashPrefix + string(buf)
}
