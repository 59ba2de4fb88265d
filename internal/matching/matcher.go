package matching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/banyan-booking/internal/counselors"
	"github.com/wolfman30/banyan-booking/pkg/logging"
)

// MaxRecommendations caps how many counselors a match returns.
const MaxRecommendations = 2

var (
	ErrEmptyDescription = errors.New("matching: description is required")
	ErrNoMatch          = errors.New("matching: no usable recommendation")
)

// Result is a recommendation for a client description.
type Result struct {
	Reason       string   `json:"reason"`
	CounselorIDs []string `json:"counselor_ids"`
}

// Matcher recommends counselors for a free-text description.
type Matcher interface {
	Match(ctx context.Context, description string) (*Result, error)
}

// CounselorLister supplies the directory the matcher chooses from.
type CounselorLister interface {
	List(ctx context.Context) ([]counselors.Counselor, error)
}

// textGenerator produces a JSON answer for a prompt.
type textGenerator interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// GeminiMatcher asks Gemini to pick from the directory.
type GeminiMatcher struct {
	gen       textGenerator
	directory CounselorLister
	logger    *logging.Logger
}

func newMatcherWithGenerator(gen textGenerator, directory CounselorLister, logger *logging.Logger) *GeminiMatcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &GeminiMatcher{gen: gen, directory: directory, logger: logger}
}

type counselorSummary struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Specialties []string `json:"specialties"`
	Tags        []string `json:"tags"`
	Bio         string   `json:"bio"`
}

type answer struct {
	Reason       string   `json:"reason"`
	CounselorIDs []string `json:"counselorIds"`
}

// Match returns at most two known counselor ids with a short reason.
func (m *GeminiMatcher) Match(ctx context.Context, description string) (*Result, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, ErrEmptyDescription
	}
	list, err := m.directory.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("matching: list counselors: %w", err)
	}

	prompt, known, err := buildPrompt(list, description)
	if err != nil {
		return nil, err
	}
	raw, err := m.gen.GenerateJSON(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("matching: generate: %w", err)
	}

	var ans answer
	if err := json.Unmarshal([]byte(extractJSON(raw)), &ans); err != nil {
		m.logger.Warn("unparseable match answer", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrNoMatch, err)
	}

	result := &Result{Reason: strings.TrimSpace(ans.Reason), CounselorIDs: []string{}}
	seen := make(map[string]bool)
	for _, id := range ans.CounselorIDs {
		id = strings.TrimSpace(id)
		if !known[id] || seen[id] {
			continue
		}
		seen[id] = true
		result.CounselorIDs = append(result.CounselorIDs, id)
		if len(result.CounselorIDs) == MaxRecommendations {
			break
		}
	}
	if len(result.CounselorIDs) == 0 {
		return nil, ErrNoMatch
	}
	return result, nil
}

func buildPrompt(list []counselors.Counselor, description string) (string, map[string]bool, error) {
	known := make(map[string]bool, len(list))
	summaries := make([]counselorSummary, 0, len(list))
	for _, c := range list {
		known[c.ID] = true
		summaries = append(summaries, counselorSummary{
			ID:          c.ID,
			Name:        c.Name,
			Specialties: c.Specialties,
			Tags:        c.Tags,
			Bio:         c.Bio,
		})
	}
	data, err := json.Marshal(summaries)
	if err != nil {
		return "", nil, fmt.Errorf("matching: encode directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("You are an intake guide for a counseling practice. A client is describing what troubles them.\n")
	b.WriteString("Recommend the one or two most suitable counselors from the directory below.\n\n")
	b.WriteString("Directory: ")
	b.Write(data)
	b.WriteString("\nClient description: ")
	quoted, _ := json.Marshal(description)
	b.Write(quoted)
	b.WriteString("\n\nAnswer with JSON only: {\"reason\": \"short, warm and professional\", \"counselorIds\": [\"ID1\", \"ID2\"]}")
	return b.String(), known, nil
}

// extractJSON strips markdown fences some models wrap around JSON.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if start := strings.Index(s, "{"); start >= 0 {
		if end := strings.LastIndex(s, "}"); end > start {
			return s[start : end+1]
		}
	}
	return s
}
