package counselors

import "fmt"

var slotDays = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// WeeklySlots lists half-hour slots from 09:00 to 21:30 on every day.
func WeeklySlots() []Slot {
	slots := make([]Slot, 0, len(slotDays)*26)
	for _, day := range slotDays {
		for h := 9; h <= 21; h++ {
			for _, m := range []int{0, 30} {
				t := fmt.Sprintf("%02d:%02d", h, m)
				slots = append(slots, Slot{ID: day + "-" + t, Day: day, Time: t})
			}
		}
	}
	return slots
}

// Seed returns the launch directory.
func Seed() []Counselor {
	return []Counselor{
		{
			ID:              "1",
			SerialNumber:    "BY-001",
			Name:            "Sienna Guo",
			Title:           "Counselor",
			ExperienceYears: 8,
			SessionHours:    1200,
			Specialties:     []string{"Deep accompaniment", "Psychodynamic", "Talent empowerment"},
			Tags:            []string{"Curated"},
			Training: []string{
				"IPA candidate training program",
				"Sino-German psychoanalytic continuing program",
				"Complex trauma (C-PTSD) clinical intervention",
			},
			Bio:             "The art of counseling lies in judging timing, strategy and dosage with care.",
			Education:       "M.A., East China Normal University",
			PriceCents:      60000,
			TrialPriceCents: 19900,
			Rating:          5.0,
			Available:       true,
			Slots:           WeeklySlots(),
		},
		{
			ID:              "6",
			SerialNumber:    "BY-006",
			Name:            "Shen Zhiqiu",
			Title:           "Senior Specialist",
			ExperienceYears: 12,
			SessionHours:    2500,
			Specialties:     []string{"Complex trauma", "Identity", "Emotion regulation"},
			Tags:            []string{"Curated"},
			Training: []string{
				"CAPA advanced group",
				"Self psychology continuing training",
				"DBT clinical application",
			},
			Bio:             "Steady presence inside a stable frame of work.",
			Education:       "M.A., Sun Yat-sen University",
			PriceCents:      80000,
			TrialPriceCents: 29900,
			Rating:          4.9,
			Available:       true,
			Slots:           WeeklySlots(),
		},
	}
}
