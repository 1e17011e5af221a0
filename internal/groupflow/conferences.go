package groupflow

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"travel-workers/internal/models"
)

// MaxBackToBackGapDays is the widest gap between one conference's end and the
// next one's start that still counts as back-to-back.
const MaxBackToBackGapDays = 5

type conferenceMatcher struct {
	re *regexp.Regexp
}

func newConferenceMatcher(keywords []string) conferenceMatcher {
	quoted := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			quoted = append(quoted, regexp.QuoteMeta(strings.ToLower(k)))
		}
	}
	if len(quoted) == 0 {
		return conferenceMatcher{}
	}
	return conferenceMatcher{re: regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)s?\b`)}
}

func (m conferenceMatcher) matches(n models.TravelNeed) bool {
	if m.re == nil {
		return false
	}
	return m.re.MatchString(n.EventTitle) || m.re.MatchString(n.Reasoning)
}

// DetectConferences keeps the needs that look like conferences, one per event.
func DetectConferences(needs []models.TravelNeed, keywords []string) []models.Conference {
	m := newConferenceMatcher(keywords)
	seen := make(map[string]bool)
	var out []models.Conference

	for _, n := range needs {
		if !m.matches(n) || strings.TrimSpace(n.DestinationCity) == "" {
			continue
		}
		key := n.EventID
		if key == "" {
			key = strings.ToLower(n.EventTitle) + "|" + n.DepartureDate.String()
		}
		if seen[key] {
			continue
		}
		seen[key] = true

		end := n.DepartureDate
		if n.ReturnDate != nil && !n.ReturnDate.Before(n.DepartureDate.Time) {
			end = *n.ReturnDate
		}
		title := n.EventTitle
		if title == "" {
			title = fmt.Sprintf("Trip to %s", n.DestinationCity)
		}
		out = append(out, models.Conference{
			EventID:   n.EventID,
			Title:     title,
			City:      n.DestinationCity,
			StartDate: n.DepartureDate,
			EndDate:   end,
			Need:      n,
		})
	}
	return out
}

// BackToBackNote reports the first adjacent pair, by start date, whose gap is
// within MaxBackToBackGapDays. Later qualifying pairs are not mentioned.
func BackToBackNote(conferences []models.Conference) string {
	if len(conferences) < 2 {
		return ""
	}
	sorted := append([]models.Conference(nil), conferences...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartDate.Before(sorted[j].StartDate.Time)
	})

	for i := 1; i < len(sorted); i++ {
		prev, next := sorted[i-1], sorted[i]
		gap := prev.EndDate.DaysUntil(next.StartDate)
		if gap < 0 || gap > MaxBackToBackGapDays {
			continue
		}
		return fmt.Sprintf(
			"Back-to-back opportunity: %s in %s ends %s and %s in %s starts %s (%d days later). Consider flying between them instead of returning home.",
			prev.Title, prev.City, prev.EndDate, next.Title, next.City, next.StartDate, gap,
		)
	}
	return ""
}
