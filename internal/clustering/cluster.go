// Package clustering groups independent travel needs into candidate group trips.
package clustering

import (
	"strings"

	"travel-workers/internal/models"

	"github.com/google/uuid"
)

// MaxDepartureGapDays is how far a need may depart from a cluster's first need
// and still join it.
const MaxDepartureGapDays = 2

type cluster struct {
	city  string
	first models.TravelNeed
	needs []models.TravelNeed
}

// Cluster makes a single greedy pass: each need joins the first cluster with
// the same destination city whose first need departs within two days, or
// starts a new one. Only clusters spanning two or more users become groups.
// The first-match rule is kept on purpose so detection stays reproducible.
func Cluster(needs []models.TravelNeed) []models.TravelGroup {
	var clusters []*cluster

	for _, need := range needs {
		city := normalizeCity(need.DestinationCity)
		if city == "" {
			continue
		}

		var target *cluster
		for _, c := range clusters {
			if c.city == city && withinGap(c.first.DepartureDate, need.DepartureDate) {
				target = c
				break
			}
		}
		if target == nil {
			target = &cluster{city: city, first: need}
			clusters = append(clusters, target)
		}
		target.needs = append(target.needs, need)
	}

	groups := make([]models.TravelGroup, 0, len(clusters))
	for _, c := range clusters {
		if g, ok := c.toGroup(); ok {
			groups = append(groups, g)
		}
	}
	return groups
}

func (c *cluster) toGroup() (models.TravelGroup, bool) {
	members := distinctUsers(c.needs)
	if len(members) < 2 {
		return models.TravelGroup{}, false
	}

	group := models.TravelGroup{
		ID:              uuid.NewString(),
		DestinationCity: c.first.DestinationCity,
		DepartureDate:   c.first.DepartureDate,
		Needs:           append([]models.TravelNeed(nil), c.needs...),
		MemberIDs:       members,
	}
	for _, n := range c.needs {
		if group.DestinationAirport == "" && n.DestinationAirport != "" {
			group.DestinationAirport = strings.ToUpper(n.DestinationAirport)
		}
		if n.ReturnDate != nil && (group.ReturnDate == nil || n.ReturnDate.After(group.ReturnDate.Time)) {
			ret := *n.ReturnDate
			group.ReturnDate = &ret
		}
	}
	return group, true
}

func withinGap(a, b models.Date) bool {
	gap := a.DaysUntil(b)
	if gap < 0 {
		gap = -gap
	}
	return gap <= MaxDepartureGapDays
}

func normalizeCity(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}

func distinctUsers(needs []models.TravelNeed) []string {
	seen := make(map[string]bool, len(needs))
	out := make([]string, 0, len(needs))
	for _, n := range needs {
		if n.UserID == "" || seen[n.UserID] {
			continue
		}
		seen[n.UserID] = true
		out = append(out, n.UserID)
	}
	return out
}
