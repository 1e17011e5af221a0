// internal/workers/travel/detect-groups/models.go
package detectgroups

import "travel-workers/internal/models"

type Input struct {
	OrganizationID string `json:"organizationId"`
}

type Output struct {
	Groups     []models.TravelGroup `json:"groups"`
	GroupCount int                  `json:"groupCount"`
}
