package listing

import (
	"math"

	"github.com/shams-connect/school-needs-api/internal/models"
)

// NeedStats aggregates counts over a need collection for dashboard cards.
type NeedStats struct {
	Total              int                        `json:"total"`
	ByStatus           map[models.NeedStatus]int  `json:"by_status"`
	HighPriority       int                        `json:"high_priority"`
	Urgent             int                        `json:"urgent"`
	FulfillmentRate    int                        `json:"fulfillment_rate"`
	MostCommonCategory models.NeedCategory        `json:"most_common_category,omitempty"`
	ByCategory         map[models.NeedCategory]int `json:"by_category"`
}

// SchoolStats aggregates counts over a school collection.
type SchoolStats struct {
	Total              int                         `json:"total"`
	ByStatus           map[models.SchoolStatus]int `json:"by_status"`
	ApprovalPercentage int                         `json:"approval_percentage"`
	TotalStudents      int                         `json:"total_students"`
}

// NeedStatistics computes aggregates in one pass over the collection.
// The fulfillment rate is a rounded percentage; an empty collection yields 0
// rather than a division error. The most common category is decided by the
// first category to reach the maximum count in scan order.
func NeedStatistics(needs []models.NeedDetail) NeedStats {
	stats := NeedStats{
		ByStatus:   make(map[models.NeedStatus]int),
		ByCategory: make(map[models.NeedCategory]int),
	}

	var maxCount int
	for _, need := range needs {
		stats.Total++
		stats.ByStatus[need.Status]++
		if need.Priority == models.NeedPriorityHigh {
			stats.HighPriority++
			if need.Status == models.NeedStatusPending {
				stats.Urgent++
			}
		}
		stats.ByCategory[need.Category]++
		if stats.ByCategory[need.Category] > maxCount {
			maxCount = stats.ByCategory[need.Category]
			stats.MostCommonCategory = need.Category
		}
	}

	stats.FulfillmentRate = roundedPercentage(stats.ByStatus[models.NeedStatusFulfilled], stats.Total)
	return stats
}

// SchoolStatistics computes aggregate counts and the approval percentage.
func SchoolStatistics(schools []models.School) SchoolStats {
	stats := SchoolStats{ByStatus: make(map[models.SchoolStatus]int)}
	for _, school := range schools {
		stats.Total++
		stats.ByStatus[school.Status]++
		stats.TotalStudents += school.StudentCount
	}
	stats.ApprovalPercentage = roundedPercentage(stats.ByStatus[models.SchoolStatusApproved], stats.Total)
	return stats
}

func roundedPercentage(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(total)))
}
