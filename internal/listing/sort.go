package listing

import (
	"sort"

	"github.com/shams-connect/school-needs-api/internal/models"
)

// PriorityRank maps priorities to their sort rank; high urgency sorts first.
// Unknown values rank below every known priority instead of failing.
func PriorityRank(priority models.NeedPriority) int {
	switch priority {
	case models.NeedPriorityHigh:
		return 1
	case models.NeedPriorityMedium:
		return 2
	case models.NeedPriorityLow:
		return 3
	default:
		return 4
	}
}

// SortNeeds returns a newly ordered copy of the collection. The sort is
// stable: records with equal keys keep their relative order. Zero timestamps
// compare as the lowest possible instant.
func SortNeeds(needs []models.NeedDetail, key SortKey) []models.NeedDetail {
	out := make([]models.NeedDetail, len(needs))
	copy(out, needs)

	switch key {
	case SortOldest:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		})
	case SortPriority:
		sort.SliceStable(out, func(i, j int) bool {
			return PriorityRank(out[i].Priority) < PriorityRank(out[j].Priority)
		})
	default: // SortNewest
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	}
	return out
}

// SortSchools orders schools by registration time; priority has no meaning
// for schools and falls back to newest-first.
func SortSchools(schools []models.School, key SortKey) []models.School {
	out := make([]models.School, len(schools))
	copy(out, schools)

	switch key {
	case SortOldest:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	}
	return out
}

// ParseSortKey normalises a raw query value; unknown values default to newest.
func ParseSortKey(raw string) SortKey {
	switch SortKey(raw) {
	case SortOldest:
		return SortOldest
	case SortPriority:
		return SortPriority
	default:
		return SortNewest
	}
}
