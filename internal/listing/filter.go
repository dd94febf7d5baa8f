package listing

import (
	"strings"

	"github.com/shams-connect/school-needs-api/internal/models"
)

// FilterNeeds returns the subsequence of needs for which every active
// predicate holds, preserving relative order. An empty result is a valid
// outcome, not an error.
func FilterNeeds(needs []models.NeedDetail, criteria NeedCriteria) []models.NeedDetail {
	search := strings.ToLower(strings.TrimSpace(criteria.Search))
	out := make([]models.NeedDetail, 0, len(needs))
	for _, need := range needs {
		if active(criteria.Category) && string(need.Category) != criteria.Category {
			continue
		}
		if active(criteria.Priority) && string(need.Priority) != criteria.Priority {
			continue
		}
		if active(criteria.Status) && string(need.Status) != criteria.Status {
			continue
		}
		if active(criteria.Governorate) && need.SchoolGovernorate != criteria.Governorate {
			continue
		}
		if search != "" {
			haystack := need.Title
			if need.Description != nil {
				haystack += " " + *need.Description
			}
			if !strings.Contains(strings.ToLower(haystack), search) {
				continue
			}
		}
		out = append(out, need)
	}
	return out
}

// FilterSchools returns the subsequence of schools matching every active
// predicate, preserving relative order.
func FilterSchools(schools []models.School, criteria SchoolCriteria) []models.School {
	search := strings.ToLower(strings.TrimSpace(criteria.Search))
	out := make([]models.School, 0, len(schools))
	for _, school := range schools {
		if active(criteria.Governorate) && school.Governorate != criteria.Governorate {
			continue
		}
		if active(criteria.EducationLevel) && string(school.EducationLevel) != criteria.EducationLevel {
			continue
		}
		if active(criteria.Status) && string(school.Status) != criteria.Status {
			continue
		}
		if search != "" {
			haystack := school.Name
			if school.Description != nil {
				haystack += " " + *school.Description
			}
			haystack += " " + school.Address
			if !strings.Contains(strings.ToLower(haystack), search) {
				continue
			}
		}
		out = append(out, school)
	}
	return out
}
