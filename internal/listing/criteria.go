// Package listing implements the pure in-memory filter, sort, and derived
// statistics layer applied to need and school collections. Every function is
// side-effect free and never fails: malformed records (missing timestamps,
// unrecognised enum values) degrade to defined orderings instead of errors.
package listing

// SentinelAll disables a predicate; an empty string behaves the same way.
const SentinelAll = "all"

// SortKey selects the ordering applied to a filtered collection.
type SortKey string

const (
	SortNewest   SortKey = "newest"
	SortOldest   SortKey = "oldest"
	SortPriority SortKey = "priority"
)

// NeedCriteria is a conjunction of predicates over a need collection. Enum
// fields match by exact value; Search matches case-insensitively against the
// concatenated title and description.
type NeedCriteria struct {
	Category    string
	Priority    string
	Status      string
	Governorate string
	Search      string
}

// SchoolCriteria is a conjunction of predicates over a school collection.
// Search matches against name, description, and address.
type SchoolCriteria struct {
	Governorate    string
	EducationLevel string
	Status         string
	Search         string
}

func active(value string) bool {
	return value != "" && value != SentinelAll
}
