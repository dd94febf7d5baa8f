package models

import "time"

// NeedCategory classifies the kind of support a school is asking for.
type NeedCategory string

const (
	NeedCategoryFurniture   NeedCategory = "furniture"
	NeedCategoryEquipment   NeedCategory = "equipment"
	NeedCategoryOutdoor     NeedCategory = "outdoor"
	NeedCategorySupplies    NeedCategory = "supplies"
	NeedCategoryMaintenance NeedCategory = "maintenance"
	NeedCategoryTechnology  NeedCategory = "technology"
	NeedCategoryOther       NeedCategory = "other"
)

// NeedCategories lists every accepted category value.
var NeedCategories = []NeedCategory{
	NeedCategoryFurniture,
	NeedCategoryEquipment,
	NeedCategoryOutdoor,
	NeedCategorySupplies,
	NeedCategoryMaintenance,
	NeedCategoryTechnology,
	NeedCategoryOther,
}

// NeedPriority orders needs by urgency.
type NeedPriority string

const (
	NeedPriorityLow    NeedPriority = "low"
	NeedPriorityMedium NeedPriority = "medium"
	NeedPriorityHigh   NeedPriority = "high"
)

// NeedStatus tracks fulfilment progress. Transitions are not constrained;
// an admin may move a need between any two statuses, including backwards.
type NeedStatus string

const (
	NeedStatusPending    NeedStatus = "pending"
	NeedStatusInProgress NeedStatus = "in_progress"
	NeedStatusFulfilled  NeedStatus = "fulfilled"
)

// ValidNeedCategory reports whether the value is a known category.
func ValidNeedCategory(value NeedCategory) bool {
	for _, c := range NeedCategories {
		if c == value {
			return true
		}
	}
	return false
}

// ValidNeedPriority reports whether the value is a known priority.
func ValidNeedPriority(value NeedPriority) bool {
	return value == NeedPriorityLow || value == NeedPriorityMedium || value == NeedPriorityHigh
}

// ValidNeedStatus reports whether the value is a known status.
func ValidNeedStatus(value NeedStatus) bool {
	return value == NeedStatusPending || value == NeedStatusInProgress || value == NeedStatusFulfilled
}

// Need represents one infrastructure request submitted by a school.
type Need struct {
	ID          string       `db:"id" json:"id"`
	SchoolID    string       `db:"school_id" json:"school_id"`
	Title       string       `db:"title" json:"title"`
	Description *string      `db:"description" json:"description,omitempty"`
	Category    NeedCategory `db:"category" json:"category"`
	Priority    NeedPriority `db:"priority" json:"priority"`
	Quantity    int          `db:"quantity" json:"quantity"`
	Status      NeedStatus   `db:"status" json:"status"`
	ImageURL    *string      `db:"image_url" json:"image_url,omitempty"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
	FulfilledAt *time.Time   `db:"fulfilled_at" json:"fulfilled_at,omitempty"`
}

// NeedDetail joins a need with context about its owning school.
type NeedDetail struct {
	Need
	SchoolName        string `db:"school_name" json:"school_name"`
	SchoolGovernorate string `db:"school_governorate" json:"school_governorate"`
}

// NeedFilter encapsulates search parameters for listing needs.
// SchoolStatus constrains the owning school; public reads set it to
// approved so needs of rejected schools never surface.
type NeedFilter struct {
	SchoolID     string
	Category     string
	Priority     string
	Status       string
	SchoolStatus SchoolStatus
	Governorate  string
	Search       string
	Sort         string
	Page         int
	PageSize     int
}
