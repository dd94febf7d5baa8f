package models

import "time"

// SchoolStatus tracks the moderation state of a school registration.
type SchoolStatus string

const (
	SchoolStatusPending  SchoolStatus = "pending"
	SchoolStatusApproved SchoolStatus = "approved"
	SchoolStatusRejected SchoolStatus = "rejected"
)

// EducationLevel describes the stage of schooling an institution covers.
type EducationLevel string

const (
	EducationLevelPrimary    EducationLevel = "primary"
	EducationLevelMiddle     EducationLevel = "middle"
	EducationLevelHighSchool EducationLevel = "high_school"
	EducationLevelMixed      EducationLevel = "mixed"
)

// Governorates lists the 14 Syrian administrative regions a school may
// belong to. Stored values are the lowercase keys.
var Governorates = []string{
	"damascus",
	"rif_dimashq",
	"aleppo",
	"homs",
	"hama",
	"latakia",
	"tartus",
	"idlib",
	"deir_ez_zor",
	"raqqa",
	"hasakah",
	"daraa",
	"sweida",
	"quneitra",
}

// ValidGovernorate reports whether the value is one of the fixed regions.
func ValidGovernorate(value string) bool {
	for _, g := range Governorates {
		if g == value {
			return true
		}
	}
	return false
}

// School represents an institution record owned by a principal.
type School struct {
	ID             string         `db:"id" json:"id"`
	PrincipalID    string         `db:"principal_id" json:"principal_id"`
	Name           string         `db:"name" json:"name"`
	Address        string         `db:"address" json:"address"`
	Governorate    string         `db:"governorate" json:"governorate"`
	EducationLevel EducationLevel `db:"education_level" json:"education_level"`
	StudentCount   int            `db:"student_count" json:"student_count"`
	Phone          *string        `db:"phone" json:"phone,omitempty"`
	Email          *string        `db:"email" json:"email,omitempty"`
	Description    *string        `db:"description" json:"description,omitempty"`
	ImageURL       *string        `db:"image_url" json:"image_url,omitempty"`
	Status         SchoolStatus   `db:"status" json:"status"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// SchoolFilter encapsulates search parameters for listing schools.
type SchoolFilter struct {
	Search         string
	Governorate    string
	EducationLevel string
	Status         *SchoolStatus
	PrincipalID    string
	Sort           string
	Page           int
	PageSize       int
}
