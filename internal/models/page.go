package models

import "time"

// Page represents a bilingual custom content page served by slug.
type Page struct {
	ID        string    `db:"id" json:"id"`
	Slug      string    `db:"slug" json:"slug"`
	TitleEN   string    `db:"title_en" json:"title_en"`
	TitleAR   string    `db:"title_ar" json:"title_ar"`
	BodyEN    string    `db:"body_en" json:"body_en"`
	BodyAR    string    `db:"body_ar" json:"body_ar"`
	Published bool      `db:"published" json:"published"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
