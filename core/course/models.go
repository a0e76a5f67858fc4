package course

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/coachdesk/core"
)

type Course struct {
	ID          string      `json:"id" db:"id"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	Name        string      `json:"name" db:"name"`
	Duration    string      `json:"duration" db:"duration"`
	Fees        float64     `json:"fees" db:"fees"`
	Description null.String `json:"description" db:"description"`
	// StudentCount is only known when queried with the student count
	StudentCount null.Int `json:"student_count" db:"student_count"`
}

// SearchFields implements listing.Searchable.
func (c Course) SearchFields() []string {
	if c.Description.Valid {
		return []string{c.Name, c.Description.String}
	}
	return []string{c.Name}
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Name        string      `json:"name" validate:"required,notblank"`
	Duration    string      `json:"duration" validate:"required,notblank"`
	Fees        float64     `json:"fees" validate:"gte=0"`
	Description null.String `json:"description"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Duration = core.CleanString(nc.Duration)
	if nc.Description.Valid {
		if desc := core.CleanString(nc.Description.String); desc != "" {
			nc.Description = null.StringFrom(desc)
		} else {
			nc.Description = null.String{}
		}
	}
	return validate.Struct(nc)
}

// UpdateCourse replaces every editable field of a Course.
type UpdateCourse = NewCourse
