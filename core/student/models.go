package student

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/coachdesk/core"
)

// DateLayout is the layout of calendar dates (no time of day) exchanged with the console.
const DateLayout = "2006-01-02"

type Student struct {
	ID             string      `json:"id" db:"id"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	FullName       string      `json:"full_name" db:"full_name"`
	ParentName     string      `json:"parent_name" db:"parent_name"`
	Address        string      `json:"address" db:"address"`
	ContactNumber  string      `json:"contact_number" db:"contact_number"`
	CourseID       null.String `json:"course_id" db:"course_id"`
	CourseName     null.String `json:"course_name" db:"course_name"` // joined, read-only
	Fees           float64     `json:"fees" db:"fees"`
	EnrollmentDate string      `json:"enrollment_date" db:"enrollment_date"`
	FeesStatus     FeesStatus  `json:"fees_status" db:"fees_status"`
}

// SearchFields implements listing.Searchable.
func (s Student) SearchFields() []string {
	flds := []string{s.FullName, s.ParentName}
	if s.CourseName.Valid {
		flds = append(flds, s.CourseName.String)
	}
	return flds
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	FullName       string      `json:"full_name" validate:"notblank,min=2"`
	ParentName     string      `json:"parent_name" validate:"notblank,min=2"`
	Address        string      `json:"address" validate:"notblank,min=5"`
	ContactNumber  string      `json:"contact_number" validate:"notblank,min=10"`
	CourseID       null.String `json:"course_id"`
	Fees           float64     `json:"fees" validate:"gte=0"`
	EnrollmentDate string      `json:"enrollment_date" validate:"required,datetime=2006-01-02"`
	FeesStatus     FeesStatus  `json:"fees_status" validate:"fees_status"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.FullName = core.CleanString(ns.FullName)
	ns.ParentName = core.CleanString(ns.ParentName)
	ns.Address = core.CleanString(ns.Address)
	ns.ContactNumber = core.CleanString(ns.ContactNumber)
	ns.EnrollmentDate = core.CleanString(ns.EnrollmentDate)
	if ns.EnrollmentDate == "" {
		ns.EnrollmentDate = time.Now().UTC().Format(DateLayout)
	}
	if ns.FeesStatus == "" {
		ns.FeesStatus = FeesUnpaid
	}
	// an empty course reference means "not assigned"
	if ns.CourseID.Valid && core.CleanString(ns.CourseID.String) == "" {
		ns.CourseID = null.String{}
	}
	return validate.Struct(ns)
}

// UpdateStudent replaces every editable field of a Student: a null course_id unassigns the course.
type UpdateStudent = NewStudent

// Row is a Student as listed by the console, with the presentation of its fees status.
type Row struct {
	Student
	Badge Badge `json:"badge"`
}

// NewRows decorates students with their status badge.
func NewRows(students []Student) ([]Row, error) {
	rows := make([]Row, 0, len(students))
	for _, s := range students {
		b, err := s.FeesStatus.Badge()
		if err != nil {
			return nil, err
		}
		rows = append(rows, Row{Student: s, Badge: b})
	}
	return rows, nil
}
