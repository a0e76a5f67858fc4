package payment

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/coachdesk/core"
	"github.com/trezcool/coachdesk/core/listing"
)

type Payment struct {
	ID          string      `json:"id" db:"id"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	StudentID   string      `json:"student_id" db:"student_id"`
	StudentName null.String `json:"student_name" db:"student_name"` // joined, read-only
	Amount      float64     `json:"amount" db:"amount"`
	PaymentDate string      `json:"payment_date" db:"payment_date"`
	Notes       null.String `json:"notes" db:"notes"`
}

// SearchFields implements listing.Searchable.
func (p Payment) SearchFields() []string {
	flds := make([]string, 0, 2)
	if p.StudentName.Valid {
		flds = append(flds, p.StudentName.String)
	}
	if p.Notes.Valid {
		flds = append(flds, p.Notes.String)
	}
	return flds
}

// Total sums the payment amounts.
func Total(payments []Payment) float64 {
	return listing.Sum(payments, func(p Payment) float64 { return p.Amount })
}

// NewPayment contains information needed to record a Payment.
type NewPayment struct {
	StudentID   string      `json:"student_id" validate:"required,notblank"`
	Amount      float64     `json:"amount" validate:"gt=0"`
	PaymentDate string      `json:"payment_date" validate:"required,datetime=2006-01-02"`
	Notes       null.String `json:"notes"`
}

func (np *NewPayment) Validate(validate *validator.Validate) error {
	np.StudentID = core.CleanString(np.StudentID)
	np.PaymentDate = core.CleanString(np.PaymentDate)
	if np.Notes.Valid {
		if notes := core.CleanString(np.Notes.String); notes != "" {
			np.Notes = null.StringFrom(notes)
		} else {
			np.Notes = null.String{}
		}
	}
	return validate.Struct(np)
}
