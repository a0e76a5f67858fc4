package student

import (
	"fmt"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/coachdesk/core"
)

type FeesStatus string

const (
	FeesPaid    FeesStatus = "paid"
	FeesUnpaid  FeesStatus = "unpaid"
	FeesPartial FeesStatus = "partial"
)

var FeesStatuses = []FeesStatus{FeesPaid, FeesUnpaid, FeesPartial}

// Badge is how a fees status is presented.
type Badge string

const (
	BadgePositive Badge = "positive" // emphasized
	BadgeNeutral  Badge = "neutral"  // outline
	BadgeNegative Badge = "negative" // destructive
)

var ErrUnknownFeesStatus = errors.New("unknown fees status")

func (s FeesStatus) Valid() bool {
	switch s {
	case FeesPaid, FeesUnpaid, FeesPartial:
		return true
	}
	return false
}

// Badge maps the status to its presentation. Unknown statuses are an error.
func (s FeesStatus) Badge() (Badge, error) {
	switch s {
	case FeesPaid:
		return BadgePositive, nil
	case FeesPartial:
		return BadgeNeutral, nil
	case FeesUnpaid:
		return BadgeNegative, nil
	}
	return "", errors.Wrap(ErrUnknownFeesStatus, fmt.Sprintf("%q", string(s)))
}

var (
	feesStatusTag  = "fees_status"
	feesStatusText = "fees status must be one of: paid, unpaid, partial"
)

// InitValidators registers the student validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(feesStatusTag, func(fl validator.FieldLevel) bool {
		return FeesStatus(fl.Field().String()).Valid()
	})
	core.RegisterCustomTranslation(validate, translator, feesStatusTag, feesStatusText)
}
