package student

import (
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/coachdesk/core"
)

func newValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	return validate, translator
}

func validStudent() NewStudent {
	return NewStudent{
		FullName:       " Amani Kabila ",
		ParentName:     "Jo Kabila",
		Address:        "12 av. Kasa-Vubu",
		ContactNumber:  "0812345678",
		Fees:           150,
		EnrollmentDate: "2024-02-01",
	}
}

func TestNewStudent_Validate(t *testing.T) {
	validate, translator := newValidator()

	t.Run("defaults", func(t *testing.T) {
		ns := validStudent()
		ns.CourseID = null.StringFrom("  ")
		require.NoError(t, ns.Validate(validate))
		assert.Equal(t, "Amani Kabila", ns.FullName)
		assert.Equal(t, FeesUnpaid, ns.FeesStatus)
		assert.False(t, ns.CourseID.Valid)
	})

	tests := []struct {
		name      string
		mutate    func(*NewStudent)
		wantField string
		wantText  string
	}{
		{name: "short name", mutate: func(ns *NewStudent) { ns.FullName = "A" }, wantField: "full_name", wantText: "full_name must be at least 2 characters in length"},
		{name: "blank parent", mutate: func(ns *NewStudent) { ns.ParentName = "   " }, wantField: "parent_name", wantText: "this field may not be blank"},
		{name: "short address", mutate: func(ns *NewStudent) { ns.Address = "Gome" }, wantField: "address"},
		{name: "short contact", mutate: func(ns *NewStudent) { ns.ContactNumber = "081234" }, wantField: "contact_number"},
		{name: "negative fees", mutate: func(ns *NewStudent) { ns.Fees = -1 }, wantField: "fees"},
		{name: "bad date", mutate: func(ns *NewStudent) { ns.EnrollmentDate = "01/02/2024" }, wantField: "enrollment_date"},
		{name: "bad status", mutate: func(ns *NewStudent) { ns.FeesStatus = "overdue" }, wantField: "fees_status", wantText: "fees status must be one of: paid, unpaid, partial"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ns := validStudent()
			tt.mutate(&ns)
			err := ns.Validate(validate)
			require.Error(t, err)

			vErrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok)
			require.Len(t, vErrs, 1)
			assert.Equal(t, tt.wantField, vErrs[0].Field())
			if tt.wantText != "" {
				assert.Equal(t, tt.wantText, vErrs[0].Translate(translator))
			}
		})
	}
}

func TestStudent_SearchFields(t *testing.T) {
	s := Student{FullName: "Amani", ParentName: "Jo"}
	assert.Equal(t, []string{"Amani", "Jo"}, s.SearchFields())

	s.CourseName = null.StringFrom("Maths")
	assert.Equal(t, []string{"Amani", "Jo", "Maths"}, s.SearchFields())
}
