package payment

import (
	"encoding/base64"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/coachdesk/core/listing"
)

func TestTotal_overFilteredPayments(t *testing.T) {
	payments := []Payment{
		{ID: "1", StudentName: null.StringFrom("Amani"), Amount: 100},
		{ID: "2", StudentName: null.StringFrom("Bea"), Amount: 50, Notes: null.StringFrom("late")},
	}

	assert.Equal(t, 150.0, Total(payments))
	assert.Equal(t, 50.0, Total(listing.Filter(payments, "late")))
	assert.Equal(t, 0.0, Total(listing.Filter(payments, "nobody")))
}

func TestPayment_SearchFields(t *testing.T) {
	assert.Empty(t, Payment{}.SearchFields())
	assert.Equal(t, []string{"late"}, Payment{Notes: null.StringFrom("late")}.SearchFields())
	assert.Equal(t, []string{"Bea", "late"}, Payment{StudentName: null.StringFrom("Bea"), Notes: null.StringFrom("late")}.SearchFields())
}

func TestNewReceipt(t *testing.T) {
	p := Payment{ID: "7", StudentID: "s1", StudentName: null.StringFrom("Bea Lumumba"), Amount: 50, PaymentDate: "2024-03-01"}
	to := mail.Address{Name: "Staff", Address: "staff@test.cd"}

	msg, err := NewReceipt(p, to)
	require.NoError(t, err)
	assert.Equal(t, []mail.Address{to}, msg.To)
	assert.Equal(t, "Payment receipt #7", msg.Subject)

	require.NoError(t, msg.Render("CoachDesk"))
	assert.Contains(t, msg.TextContent, "Bea Lumumba")
	assert.Contains(t, msg.TextContent, "50.00")
	assert.NotContains(t, msg.TextContent, "Notes:")
	assert.Contains(t, msg.HTMLContent, "Payment receipt #7")

	require.Len(t, msg.Attachments, 1)
	at := msg.Attachments[0]
	assert.Equal(t, "receipt-7.csv", at.Filename)
	assert.Equal(t, "text/csv", at.ContentType)
	content, err := base64.StdEncoding.DecodeString(at.Content.String())
	require.NoError(t, err)
	assert.Equal(t, "id,student,amount,payment_date,notes\n7,Bea Lumumba,50.00,2024-03-01,\n", string(content))
}
