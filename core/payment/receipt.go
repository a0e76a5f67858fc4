package payment

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/mail"
	"strconv"

	"github.com/pkg/errors"

	"github.com/trezcool/coachdesk/core"
)

const receiptTemplate = "payment_receipt"

type receiptData struct {
	ID          string
	Student     string
	Amount      float64
	PaymentDate string
	Notes       string
}

// NewReceipt builds the receipt email of p, with a CSV copy attached.
func NewReceipt(p Payment, to ...mail.Address) (*core.EmailMessage, error) {
	data := receiptData{
		ID:          p.ID,
		Student:     p.StudentName.String,
		Amount:      p.Amount,
		PaymentDate: p.PaymentDate,
		Notes:       p.Notes.String,
	}
	if data.Student == "" {
		data.Student = p.StudentID
	}

	msg := &core.EmailMessage{
		To:           to,
		Subject:      fmt.Sprintf("Payment receipt #%s", p.ID),
		TemplateName: receiptTemplate,
		TemplateData: data,
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"id", "student", "amount", "payment_date", "notes"})
	_ = w.Write([]string{data.ID, data.Student, strconv.FormatFloat(data.Amount, 'f', 2, 64), data.PaymentDate, data.Notes})
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errors.Wrap(err, "writing receipt csv")
	}
	if err := msg.Attach(&buf, "receipt-"+p.ID+".csv", "text/csv"); err != nil {
		return nil, errors.Wrap(err, "attaching receipt csv")
	}
	return msg, nil
}
