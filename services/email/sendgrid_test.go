package emailsvc

import (
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/coachdesk/core"
	"github.com/trezcool/coachdesk/tests"
)

func TestSendgridService_prepare(t *testing.T) {
	conf := &core.Config{AppName: "CoachDesk"}
	svc := NewSendgridService(conf, testutil.NewLogger()).(*sendgridService)

	msg := core.EmailMessage{
		To:          []mail.Address{{Name: "Staff", Address: "staff@test.cd"}},
		Bcc:         []mail.Address{{Address: "audit@test.cd"}},
		Subject:     "Payment receipt #7",
		TextContent: "hello",
	}
	m := svc.prepare(msg)

	require.Len(t, m.Personalizations, 1)
	p := m.Personalizations[0]
	assert.Equal(t, "[CoachDesk] Payment receipt #7", p.Subject)
	require.Len(t, p.To, 1)
	assert.Equal(t, "staff@test.cd", p.To[0].Address)
	require.Len(t, p.BCC, 1)
	assert.Len(t, m.Content, 1) // no html part without html content
	assert.Equal(t, "CoachDesk", m.From.Name)
}
