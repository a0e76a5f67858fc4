package emailsvc

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/coachdesk/core"
)

var (
	SentMessages = make([]core.EmailMessage, 0)
	mu           sync.Mutex
)

type consoleService struct {
	appName    string
	from       mail.Address
	subjPrefix string
	out        *log.Logger // nil: no output
	logger     core.Logger
}

var _ core.EmailService = (*consoleService)(nil)

// NewConsoleService prints emails to stdout instead of sending them.
func NewConsoleService(conf *core.Config, logger core.Logger) core.EmailService {
	return &consoleService{
		appName:    conf.AppName,
		from:       conf.DefaultFromEmail(),
		subjPrefix: "[" + conf.AppName + "] ",
		out:        log.New(os.Stdout, "EMAIL : ", log.LstdFlags),
		logger:     logger,
	}
}

func (svc consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go svc.sendMessage(msg)
	}
}

func (svc consoleService) sendMessage(msg *core.EmailMessage) {
	if err := msg.Render(svc.appName); err != nil {
		svc.logger.Error(fmt.Sprintf("rendering email: %v", err), errors.Wrap(err, "rendering email"))
		return
	}
	if !msg.HasRecipients() || !(msg.HasContent() || msg.HasAttachments()) {
		return
	}

	var body strings.Builder
	if err := svc.write(&body, *msg); err != nil {
		svc.logger.Error(fmt.Sprintf("writing email: %v", err), errors.Wrap(err, "writing email"))
		return
	}
	if svc.out != nil {
		svc.out.Println(body.String())
	}

	mu.Lock()
	SentMessages = append(SentMessages, *msg)
	mu.Unlock()
}

// write renders msg as a MIME message: multipart/mixed when there are attachments,
// multipart/alternative (text & html) otherwise.
func (svc consoleService) write(w io.Writer, msg core.EmailMessage) error {
	header := []struct{ key, val string }{
		{"From", svc.from.String()},
		{"MIME-Version", "1.0"},
		{"Date", time.Now().Format(time.RFC1123Z)},
		{"Subject", svc.subjPrefix + msg.Subject},
		{"To", joinAddresses(msg.To)},
		{"Cc", joinAddresses(msg.Cc)},
		{"Bcc", joinAddresses(msg.Bcc)},
	}
	for _, h := range header {
		if h.val == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s: %s\r\n", h.key, h.val); err != nil {
			return err
		}
	}

	outer := multipart.NewWriter(w)
	kind := "alternative"
	if msg.HasAttachments() {
		kind = "mixed"
	}
	if _, err := fmt.Fprintf(w, "Content-Type: multipart/%s; boundary=%s\r\n\r\n", kind, outer.Boundary()); err != nil {
		return err
	}

	if !msg.HasAttachments() {
		if err := writeAlternative(outer, msg); err != nil {
			return err
		}
		return outer.Close()
	}

	var buf bytes.Buffer
	alt := multipart.NewWriter(&buf)
	if err := writeAlternative(alt, msg); err != nil {
		return err
	}
	if err := alt.Close(); err != nil {
		return err
	}
	part, err := outer.CreatePart(textproto.MIMEHeader{"Content-Type": {"multipart/alternative; boundary=" + alt.Boundary()}})
	if err != nil {
		return errors.Wrap(err, "creating multipart/alternative part")
	}
	if _, err := io.Copy(part, &buf); err != nil {
		return err
	}

	for _, at := range msg.Attachments {
		part, err := outer.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {at.ContentType},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {"attachment; filename=" + at.Filename},
		})
		if err != nil {
			return errors.Wrap(err, "creating "+at.ContentType+" part")
		}
		if _, err := io.WriteString(part, at.Content.String()); err != nil {
			return err
		}
	}
	return outer.Close()
}

func writeAlternative(w *multipart.Writer, msg core.EmailMessage) error {
	if err := writePart(w, "text/plain; charset=utf-8", msg.TextContent); err != nil {
		return err
	}
	if msg.HTMLContent != "" {
		return writePart(w, "text/html; charset=utf-8", msg.HTMLContent)
	}
	return nil
}

func writePart(w *multipart.Writer, contentType, content string) error {
	part, err := w.CreatePart(textproto.MIMEHeader{"Content-Type": {contentType}})
	if err != nil {
		return errors.Wrap(err, "creating "+contentType+" part")
	}
	_, err = io.WriteString(part, content+"\r\n")
	return err
}

func joinAddresses(addrs []mail.Address) string {
	toJoin := make([]string, 0, len(addrs))
	for _, a := range addrs {
		toJoin = append(toJoin, a.String())
	}
	return strings.Join(toJoin, ", ")
}

// ResetSentMessages empties SentMessages.
func ResetSentMessages() {
	mu.Lock()
	SentMessages = SentMessages[:0]
	mu.Unlock()
}

type consoleServiceMock struct {
	consoleService
}

// NewConsoleServiceMock sends synchronously and silently. Sent messages are kept in SentMessages.
func NewConsoleServiceMock(conf *core.Config, logger core.Logger) core.EmailService {
	return &consoleServiceMock{
		consoleService: consoleService{
			appName:    conf.AppName,
			from:       conf.DefaultFromEmail(),
			subjPrefix: "[" + conf.AppName + "] ",
			logger:     logger,
		},
	}
}

func (svc *consoleServiceMock) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		// run synchronously
		svc.sendMessage(msg)
	}
}
