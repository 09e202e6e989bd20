package email

import (
	"bytes"
	"fmt"
	"io"

	"github.com/emersion/go-message/mail"
)

// Render produces the RFC 5322 form of msg: a multipart/alternative body with
// quoted-printable text/plain and text/html parts.
func Render(msg *Message) ([]byte, error) {
	var h mail.Header
	h.SetDate(msg.Date)
	h.SetAddressList("From", []*mail.Address{toMailAddress(msg.From)})
	h.SetAddressList("To", toMailAddresses(msg.To))
	if len(msg.ReplyTo) > 0 {
		h.SetAddressList("Reply-To", toMailAddresses(msg.ReplyTo))
	}
	h.SetSubject(msg.Subject)
	if msg.MessageID != "" {
		h.SetMessageID(msg.MessageID)
	}

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create message writer: %w", err)
	}

	tw, err := mw.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("failed to create inline writer: %w", err)
	}

	if err := writePart(tw, "text/plain", msg.TextBody); err != nil {
		return nil, err
	}
	if msg.HTMLBody != "" {
		if err := writePart(tw, "text/html", msg.HTMLBody); err != nil {
			return nil, err
		}
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close inline writer: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close message writer: %w", err)
	}

	return buf.Bytes(), nil
}

func writePart(tw *mail.InlineWriter, contentType, body string) error {
	var h mail.InlineHeader
	h.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	h.Set("Content-Transfer-Encoding", "quoted-printable")

	w, err := tw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		w.Close()
		return fmt.Errorf("failed to write %s part: %w", contentType, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close %s part: %w", contentType, err)
	}
	return nil
}

func toMailAddress(a Address) *mail.Address {
	return &mail.Address{Name: a.Name, Address: a.Address}
}

func toMailAddresses(list []Address) []*mail.Address {
	out := make([]*mail.Address, 0, len(list))
	for _, a := range list {
		out = append(out, toMailAddress(a))
	}
	return out
}
