package pipeline

import (
	"bytes"
	"strings"

	"github.com/jhillyerd/enmime"
)

type Attachment struct {
	Name    string
	Content []byte
}

// PricelistEmail is the part of a message the extractor cares about.
type PricelistEmail struct {
	Subject     string
	From        string
	Text        string
	Attachments []Attachment
}

// AttachmentNames lists every attachment file name, supported or not.
func (m PricelistEmail) AttachmentNames() []string {
	names := make([]string, 0, len(m.Attachments))
	for _, a := range m.Attachments {
		names = append(names, a.Name)
	}
	return names
}

// ReadPricelistEmail parses a raw RFC 5322 message.
func ReadPricelistEmail(raw []byte) (PricelistEmail, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return PricelistEmail{}, err
	}

	msg := PricelistEmail{
		Subject: env.GetHeader("Subject"),
		From:    env.GetHeader("From"),
		Text:    env.Text,
	}
	parts := append([]*enmime.Part{}, env.Attachments...)
	parts = append(parts, env.Inlines...)
	for _, att := range parts {
		name := strings.TrimSpace(att.FileName)
		if name == "" {
			name = "attachment"
		}
		msg.Attachments = append(msg.Attachments, Attachment{Name: name, Content: att.Content})
	}
	return msg, nil
}

// SenderDomain returns the domain of the From address, used as supplier id.
func SenderDomain(from string) string {
	from = strings.TrimSpace(from)
	if i := strings.LastIndex(from, "<"); i >= 0 {
		from = strings.TrimSuffix(from[i+1:], ">")
	}
	at := strings.LastIndex(from, "@")
	if at < 0 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(from[at+1:]))
}
