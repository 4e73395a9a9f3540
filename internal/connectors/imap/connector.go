package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"

	"pricelist/internal"
	"pricelist/internal/config"
)

var attachmentExtensions = map[string]bool{".xlsx": true, ".xls": true, ".csv": true, ".pdf": true}

type Connector struct {
	host     string
	port     int
	secure   bool
	user     string
	password string
	markSeen bool
	logger   *slog.Logger
}

func NewConnector(cfg config.Config, logger *slog.Logger) (*Connector, error) {
	if err := cfg.Require("IMAP_HOST", cfg.IMAPHost); err != nil {
		return nil, err
	}
	if err := cfg.Require("IMAP_USER", cfg.IMAPUser); err != nil {
		return nil, err
	}
	if err := cfg.Require("IMAP_PASSWORD", cfg.IMAPPassword); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Connector{
		host:     cfg.IMAPHost,
		port:     cfg.IMAPPort,
		secure:   cfg.IMAPSecure,
		user:     cfg.IMAPUser,
		password: cfg.IMAPPassword,
		markSeen: cfg.IMAPMarkSeen,
		logger:   logger,
	}, nil
}

func (c *Connector) dial() (*imapclient.Client, error) {
	addr := fmt.Sprintf("%s:%d", c.host, c.port)
	if c.secure {
		return imapclient.DialTLS(addr, &tls.Config{ServerName: c.host})
	}
	return imapclient.Dial(addr)
}

// FetchInbox downloads unread messages that carry a spreadsheet, CSV or PDF
// attachment. Messages without one are left untouched on the server.
func (c *Connector) FetchInbox(ctx context.Context, label string, max int) ([]internal.MailMessage, error) {
	client, err := c.dial()
	if err != nil {
		return nil, err
	}
	defer client.Logout()

	if err := client.Login(c.user, c.password); err != nil {
		return nil, err
	}
	if _, err := client.Select(label, false); err != nil {
		return nil, err
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	uids, err := client.UidSearch(criteria)
	if err != nil {
		return nil, err
	}
	if len(uids) == 0 {
		return nil, nil
	}

	candidates, err := c.withAttachments(client, uids)
	if err != nil {
		return nil, err
	}
	if max > 0 && len(candidates) > max {
		candidates = candidates[len(candidates)-max:]
	}
	if len(candidates) == 0 || ctx.Err() != nil {
		return nil, ctx.Err()
	}
	c.logger.Debug("imap candidates", "unseen", len(uids), "with_attachments", len(candidates))

	uidset := new(imap.SeqSet)
	uidset.AddNum(candidates...)

	section := &imap.BodySectionName{Peek: !c.markSeen}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchInternalDate, imap.FetchUid, section.FetchItem()}
	messages := make(chan *imap.Message, len(candidates))
	fetchDone := make(chan error, 1)
	go func() { fetchDone <- client.UidFetch(uidset, items, messages) }()

	out := make([]internal.MailMessage, 0, len(candidates))
	var readErr error
	for msg := range messages {
		if msg == nil || readErr != nil {
			continue
		}
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		raw, err := io.ReadAll(body)
		if err != nil {
			readErr = err
			continue
		}
		out = append(out, toMailMessage(msg, raw))
	}

	if err := <-fetchDone; err != nil {
		return nil, err
	}
	if readErr != nil {
		return nil, readErr
	}
	return out, nil
}

// withAttachments keeps the uids whose BODYSTRUCTURE names a pricelist file.
func (c *Connector) withAttachments(client *imapclient.Client, uids []uint32) ([]uint32, error) {
	uidset := new(imap.SeqSet)
	uidset.AddNum(uids...)

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- client.UidFetch(uidset, []imap.FetchItem{imap.FetchUid, imap.FetchBodyStructure}, messages)
	}()

	var out []uint32
	for msg := range messages {
		if msg != nil && hasPricelistAttachment(msg.BodyStructure) {
			out = append(out, msg.Uid)
		}
	}
	if err := <-done; err != nil {
		return nil, err
	}
	return out, nil
}

func hasPricelistAttachment(bs *imap.BodyStructure) bool {
	if bs == nil {
		return false
	}
	found := false
	bs.Walk(func(_ []int, part *imap.BodyStructure) bool {
		name, err := part.Filename()
		if err == nil && attachmentExtensions[strings.ToLower(filepath.Ext(name))] {
			found = true
		}
		return !found
	})
	return found
}

func toMailMessage(msg *imap.Message, raw []byte) internal.MailMessage {
	messageID, subject, from := "", "", ""
	if msg.Envelope != nil {
		messageID = msg.Envelope.MessageId
		subject = msg.Envelope.Subject
		from = formatAddresses(msg.Envelope.From)
	}
	if messageID == "" {
		messageID = fmt.Sprintf("imap-%d", msg.Uid)
	}

	received := time.Now().UTC().Format(time.RFC3339)
	if !msg.InternalDate.IsZero() {
		received = msg.InternalDate.UTC().Format(time.RFC3339)
	}

	return internal.MailMessage{
		Provider:   "imap",
		MessageID:  messageID,
		Subject:    subject,
		From:       from,
		ReceivedAt: received,
		Raw:        raw,
	}
}

func formatAddresses(addrs []*imap.Address) string {
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a == nil {
			continue
		}
		email := a.Address()
		if a.PersonalName != "" {
			parts = append(parts, fmt.Sprintf("%s <%s>", a.PersonalName, email))
		} else {
			parts = append(parts, email)
		}
	}
	return strings.Join(parts, ", ")
}
