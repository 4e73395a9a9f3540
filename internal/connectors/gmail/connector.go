package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/mail"
	"time"

	"github.com/jhillyerd/enmime"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"pricelist/internal"
	"pricelist/internal/config"
	"pricelist/internal/connectors"
)

const attachmentQuery = "has:attachment (filename:xlsx OR filename:xls OR filename:csv OR filename:pdf)"

type Connector struct {
	service *gmail.Service
	limiter *connectors.RateLimiter
	logger  *slog.Logger
}

func NewConnector(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Connector, error) {
	if err := cfg.Require("GMAIL_CLIENT_ID", cfg.GmailClientID); err != nil {
		return nil, err
	}
	if err := cfg.Require("GMAIL_CLIENT_SECRET", cfg.GmailClientSecret); err != nil {
		return nil, err
	}
	if err := cfg.Require("GMAIL_REFRESH_TOKEN", cfg.GmailRefreshToken); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GmailClientID,
		ClientSecret: cfg.GmailClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.GmailRedirectURI,
		Scopes:       []string{gmail.GmailReadonlyScope},
	}

	tokenSource := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.GmailRefreshToken})
	svc, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, err
	}

	return &Connector{
		service: svc,
		limiter: connectors.NewRateLimiter(cfg.GmailRateLimitRPS),
		logger:  logger,
	}, nil
}

// FetchInbox lists messages under label that carry a pricelist-like
// attachment and downloads each one in raw RFC 822 form.
func (c *Connector) FetchInbox(ctx context.Context, label string, max int) ([]internal.MailMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	listCall := c.service.Users.Messages.List("me").LabelIds(label).Q(attachmentQuery)
	if max > 0 {
		listCall = listCall.MaxResults(int64(max))
	}
	listResp, err := listCall.Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	out := make([]internal.MailMessage, 0, len(listResp.Messages))
	for _, msgRef := range listResp.Messages {
		if msgRef.Id == "" {
			continue
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		rawResp, err := c.service.Users.Messages.Get("me", msgRef.Id).Format("raw").Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		if rawResp.Raw == "" {
			continue
		}

		rawBytes, err := decodeBase64URL(rawResp.Raw)
		if err != nil {
			return nil, err
		}

		out = append(out, toMailMessage(msgRef.Id, rawBytes, rawResp.InternalDate, c.logger))
	}

	c.logger.Debug("gmail fetched", "label", label, "count", len(out))
	return out, nil
}

// toMailMessage reads the envelope headers from the raw message itself so a
// single API call per message is enough.
func toMailMessage(gmailID string, raw []byte, internalDateMs int64, logger *slog.Logger) internal.MailMessage {
	msg := internal.MailMessage{
		Provider:   "gmail",
		MessageID:  gmailID,
		ReceivedAt: receivedAt("", internalDateMs),
		Raw:        raw,
	}

	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		logger.Warn("gmail envelope parse failed", "id", gmailID, "err", err)
		return msg
	}

	if id := env.GetHeader("Message-ID"); id != "" {
		msg.MessageID = id
	}
	msg.Subject = env.GetHeader("Subject")
	msg.From = env.GetHeader("From")
	msg.ReceivedAt = receivedAt(env.GetHeader("Date"), internalDateMs)
	return msg
}

func receivedAt(dateHeader string, internalDateMs int64) string {
	if dateHeader != "" {
		if t, err := mail.ParseDate(dateHeader); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	if internalDateMs > 0 {
		return time.UnixMilli(internalDateMs).UTC().Format(time.RFC3339)
	}
	return time.Now().UTC().Format(time.RFC3339)
}

func decodeBase64URL(input string) ([]byte, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	decoded, err = base64.URLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	return nil, fmt.Errorf("decode gmail raw payload: %w", err)
}
