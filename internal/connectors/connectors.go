package connectors

import (
	"context"

	"pricelist/internal"
)

// MailConnector pulls unread messages that may carry a pricelist.
type MailConnector interface {
	FetchInbox(ctx context.Context, label string, max int) ([]internal.MailMessage, error)
}
