package providers

import "context"

// AlertSender delivers a short text message to an on-call recipient
type AlertSender interface {
	SendText(ctx context.Context, to, body string) (string, error)
}
