package cs

import (
	"context"

	"dcptck/internal/message"
	"dcptck/internal/vc"
)

// PresentationQueryFunc answers presentation queries. Tests use it to script
// a misbehaving holder.
type PresentationQueryFunc func(ctx context.Context, bearerDID, accessToken string, msg *message.PresentationQueryMessage) (*message.PresentationResponseMessage, error)

// WithPresentationQuery returns a Service that answers presentation queries
// with fn and forwards everything else to base.
func WithPresentationQuery(base Service, fn PresentationQueryFunc) Service {
	return &presentationDelegate{Service: base, fn: fn}
}

type presentationDelegate struct {
	Service
	fn PresentationQueryFunc
}

func (d *presentationDelegate) PresentationQuery(ctx context.Context, bearerDID, accessToken string, msg *message.PresentationQueryMessage) (*message.PresentationResponseMessage, error) {
	return d.fn(ctx, bearerDID, accessToken, msg)
}

var _ Service = (*presentationDelegate)(nil)

// Credentials of a delegate without a base is empty.
func (d *presentationDelegate) Credentials() []vc.Container {
	if d.Service == nil {
		return nil
	}
	return d.Service.Credentials()
}
