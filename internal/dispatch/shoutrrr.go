package dispatch

import (
	"context"

	"github.com/google/uuid"
	"github.com/k3a/html2text"
	"github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/router"
	"github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/opsdeck/opsdeck-go/internal/datastore/entities"
	"github.com/opsdeck/opsdeck-go/internal/errors"
)

// ShoutrrrSender delivers notifications through a shoutrrr provider URL.
// One instance serves one channel (email, sms or push); the provider is
// chosen by the configured URL scheme (smtp://, ntfy://, ...).
type ShoutrrrSender struct {
	channel string
	router  *router.ServiceRouter
}

// NewShoutrrrSender creates a sender for the given channel from a shoutrrr
// service URL.
func NewShoutrrrSender(channel, serviceURL string) (*ShoutrrrSender, error) {
	if serviceURL == "" {
		return nil, errors.Newf(errors.CategoryDispatch, "no provider URL configured for channel %q", channel)
	}
	r, err := shoutrrr.CreateSender(serviceURL)
	if err != nil {
		return nil, errors.Wrap(errors.CategoryDispatch, err, "invalid provider URL for channel "+channel)
	}
	return &ShoutrrrSender{channel: channel, router: r}, nil
}

// Channel returns the delivery channel this sender handles.
func (s *ShoutrrrSender) Channel() string {
	return s.channel
}

// Send hands the notification body to the provider. HTML bodies are reduced
// to plain text since shoutrrr providers expect text payloads.
func (s *ShoutrrrSender) Send(_ context.Context, rec *entities.NotificationRecord) (SendResult, error) {
	body := html2text.HTML2Text(rec.Body)
	if body == "" {
		body = rec.Body
	}
	params := types.Params{"title": rec.Title}
	for _, err := range s.router.Send(body, &params) {
		if err != nil {
			return SendResult{}, errors.Wrap(errors.CategoryDispatch, err, "provider rejected send")
		}
	}
	// Shoutrrr providers return no message identifier; generate one so
	// delivery callbacks can still correlate.
	return SendResult{ProviderID: uuid.NewString()}, nil
}
