package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/tagithq/tagit/internal/access"
)

var ErrMissingOwnerName = errors.New("profile has no owner name")

// Channel delivers one message to one phone number. Delivery is best effort;
// the dispatcher never retries or blocks on channel failures.
type Channel interface {
	Send(ctx context.Context, phone, message string) error
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Dispatcher fans an SOS alert out to every stored emergency contact.
type Dispatcher struct {
	channel Channel
	logger  *zap.Logger
}

func NewDispatcher(channel Channel, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		channel: channel,
		logger:  logger,
	}
}

// SendAlert composes the alert message and invokes the channel once per
// contact, in list order. It returns the number of contacts dispatched to.
// Per-contact delivery failures are logged, never surfaced: a responder at
// the scene cannot act on them. An empty contact list is a no-op.
func (d *Dispatcher) SendAlert(ctx context.Context, pub *access.PublicProfile, loc *Location) (int, error) {
	if pub.Name == "" {
		return 0, ErrMissingOwnerName
	}

	message := ComposeAlert(pub.Name, loc)

	dispatched := 0
	for _, contact := range pub.EmergencyContacts {
		if err := d.channel.Send(ctx, contact.Phone, message); err != nil {
			d.logger.Warn("sos delivery failed",
				zap.String("profile_id", pub.ID),
				zap.String("contact", contact.Name),
				zap.Error(err),
			)
		}
		dispatched++
	}

	d.logger.Info("sos alert dispatched",
		zap.String("profile_id", pub.ID),
		zap.Int("contacts", dispatched),
		zap.Bool("with_location", loc != nil),
	)

	return dispatched, nil
}

// ComposeAlert builds the alert text. The location line is dropped when no
// location is available; the alert must never be held up waiting for GPS.
func ComposeAlert(name string, loc *Location) string {
	message := fmt.Sprintf("🚨 EMERGENCY ALERT 🚨\n\nI found %s in need of help!\n\n", name)
	if loc != nil {
		message += fmt.Sprintf("Location: %s\n\n", MapsLink(loc))
	}
	return message + "Please respond immediately!"
}

// MapsLink renders a Google Maps pin URL for the given coordinates.
func MapsLink(loc *Location) string {
	return "https://www.google.com/maps?q=" +
		strconv.FormatFloat(loc.Latitude, 'f', -1, 64) + "," +
		strconv.FormatFloat(loc.Longitude, 'f', -1, 64)
}
