package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tagithq/tagit/internal/access"
	"github.com/tagithq/tagit/internal/profile"
)

var _ Channel = (*fakeChannel)(nil)

type fakeChannel struct {
	phones   []string
	messages []string
	err      error
}

func (f *fakeChannel) Send(ctx context.Context, phone, message string) error {
	f.phones = append(f.phones, phone)
	f.messages = append(f.messages, message)
	return f.err
}

func publicProfile(contacts ...profile.EmergencyContact) *access.PublicProfile {
	return &access.PublicProfile{
		ID:                "profile-1",
		Name:              "Asha",
		EmergencyContacts: contacts,
	}
}

func TestSendAlertReachesEveryContactInOrder(t *testing.T) {
	channel := &fakeChannel{}
	d := NewDispatcher(channel, zap.NewNop())

	n, err := d.SendAlert(context.Background(), publicProfile(
		profile.EmergencyContact{Name: "Ravi", Phone: "+919876543210"},
		profile.EmergencyContact{Name: "Meera", Phone: "+919811111111"},
	), nil)

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"+919876543210", "+919811111111"}, channel.phones)
}

func TestSendAlertWithoutLocationOmitsMapsLink(t *testing.T) {
	channel := &fakeChannel{}
	d := NewDispatcher(channel, zap.NewNop())

	_, err := d.SendAlert(context.Background(), publicProfile(
		profile.EmergencyContact{Name: "Ravi", Phone: "+919876543210"},
	), nil)
	require.NoError(t, err)

	require.Len(t, channel.messages, 1)
	msg := channel.messages[0]
	assert.Contains(t, msg, "I found Asha in need of help!")
	assert.Contains(t, msg, "Please respond immediately!")
	assert.NotContains(t, msg, "Location:")
	assert.NotContains(t, msg, "google.com/maps")
}

func TestSendAlertWithLocationIncludesMapsLink(t *testing.T) {
	channel := &fakeChannel{}
	d := NewDispatcher(channel, zap.NewNop())

	_, err := d.SendAlert(context.Background(), publicProfile(
		profile.EmergencyContact{Name: "Ravi", Phone: "+919876543210"},
	), &Location{Latitude: 12.9716, Longitude: 77.5946})
	require.NoError(t, err)

	require.Len(t, channel.messages, 1)
	assert.Contains(t, channel.messages[0], "Location: https://www.google.com/maps?q=12.9716,77.5946")
}

func TestSendAlertEmptyContactsIsNoOp(t *testing.T) {
	channel := &fakeChannel{}
	d := NewDispatcher(channel, zap.NewNop())

	n, err := d.SendAlert(context.Background(), publicProfile(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, channel.phones)
}

func TestSendAlertRequiresOwnerName(t *testing.T) {
	channel := &fakeChannel{}
	d := NewDispatcher(channel, zap.NewNop())

	pub := publicProfile(profile.EmergencyContact{Name: "Ravi", Phone: "+919876543210"})
	pub.Name = ""

	_, err := d.SendAlert(context.Background(), pub, nil)
	assert.ErrorIs(t, err, ErrMissingOwnerName)
	assert.Empty(t, channel.phones)
}

func TestSendAlertChannelFailureNotSurfaced(t *testing.T) {
	channel := &fakeChannel{err: errors.New("gateway down")}
	d := NewDispatcher(channel, zap.NewNop())

	n, err := d.SendAlert(context.Background(), publicProfile(
		profile.EmergencyContact{Name: "Ravi", Phone: "+919876543210"},
		profile.EmergencyContact{Name: "Meera", Phone: "+919811111111"},
	), nil)

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, channel.phones, 2)
}

func TestComposeAlertExactFormat(t *testing.T) {
	got := ComposeAlert("Asha", &Location{Latitude: 12.9716, Longitude: 77.5946})
	want := "🚨 EMERGENCY ALERT 🚨\n\n" +
		"I found Asha in need of help!\n\n" +
		"Location: https://www.google.com/maps?q=12.9716,77.5946\n\n" +
		"Please respond immediately!"
	assert.Equal(t, want, got)
}
