package escalation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahul/botpilot/internal/engine"
)

type fakeNotifier struct {
	name string
	err  error
	sent []string
}

func (f *fakeNotifier) Name() string { return f.name }

func (f *fakeNotifier) Notify(_ context.Context, text string) error {
	f.sent = append(f.sent, text)
	return f.err
}

func TestGatewayFansOutToAllChannels(t *testing.T) {
	tg := &fakeNotifier{name: "telegram"}
	dc := &fakeNotifier{name: "discord"}
	gw := NewGateway(nil, tg, dc)

	err := gw.Escalate(context.Background(), engine.Escalation{
		InstanceID:   "inst-1",
		SiteID:       "site-1",
		ActivityName: "lead-gen",
		Reason:       "captcha blocked the login",
		UserID:       "user-1",
	})
	require.NoError(t, err)

	require.Len(t, tg.sent, 1)
	require.Len(t, dc.sent, 1)
	assert.Equal(t, tg.sent[0], dc.sent[0])
	assert.Contains(t, tg.sent[0], "inst-1")
	assert.Contains(t, tg.sent[0], "site-1")
	assert.Contains(t, tg.sent[0], "lead-gen")
	assert.Contains(t, tg.sent[0], "captcha blocked the login")
	assert.Contains(t, tg.sent[0], "user-1")
}

func TestGatewayKeepsGoingPastFailedChannels(t *testing.T) {
	bad := &fakeNotifier{name: "telegram", err: errors.New("token revoked")}
	good := &fakeNotifier{name: "discord"}
	gw := NewGateway(nil, bad, good)

	err := gw.Escalate(context.Background(), engine.Escalation{
		InstanceID: "inst-1",
		Reason:     "plan failed",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram")
	assert.Len(t, good.sent, 1, "remaining channels still get the alert")
}

func TestGatewayWithNoChannels(t *testing.T) {
	gw := NewGateway(nil)
	err := gw.Escalate(context.Background(), engine.Escalation{InstanceID: "inst-1"})
	assert.NoError(t, err)
}
