package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscalateReturnsMoreRestrictivePolicy(t *testing.T) {
	tests := []struct {
		name     string
		a, b     RoutePolicy
		expected RoutePolicy
	}{
		{name: "allow vs allow", a: RouteAllow, b: RouteAllow, expected: RouteAllow},
		{name: "allow vs suppress", a: RouteAllow, b: RouteSuppress, expected: RouteSuppress},
		{name: "allow vs digest", a: RouteAllow, b: RouteDigest, expected: RouteDigest},
		{name: "suppress vs digest", a: RouteSuppress, b: RouteDigest, expected: RouteDigest},
		{name: "digest vs digest suppressed", a: RouteDigest, b: RouteDigestSuppressed, expected: RouteDigestSuppressed},
		{name: "order is symmetric", a: RouteDigestSuppressed, b: RouteAllow, expected: RouteDigestSuppressed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Escalate(tt.a, tt.b))
			assert.Equal(t, tt.expected, Escalate(tt.b, tt.a))
		})
	}
}

func TestEscalationDominance(t *testing.T) {
	// A contact-configured Allow combined with a message requesting a digest
	// must route to the digest.
	msg := &NotificationMessage{WantDigest: true}
	assert.Equal(t, RouteDigest, Escalate(RouteAllow, msg.RequestedEscalation()))
}

func TestRequestedEscalation(t *testing.T) {
	tests := []struct {
		name     string
		suppress bool
		digest   bool
		expected RoutePolicy
	}{
		{name: "neither", expected: RouteAllow},
		{name: "suppression only", suppress: true, expected: RouteSuppress},
		{name: "digest only", digest: true, expected: RouteDigest},
		{name: "both", suppress: true, digest: true, expected: RouteDigestSuppressed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &NotificationMessage{WantSuppression: tt.suppress, WantDigest: tt.digest}
			assert.Equal(t, tt.expected, msg.RequestedEscalation())
		})
	}
}

func TestChannelPoliciesDefault(t *testing.T) {
	var nilPolicies ChannelPolicies
	assert.Equal(t, RouteAllow, nilPolicies.PolicyFor(ChannelCall))

	policies := ChannelPolicies{ChannelCall: RouteDigestSuppressed}
	assert.Equal(t, RouteDigestSuppressed, policies.PolicyFor(ChannelCall))
	assert.Equal(t, RouteAllow, policies.PolicyFor(ChannelToast))
}
