package notification

import "fmt"

// RoutePolicy decides what happens to one channel of a notification.
//
// The values form a documented total order:
//
//	RouteAllow < RouteSuppress < RouteDigest < RouteDigestSuppressed
//
// Escalate relies on this order: combining a contact-configured policy with a
// message-requested escalation always yields the more restrictive of the two.
// The numeric values are part of the contract, not an accident of declaration
// order.
type RoutePolicy int

const (
	// RouteAllow sends immediately on the channel.
	RouteAllow RoutePolicy = iota
	// RouteSuppress runs the item through the duplicate suppression window.
	RouteSuppress
	// RouteDigest queues the item for digest consolidation.
	RouteDigest
	// RouteDigestSuppressed runs the suppression window first; suppressed
	// occurrences are redirected into the digest instead of being dropped.
	RouteDigestSuppressed
)

func (p RoutePolicy) String() string {
	switch p {
	case RouteAllow:
		return "allow"
	case RouteSuppress:
		return "suppress"
	case RouteDigest:
		return "digest"
	case RouteDigestSuppressed:
		return "digest_suppressed"
	default:
		return fmt.Sprintf("route_policy(%d)", int(p))
	}
}

// IsValid reports whether the policy is one of the four defined routes.
func (p RoutePolicy) IsValid() bool {
	return p >= RouteAllow && p <= RouteDigestSuppressed
}

// Escalate combines two route policies, returning the more restrictive one
// under the documented total order.
func Escalate(a, b RoutePolicy) RoutePolicy {
	if b > a {
		return b
	}
	return a
}

// ChannelPolicies maps each delivery channel to its configured route.
// Channels without an entry default to RouteAllow.
type ChannelPolicies map[Channel]RoutePolicy

// PolicyFor returns the configured route for a channel, defaulting to
// RouteAllow when the channel has no entry.
func (cp ChannelPolicies) PolicyFor(ch Channel) RoutePolicy {
	if cp == nil {
		return RouteAllow
	}
	if p, ok := cp[ch]; ok {
		return p
	}
	return RouteAllow
}
