package service

import "context"

// Registry is the live-connection surface the delivery path needs.
type Registry interface {
	TrySend(ctx context.Context, userID string, payload any) bool
}

// Router fans a payload out to a chat's live participants.
type Router struct {
	registry Registry
}

// NewRouter constructs a Router.
func NewRouter(registry Registry) *Router {
	return &Router{registry: registry}
}

// Fanout attempts a best-effort push to every participant except the sender
// and reports per-recipient outcomes. Misses and transport failures are
// absorbed by the registry; this never returns an error.
func (r *Router) Fanout(ctx context.Context, participants []string, senderID string, payload any) []bool {
	results := make([]bool, 0, len(participants))
	for _, userID := range participants {
		if userID == senderID {
			continue
		}
		results = append(results, r.registry.TrySend(ctx, userID, payload))
	}
	return results
}

// AnyDelivered reports whether at least one recipient got the push.
func AnyDelivered(results []bool) bool {
	for _, delivered := range results {
		if delivered {
			return true
		}
	}
	return false
}

// AllDelivered reports whether every recipient got the push. Vacuously true
// for an empty result set.
func AllDelivered(results []bool) bool {
	for _, delivered := range results {
		if !delivered {
			return false
		}
	}
	return true
}
