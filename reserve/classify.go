// Copyright (c) 2025 BVK Chaitanya

package reserve

// Decision is the outcome of classifying an order's expiring reservations.
type Decision int

const (
	// DecisionMarkExpired leaves the reservations expired without touching
	// the order; used when the order is not submitted anymore.
	DecisionMarkExpired Decision = iota

	// DecisionReactivate reverts the reservations to active under the
	// reactivation TTL.
	DecisionReactivate

	// DecisionCancel cascades into cancelling the order and its pending
	// payments.
	DecisionCancel
)

func (d Decision) String() string {
	switch d {
	case DecisionReactivate:
		return "reactivate"
	case DecisionCancel:
		return "cancel"
	}
	return "mark-expired"
}

// Classify decides what to do with an order whose reservations just ran out.
// reactivationCounts holds the per-reservation reactivation counters and
// fits reports whether every item still fits the currently available stock.
func Classify(orderStatus string, reactivationCounts []int, fits bool) Decision {
	if orderStatus != "submitted" {
		return DecisionMarkExpired
	}
	for _, count := range reactivationCounts {
		if count >= MaxReactivations {
			return DecisionCancel
		}
	}
	if !fits {
		return DecisionCancel
	}
	return DecisionReactivate
}
