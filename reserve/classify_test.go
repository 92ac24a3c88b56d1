// Copyright (c) 2025 BVK Chaitanya

package reserve

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		status string
		counts []int
		fits   bool
		want   Decision
	}{
		{"draft-order", "draft", []int{0}, true, DecisionMarkExpired},
		{"paid-order", "paid", []int{0}, true, DecisionMarkExpired},
		{"cancelled-order", "cancelled", []int{0}, true, DecisionMarkExpired},
		{"first-expiry-fits", "submitted", []int{0}, true, DecisionReactivate},
		{"first-expiry-no-stock", "submitted", []int{0}, false, DecisionCancel},
		{"over-limit", "submitted", []int{1}, true, DecisionCancel},
		{"one-over-limit", "submitted", []int{0, 1}, true, DecisionCancel},
		{"multi-fits", "submitted", []int{0, 0}, true, DecisionReactivate},
		{"over-limit-and-no-stock", "submitted", []int{1}, false, DecisionCancel},
	}
	for _, test := range tests {
		if got := Classify(test.status, test.counts, test.fits); got != test.want {
			t.Errorf("%s: wanted %v, got %v", test.name, test.want, got)
		}
	}
}
