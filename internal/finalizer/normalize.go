package finalizer

import (
	"encoding/json"

	"github.com/mkalinowski/storefront-finalizer/internal/domain"
)

// placementResult covers the shapes the backend is known to produce when a
// cart completes: a typed top-level object, a nested order_set, a nested
// order, or a bare id.
type placementResult struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Order *struct {
		ID string `json:"id"`
	} `json:"order"`
	OrderSet *struct {
		ID string `json:"id"`
	} `json:"order_set"`
}

// Normalize maps a raw placement response onto the canonical order result.
// Shapes are checked in priority order; nil means the response matched none
// of them, which the finalizer treats as a retryable condition (a placement
// that nominally succeeded but is unreadable suggests a version mismatch
// worth one more attempt).
func Normalize(raw json.RawMessage) *domain.OrderResult {
	var res placementResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil
	}

	if res.ID != "" && res.Type == string(domain.KindOrderSet) {
		return &domain.OrderResult{Kind: domain.KindOrderSet, ID: res.ID}
	}
	if res.ID != "" && res.Type == string(domain.KindOrder) {
		return &domain.OrderResult{Kind: domain.KindOrder, ID: res.ID}
	}
	if res.OrderSet != nil && res.OrderSet.ID != "" {
		return &domain.OrderResult{Kind: domain.KindOrderSet, ID: res.OrderSet.ID}
	}
	if res.Order != nil && res.Order.ID != "" {
		return &domain.OrderResult{Kind: domain.KindOrder, ID: res.Order.ID}
	}
	// Bare id with no discriminator is treated as a plain order.
	if res.ID != "" && res.Type == "" {
		return &domain.OrderResult{Kind: domain.KindOrder, ID: res.ID}
	}
	return nil
}
