package models

import "time"

// WeightHistoryCap bounds the adjustment history kept per influence weight.
const WeightHistoryCap = 100

// WeightAdjustment records one change to an influence weight.
type WeightAdjustment struct {
	Timestamp    time.Time    `json:"timestamp"`
	Adjustment   float64      `json:"adjustment"`
	NewWeight    float64      `json:"new_weight"`
	FeedbackKind FeedbackKind `json:"feedback_kind"`
}

// InfluenceWeight is a learned scalar for one named factor, adjusted by every
// feedback event and used to bias future confidence computations. The weight
// is always kept within [0.1, 1.0].
type InfluenceWeight struct {
	Factor    string             `json:"factor"`
	Weight    float64            `json:"weight"`
	History   []WeightAdjustment `json:"history"`
	UpdatedAt time.Time          `json:"updated_at"`
}
