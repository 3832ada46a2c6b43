package subscription

import "time"

// Canonical subscription status, independent of processor vocabulary.
const (
	StatusActive    = "active"
	StatusPending   = "pending"
	StatusSuspended = "suspended"
	StatusCancelled = "cancelled"
)

// Record is the one subscription row per account. It transitions only
// through the Reconciler; request handlers never write it directly.
type Record struct {
	AccountID            string     `gorm:"primaryKey;column:account_id" json:"account_id"`
	PlanID               string     `gorm:"column:plan_id" json:"plan_id"`
	Status               string     `gorm:"column:status" json:"status"`
	ProviderReference    string     `gorm:"column:provider_reference" json:"provider_reference"`
	LastProcessedEventID string     `gorm:"column:last_processed_event_id" json:"last_processed_event_id"`
	LastProcessedAt      *time.Time `gorm:"column:last_processed_at" json:"last_processed_at"`
	ExpiresAt            *time.Time `gorm:"column:expires_at" json:"expires_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Record) TableName() string {
	return "subscription_records"
}

// IsActive reports whether the record grants access at the given instant.
// The reconciler keeps expires_at in the future for active records, but the
// check guards against a lapsed record that no renewal event ever touched.
func (r *Record) IsActive(now time.Time) bool {
	if r == nil || r.Status != StatusActive {
		return false
	}
	if r.ExpiresAt != nil && now.After(*r.ExpiresAt) {
		return false
	}
	return true
}
