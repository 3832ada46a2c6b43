package entitlement

import (
	"fmt"
	"time"

	"subscription-app/internal/domain/subscription"
)

// ResourceKind names one of the three countable resources a plan limits.
type ResourceKind string

const (
	KindUsers         ResourceKind = "users"
	KindRecords       ResourceKind = "records"
	KindOrganizations ResourceKind = "organizations"
)

// Kinds lists every resource kind, in a stable order.
func Kinds() []ResourceKind {
	return []ResourceKind{KindUsers, KindRecords, KindOrganizations}
}

// ParseKind validates a kind coming off the wire.
func ParseKind(s string) (ResourceKind, error) {
	switch ResourceKind(s) {
	case KindUsers, KindRecords, KindOrganizations:
		return ResourceKind(s), nil
	}
	return "", fmt.Errorf("unknown resource kind %q: %w", s, subscription.ErrInvalidInput)
}

// UsageCounters is the per-account counter set. Counters mutate only through
// Store.TryIncrement; nothing in this engine recomputes them by re-scanning
// external tables.
type UsageCounters struct {
	AccountID          string    `gorm:"primaryKey;column:account_id" json:"account_id"`
	UsersCount         int       `gorm:"column:users_count" json:"users_count"`
	RecordsCount       int       `gorm:"column:records_count" json:"records_count"`
	OrganizationsCount int       `gorm:"column:organizations_count" json:"organizations_count"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (UsageCounters) TableName() string {
	return "usage_counters"
}

// Count returns the counter for a kind.
func (u UsageCounters) Count(kind ResourceKind) int {
	switch kind {
	case KindUsers:
		return u.UsersCount
	case KindRecords:
		return u.RecordsCount
	case KindOrganizations:
		return u.OrganizationsCount
	}
	return 0
}

func (u *UsageCounters) setCount(kind ResourceKind, v int) {
	switch kind {
	case KindUsers:
		u.UsersCount = v
	case KindRecords:
		u.RecordsCount = v
	case KindOrganizations:
		u.OrganizationsCount = v
	}
}

// Alert thresholds.
const (
	ThresholdWarning = 80
	ThresholdFull    = 100
)

// Alert records a usage-ratio crossing. At most one unacknowledged alert
// exists per (account, kind, threshold); it is acknowledged when usage drops
// back below the threshold.
type Alert struct {
	ID               string     `gorm:"primaryKey" json:"id"`
	AccountID        string     `gorm:"column:account_id;index:idx_alerts_account_kind" json:"account_id"`
	ResourceKind     string     `gorm:"column:resource_kind;index:idx_alerts_account_kind" json:"resource_kind"`
	ThresholdCrossed int        `gorm:"column:threshold_crossed" json:"threshold_crossed"`
	FiredAt          time.Time  `gorm:"column:fired_at" json:"fired_at"`
	AcknowledgedAt   *time.Time `gorm:"column:acknowledged_at" json:"acknowledged_at"`
}
