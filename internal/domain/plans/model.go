package plans

// Billing period values stored on a plan.
const (
	PeriodMonthly = "monthly"
	PeriodAnnual  = "annual"
)

// Limits are the three countable-resource ceilings a plan grants.
type Limits struct {
	MaxUsers         int `gorm:"column:max_users" json:"max_users"`
	MaxRecords       int `gorm:"column:max_records" json:"max_records"`
	MaxOrganizations int `gorm:"column:max_organizations" json:"max_organizations"`
}

type Plan struct {
	PlanID        string `gorm:"primaryKey;column:plan_id" json:"plan_id"`
	DisplayName   string `gorm:"column:display_name" json:"display_name"`
	PriceCents    int64  `gorm:"column:price_cents" json:"price_cents"`
	BillingPeriod string `gorm:"column:billing_period" json:"billing_period"` // "monthly" | "annual"
	Limits        Limits `gorm:"embedded" json:"limits"`
}
