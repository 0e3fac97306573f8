package models

import "time"

// Plan is a purchasable access plan. Rows are seeded at deploy time and
// treated as read-only by the service.
type Plan struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Duration    string    `json:"duration"`
	Price       int64     `json:"price"`
	ProfileName string    `json:"-"`
	LimitUptime string    `json:"-"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}
