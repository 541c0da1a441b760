package db_models

import (
	"time"

	"gorm.io/datatypes"
)

type Plan struct {
	BaseModel
	Code        string `gorm:"uniqueIndex"` // e.g., "basic", "pro_monthly"
	Name        string
	Description *string
	PriceMinor  int64  // 99900 = ₹999.00
	Currency    string `gorm:"size:3;default:INR"`
	IsActive    bool   `gorm:"default:true"`

	// Availability window (unix seconds); nil means open-ended on that side
	AvailableFrom *int64
	AvailableTo   *int64

	Features datatypes.JSON `gorm:"type:jsonb;default:'{}'"`
}

// IsAvailable reports whether the plan can currently be purchased.
func (p *Plan) IsAvailable(now time.Time) bool {
	if !p.IsActive {
		return false
	}
	ts := now.Unix()
	if p.AvailableFrom != nil && ts < *p.AvailableFrom {
		return false
	}
	if p.AvailableTo != nil && ts > *p.AvailableTo {
		return false
	}
	return true
}
