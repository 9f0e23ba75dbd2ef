package models

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// DailyTotal is one grouped row of a per-day aggregation; Day is YYYY-MM-DD in UTC.
type DailyTotal struct {
	Day   string
	Total decimal.Decimal
	Count int64
}

type Pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int   `json:"pages"`
}

func NewPagination(total int64, page, limit int) Pagination {
	pages := 0
	if limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return Pagination{Total: total, Page: page, Limit: limit, Pages: pages}
}

type Page struct {
	Page  int
	Limit int
}

func (p Page) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

type WithdrawalFilter struct {
	UserID uint
	Role   Role
	Status WithdrawalStatus
	Page
}

type CommissionFilter struct {
	AgentID uint
	// PlayerID narrows to one player when non-zero.
	PlayerID uint
	From     *time.Time
	To       *time.Time
	Page
}

type ReferralFilter struct {
	AffiliateID uint
	// WithRevenue restricts to referrals that generated revenue.
	WithRevenue bool
	Page
}

type PlayerFilter struct {
	AgentID uint
	// Search matches name or email, case-insensitively.
	Search string
	Status PlayerStatus
	Page
}
