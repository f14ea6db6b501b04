package database

import (
	"time"

	"github.com/shopspring/decimal"
)

// Withdrawal status constants
const (
	WithdrawalStatusPending   = "pending"
	WithdrawalStatusApproved  = "approved"
	WithdrawalStatusRejected  = "rejected"
	WithdrawalStatusCompleted = "completed"
)

// Home page section types
const (
	SectionHero         = "hero"
	SectionFeatures     = "features"
	SectionPlans        = "plans"
	SectionProducts     = "products"
	SectionTestimonials = "testimonials"
	SectionFAQ          = "faq"
)

// User represents a member account in the database
type User struct {
	ID             string          `json:"id"`
	Email          string          `json:"email"`
	Mobile         *string         `json:"mobile,omitempty"`
	PasswordHash   string          `json:"-"`
	FirstName      string          `json:"first_name"`
	LastName       string          `json:"last_name"`
	ReferralCode   string          `json:"referral_code"`
	SponsorCode    *string         `json:"sponsor_code,omitempty"`
	SponsorID      *string         `json:"sponsor_id,omitempty"`
	AccountBalance decimal.Decimal `json:"account_balance"`
	IsActiveMember bool            `json:"is_active_member"`
	IsAdmin        bool            `json:"is_admin"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// FullName returns the member's display name
func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Referral represents a sponsor -> referred-member edge. The commission
// amount is recorded at creation time and never recomputed, even if the
// active settings change later.
type Referral struct {
	ID               int64           `json:"id"`
	SponsorID        string          `json:"sponsor_id"`
	ReferredUserID   string          `json:"referred_user_id"`
	CommissionEarned decimal.Decimal `json:"commission_earned"`
	ReferralDate     time.Time       `json:"referral_date"`
}

// Withdrawal represents a withdrawal request in the database
type Withdrawal struct {
	ID            int64           `json:"id"`
	UserID        string          `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	AdminCharge   decimal.Decimal `json:"admin_charge"`
	NetAmount     decimal.Decimal `json:"net_amount"`
	Status        string          `json:"status"`
	RequestedDate time.Time       `json:"requested_date"`
	ProcessedDate *time.Time      `json:"processed_date,omitempty"`
	Notes         *string         `json:"notes,omitempty"`
}

// IsTerminal reports whether the withdrawal has reached a final status.
func (w *Withdrawal) IsTerminal() bool {
	return w.Status == WithdrawalStatusRejected || w.Status == WithdrawalStatusCompleted
}

// ReferralSettings holds the commission configuration. At most one row is
// active at a time; activating a new row deactivates all others.
type ReferralSettings struct {
	ID                       int64           `json:"id"`
	DirectReferralAmount     decimal.Decimal `json:"direct_referral_amount"`
	MatchingIncomePercentage decimal.Decimal `json:"matching_income_percentage"`
	IsActive                 bool            `json:"is_active"`
	UpdatedAt                time.Time       `json:"updated_at"`
}

// Product represents a product for sale
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Purchase represents a product purchase. Purchases do not touch the
// account balance; they are recorded activity only.
type Purchase struct {
	ID           int64           `json:"id"`
	UserID       string          `json:"user_id"`
	ProductID    int64           `json:"product_id"`
	ProductName  string          `json:"product_name,omitempty"`
	Quantity     int             `json:"quantity"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	PurchaseDate time.Time       `json:"purchase_date"`
}

// HomePageSection represents a dynamic homepage marketing section
type HomePageSection struct {
	ID           int64     `json:"id"`
	SectionType  string    `json:"section_type"`
	Title        string    `json:"title"`
	Subtitle     *string   `json:"subtitle,omitempty"`
	IsActive     bool      `json:"is_active"`
	DisplayOrder int       `json:"display_order"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PlanItem represents an income-plan entry on the homepage
type PlanItem struct {
	ID           int64  `json:"id"`
	SectionID    *int64 `json:"section_id,omitempty"`
	Icon         string `json:"icon"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Amount       string `json:"amount"` // free-form: "6%", "Rs. 200", etc.
	DisplayOrder int    `json:"display_order"`
	IsActive     bool   `json:"is_active"`
}

// ProductItem represents a product entry on the homepage
type ProductItem struct {
	ID           int64           `json:"id"`
	SectionID    *int64          `json:"section_id,omitempty"`
	ProductID    *int64          `json:"product_id,omitempty"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	ImageURL     *string         `json:"image_url,omitempty"`
	DisplayOrder int             `json:"display_order"`
	IsActive     bool            `json:"is_active"`
}

// Session represents a refresh token session
type Session struct {
	ID               int64     `json:"id"`
	UserID           string    `json:"user_id"`
	RefreshTokenHash string    `json:"-"`
	ExpiresAt        time.Time `json:"expires_at"`
	CreatedAt        time.Time `json:"created_at"`
}
