package models

import (
	"slices"
	"strings"
	"time"

	"github.com/desertthunder/mediadesk/internal/sanitize"
)

// Subscription status values reported by the admin API.
const (
	StatusActive         = "Active"
	StatusExpired        = "Expired"
	StatusCanceled       = "Canceled"
	StatusNoSubscription = "No Subscription"
)

// ExpiringSoonDays is the window in which an active subscription is flagged as expiring.
const ExpiringSoonDays = 7

// UserSubscription is the nested subscription summary on a user.
type UserSubscription struct {
	Plan        string     `json:"plan,omitempty"`
	PaymentDate *time.Time `json:"paymentDate,omitempty"`
}

// User is a platform account as listed by the admin API. It is not persisted locally.
type User struct {
	ID                 string            `json:"_id"`
	Name               string            `json:"name"`
	Email              string            `json:"email"`
	Role               string            `json:"role"`
	Subscription       *UserSubscription `json:"subscription,omitempty"`
	SubscriptionStatus string            `json:"subscriptionStatus"`
	DaysRemaining      int               `json:"daysRemaining"`
	ExpiryDate         *time.Time        `json:"expiryDate,omitempty"`
	AutoDebit          bool              `json:"autoDebit"`
	IsActive           bool              `json:"isActive"`
	CreatedAt          *time.Time        `json:"createdAt,omitempty"`
}

// DisplayName returns the name as plain text, or "N/A" when missing.
func (u User) DisplayName() string {
	if name := sanitize.Text(u.Name); name != "" {
		return name
	}
	return "N/A"
}

// ExpiringSoon reports whether an active subscription ends within [ExpiringSoonDays].
func (u User) ExpiringSoon() bool {
	return u.SubscriptionStatus == StatusActive && u.DaysRemaining <= ExpiringSoonDays
}

// UserStats counts users by subscription status.
type UserStats struct {
	Total          int `json:"total"`
	Active         int `json:"active"`
	Expired        int `json:"expired"`
	ExpiringSoon   int `json:"expiring_soon"`
	NoSubscription int `json:"no_subscription"`
}

// CountUsers aggregates [UserStats] for a listing.
func CountUsers(users []User) UserStats {
	stats := UserStats{Total: len(users)}
	for _, u := range users {
		switch u.SubscriptionStatus {
		case StatusActive:
			stats.Active++
		case StatusExpired:
			stats.Expired++
		case StatusNoSubscription:
			stats.NoSubscription++
		}
		if u.ExpiringSoon() {
			stats.ExpiringSoon++
		}
	}
	return stats
}

// Filter values accepted by [FilterUsers].
const (
	FilterAll      = "all"
	FilterActive   = "active"
	FilterExpired  = "expired"
	FilterInactive = "inactive"
	FilterExpiring = "expiring"
	FilterCanceled = "canceled"
)

// FilterUsers keeps users whose email, role or name contains query (case-insensitive) and whose subscription
// matches status. An empty status behaves like [FilterAll]; an unknown one matches nobody.
func FilterUsers(users []User, query, status string) []User {
	query = strings.ToLower(strings.TrimSpace(query))

	var out []User
	for _, u := range users {
		if query != "" && !u.matches(query) {
			continue
		}
		if !u.hasStatus(status) {
			continue
		}
		out = append(out, u)
	}
	return out
}

func (u User) matches(query string) bool {
	return strings.Contains(strings.ToLower(u.Email), query) ||
		strings.Contains(strings.ToLower(u.Role), query) ||
		strings.Contains(strings.ToLower(u.Name), query)
}

func (u User) hasStatus(filter string) bool {
	switch filter {
	case "", FilterAll:
		return true
	case FilterActive:
		return u.SubscriptionStatus == StatusActive
	case FilterExpired:
		return u.SubscriptionStatus == StatusExpired
	case FilterInactive:
		return u.SubscriptionStatus == StatusNoSubscription
	case FilterExpiring:
		return u.ExpiringSoon()
	case FilterCanceled:
		return u.SubscriptionStatus == StatusCanceled
	}
	return false
}

// Sort orders accepted by [SortUsers].
const (
	SortEmailAsc  = "email-asc"
	SortEmailDesc = "email-desc"
	SortNewest    = "newest"
	SortOldest    = "oldest"
)

// SortUsers sorts users in place. Users without a creation time sort as the oldest.
func SortUsers(users []User, order string) {
	created := func(u User) time.Time {
		if u.CreatedAt == nil {
			return time.Time{}
		}
		return *u.CreatedAt
	}

	switch order {
	case SortEmailAsc:
		slices.SortStableFunc(users, func(a, b User) int { return strings.Compare(a.Email, b.Email) })
	case SortEmailDesc:
		slices.SortStableFunc(users, func(a, b User) int { return strings.Compare(b.Email, a.Email) })
	case SortNewest:
		slices.SortStableFunc(users, func(a, b User) int { return created(b).Compare(created(a)) })
	case SortOldest:
		slices.SortStableFunc(users, func(a, b User) int { return created(a).Compare(created(b)) })
	}
}
