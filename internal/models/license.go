// Package models contains the core domain types for the Nexus gateway.
package models

import (
	"regexp"
	"strings"
	"time"
)

// Plan identifies the commercial plan attached to a license.
type Plan string

const (
	// PlanLifetime is a one-time purchase with no recurring billing.
	PlanLifetime Plan = "lifetime"
	// PlanSubscription requires a live subscription on the payment provider.
	PlanSubscription Plan = "subscription"
	// PlanBasic is the entry paid plan.
	PlanBasic Plan = "basic"
	// PlanPro is the mid paid plan.
	PlanPro Plan = "pro"
	// PlanUnlimited is the top paid plan.
	PlanUnlimited Plan = "unlimited"
)

// ParsePlan normalizes a stored plan string. Empty input defaults to lifetime.
func ParsePlan(s string) Plan {
	p := Plan(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return PlanLifetime
	}
	return p
}

// Tier is the feature tier the desktop app unlocks for a plan.
type Tier string

const (
	TierBasic     Tier = "basic"
	TierPro       Tier = "pro"
	TierUnlimited Tier = "unlimited"
	TierLifetime  Tier = "lifetime"
)

// Tier maps a plan to its feature tier. Subscriptions unlock pro; plan names
// the server does not recognize fall back to unlimited so a schema addition
// on the record store never locks paying customers out.
func (p Plan) Tier() Tier {
	switch p {
	case PlanSubscription:
		return TierPro
	case PlanLifetime:
		return TierLifetime
	case PlanBasic:
		return TierBasic
	case PlanPro:
		return TierPro
	case PlanUnlimited:
		return TierUnlimited
	default:
		return TierUnlimited
	}
}

// KeyPattern is the canonical license key shape: the product prefix followed
// by four dash-separated groups of four uppercase hex characters.
var KeyPattern = regexp.MustCompile(`^NEXUS(-[0-9A-F]{4}){4}$`)

const (
	// MaxKeyLength caps license key input before any other processing.
	MaxKeyLength = 64
	// MaxHardwareIDLength caps hardware fingerprint input.
	MaxHardwareIDLength = 128
)

// NormalizeKey uppercases and trims a license key, capping its length.
func NormalizeKey(key string) string {
	key = strings.ToUpper(strings.TrimSpace(key))
	if len(key) > MaxKeyLength {
		key = key[:MaxKeyLength]
	}
	return key
}

// NormalizeHardwareID lowercases and trims a hardware fingerprint, capping
// its length.
func NormalizeHardwareID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	if len(id) > MaxHardwareIDLength {
		id = id[:MaxHardwareIDLength]
	}
	return id
}

// ValidKey reports whether a normalized key matches the canonical pattern.
func ValidKey(key string) bool {
	return KeyPattern.MatchString(key)
}

// MaskHardwareID returns the first 6 and last 4 characters of a bound
// hardware id. Short ids are fully masked so nothing useful leaks.
func MaskHardwareID(id string) string {
	if len(id) < 10 {
		return strings.Repeat("*", len(id))
	}
	return id[:6] + "..." + id[len(id)-4:]
}

// LicenseRecord is one purchased or issued license as stored in the external
// customer-record system.
type LicenseRecord struct {
	// ID is the record id assigned by the external store, needed for updates.
	ID string

	Key        string
	Email      string
	Plan       Plan
	Revoked    bool
	CustomerID string // payment-provider customer id, used for subscription liveness

	HardwareID       string
	HardwareBoundAt  time.Time
	LastValidationAt time.Time
	LastAppVersion   string
	ResetCount       int
	LastResetAt      time.Time
}

// Bound reports whether the license is bound to a machine.
func (r *LicenseRecord) Bound() bool {
	return r.HardwareID != ""
}
