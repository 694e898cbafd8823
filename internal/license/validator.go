// Package license validates license keys and enforces single-machine
// hardware binding against the external record store.
package license

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/nexuslabs/nexus-gateway/internal/models"
	"github.com/nexuslabs/nexus-gateway/internal/store"
)

// RecordStore provides license record lookup and update.
type RecordStore interface {
	FindByKey(ctx context.Context, key string) (*models.LicenseRecord, error)
	Update(ctx context.Context, rec *models.LicenseRecord) error
}

// SubscriptionChecker reports subscription liveness for a billing customer.
type SubscriptionChecker interface {
	HasLiveSubscription(ctx context.Context, customerID string) (bool, error)
}

// Request is one validation call.
type Request struct {
	Key        string
	HardwareID string
	AppVersion string
	// BindHardware requests activation: bind on first use, refresh audit
	// fields on every later success. Without it the call is a read-only
	// check and must not mutate the record.
	BindHardware bool
}

// Verdict is a successful validation result.
type Verdict struct {
	Plan             models.Plan
	Tier             models.Tier
	Email            string
	MachineLocked    bool
	HardwareIDMasked string
	NewlyBound       bool
}

// Validator enforces format, revocation, subscription liveness, and the
// single-machine binding state machine.
type Validator struct {
	records   RecordStore
	subs      SubscriptionChecker
	manageURL string
	logger    zerolog.Logger
	now       func() time.Time
}

// NewValidator creates a Validator. subs may be nil when no billing API is
// configured; subscription-plan liveness is then skipped with a warning.
func NewValidator(records RecordStore, subs SubscriptionChecker, manageURL string, logger zerolog.Logger) *Validator {
	return &Validator{
		records:   records,
		subs:      subs,
		manageURL: manageURL,
		logger:    logger.With().Str("component", "license_validator").Logger(),
		now:       time.Now,
	}
}

// Validate runs the full validation pipeline and returns a verdict or a
// *Error from the taxonomy in errors.go.
func (v *Validator) Validate(ctx context.Context, req Request) (*Verdict, error) {
	key := models.NormalizeKey(req.Key)
	hardwareID := models.NormalizeHardwareID(req.HardwareID)

	if !models.ValidKey(key) {
		return nil, &Error{Code: CodeInvalidFormat, Message: "license key format is invalid"}
	}
	if req.BindHardware && hardwareID == "" {
		return nil, &Error{Code: CodeMissingHardware, Message: "hardware id is required for activation"}
	}

	rec, err := v.records.FindByKey(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &Error{Code: CodeNotFound, Message: "license key not found"}
		}
		v.logger.Error().Err(err).Msg("record store lookup failed")
		return nil, &Error{Code: CodeUpstreamFailure, Message: "license lookup failed"}
	}

	if rec.Revoked {
		return nil, &Error{Code: CodeRevoked, Message: "license has been revoked"}
	}

	if rec.Plan == models.PlanSubscription {
		if err := v.checkSubscription(ctx, rec); err != nil {
			return nil, err
		}
	}

	newlyBound := false
	switch {
	case !rec.Bound():
		if req.BindHardware {
			rec.HardwareID = hardwareID
			rec.HardwareBoundAt = v.now()
			newlyBound = true
		}
	case hardwareID != "" && rec.HardwareID != hardwareID:
		return nil, &Error{
			Code:             CodeMachineMismatch,
			Message:          "license is activated on another machine",
			HardwareIDMasked: models.MaskHardwareID(rec.HardwareID),
			ManageURL:        v.manageURL,
		}
	}

	if req.BindHardware {
		rec.LastValidationAt = v.now()
		rec.LastAppVersion = req.AppVersion
		if err := v.records.Update(ctx, rec); err != nil {
			v.logger.Error().Err(err).Str("record_id", rec.ID).Msg("record store update failed")
			return nil, &Error{Code: CodeUpstreamFailure, Message: "license update failed"}
		}
		if newlyBound {
			v.logger.Info().
				Str("record_id", rec.ID).
				Str("hardware_id_masked", models.MaskHardwareID(rec.HardwareID)).
				Msg("hardware bound to license")
		}
	}

	return &Verdict{
		Plan:             rec.Plan,
		Tier:             rec.Plan.Tier(),
		Email:            rec.Email,
		MachineLocked:    rec.Bound(),
		HardwareIDMasked: models.MaskHardwareID(rec.HardwareID),
		NewlyBound:       newlyBound,
	}, nil
}

func (v *Validator) checkSubscription(ctx context.Context, rec *models.LicenseRecord) *Error {
	if v.subs == nil {
		v.logger.Warn().Str("record_id", rec.ID).Msg("no billing API configured, skipping subscription liveness check")
		return nil
	}

	live, err := v.subs.HasLiveSubscription(ctx, rec.CustomerID)
	if err != nil {
		v.logger.Error().Err(err).Str("record_id", rec.ID).Msg("subscription check failed")
		return &Error{Code: CodeUpstreamFailure, Message: "subscription check failed"}
	}
	if !live {
		return &Error{Code: CodeSubscriptionInactive, Message: "no active subscription for this license"}
	}
	return nil
}
