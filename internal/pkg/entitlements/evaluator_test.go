package entitlements

import (
	"testing"
	"time"

	"github.com/stratumhq/stratum/app/models"
)

func ts(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return t
}

func tsp(value string) *time.Time {
	t := ts(value)
	return &t
}

func TestIsEntitled_NilRecord(t *testing.T) {
	if IsEntitled(nil, time.Now()) {
		t.Fatalf("nil record must never be entitled")
	}
	if got := Evaluate(nil, time.Now()).Reason; got != ReasonNotInstalled {
		t.Fatalf("Evaluate(nil) reason = %q, want %q", got, ReasonNotInstalled)
	}
}

func TestEvaluate_DisabledAndCancelledIgnoreDates(t *testing.T) {
	future := tsp("2099-01-01T00:00:00Z")
	for _, status := range []string{models.AddonStatusDisabled, models.AddonStatusCancelled} {
		rec := &models.AddonEntitlement{
			Status:             status,
			SubscriptionStatus: models.SubscriptionStatusActive,
			PaidUntil:          future,
		}
		d := Evaluate(rec, ts("2025-06-01T00:00:00Z"))
		if d.Allowed {
			t.Fatalf("status %q must not be entitled regardless of dates", status)
		}
		if d.Reason != ReasonCancelled {
			t.Fatalf("status %q reason = %q, want %q", status, d.Reason, ReasonCancelled)
		}
	}
}

func TestEvaluate_TrialingBoundary(t *testing.T) {
	rec := &models.AddonEntitlement{
		Status:             models.AddonStatusTrial,
		SubscriptionStatus: models.SubscriptionStatusTrialing,
		TrialEndsAt:        tsp("2025-06-20T23:59:59Z"),
	}

	if !IsEntitled(rec, ts("2025-06-20T23:59:59Z")) {
		t.Fatalf("trial end instant itself must still be entitled")
	}
	d := Evaluate(rec, ts("2025-06-21T00:00:01Z"))
	if d.Allowed {
		t.Fatalf("instant after trial end must not be entitled")
	}
	if d.Reason != ReasonTrialExpired {
		t.Fatalf("reason = %q, want %q", d.Reason, ReasonTrialExpired)
	}
}

func TestEvaluate_TrialingWithoutEndDate(t *testing.T) {
	rec := &models.AddonEntitlement{
		Status:             models.AddonStatusTrial,
		SubscriptionStatus: models.SubscriptionStatusTrialing,
	}
	d := Evaluate(rec, time.Now())
	if d.Allowed {
		t.Fatalf("trialing without trial end must not be entitled")
	}
	if d.Reason != ReasonTrialExpired {
		t.Fatalf("reason = %q, want %q", d.Reason, ReasonTrialExpired)
	}
}

func TestEvaluate_ActivePaidWindow(t *testing.T) {
	tests := []struct {
		name      string
		paidUntil *time.Time
		now       time.Time
		want      bool
	}{
		{name: "evergreen without paid_until", paidUntil: nil, now: ts("2099-01-01T00:00:00Z"), want: true},
		{name: "inside paid window", paidUntil: tsp("2025-07-01T00:00:00Z"), now: ts("2025-06-15T00:00:00Z"), want: true},
		{name: "exact paid boundary", paidUntil: tsp("2025-07-01T00:00:00Z"), now: ts("2025-07-01T00:00:00Z"), want: true},
		{name: "after paid window", paidUntil: tsp("2025-07-01T00:00:00Z"), now: ts("2025-07-01T00:00:01Z"), want: false},
	}

	for _, tt := range tests {
		rec := &models.AddonEntitlement{
			Status:             models.AddonStatusActive,
			SubscriptionStatus: models.SubscriptionStatusActive,
			PaidUntil:          tt.paidUntil,
		}
		if got := IsEntitled(rec, tt.now); got != tt.want {
			t.Fatalf("%s: IsEntitled = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestEvaluate_GraceExtendsValidity(t *testing.T) {
	rec := &models.AddonEntitlement{
		Status:             models.AddonStatusActive,
		SubscriptionStatus: models.SubscriptionStatusGracePeriod,
		PaidUntil:          tsp("2025-06-01T00:00:00Z"),
		GraceUntil:         tsp("2025-06-08T00:00:00Z"),
	}

	if !IsEntitled(rec, ts("2025-06-05T00:00:00Z")) {
		t.Fatalf("grace window must extend validity past paid_until")
	}
	if !IsEntitled(rec, ts("2025-06-08T00:00:00Z")) {
		t.Fatalf("grace boundary instant must still be entitled")
	}
	d := Evaluate(rec, ts("2025-06-08T00:00:01Z"))
	if d.Allowed {
		t.Fatalf("instant after grace_until must not be entitled")
	}
	if d.Reason != ReasonExpired {
		t.Fatalf("reason = %q, want %q", d.Reason, ReasonExpired)
	}
}

func TestEvaluate_NonEntitlingSubscriptionStatuses(t *testing.T) {
	for _, status := range []string{
		models.SubscriptionStatusPastDue,
		models.SubscriptionStatusSuspended,
	} {
		rec := &models.AddonEntitlement{
			Status:             models.AddonStatusActive,
			SubscriptionStatus: status,
			PaidUntil:          tsp("2099-01-01T00:00:00Z"),
		}
		d := Evaluate(rec, ts("2025-06-01T00:00:00Z"))
		if d.Allowed {
			t.Fatalf("subscription status %q must not be entitled", status)
		}
		if d.Reason != ReasonExpired {
			t.Fatalf("subscription status %q reason = %q, want %q", status, d.Reason, ReasonExpired)
		}
	}

	rec := &models.AddonEntitlement{
		Status:             models.AddonStatusActive,
		SubscriptionStatus: models.SubscriptionStatusCancelled,
	}
	if got := Evaluate(rec, time.Now()).Reason; got != ReasonCancelled {
		t.Fatalf("cancelled subscription reason = %q, want %q", got, ReasonCancelled)
	}
}

func TestEvaluateWithDependencies_EmployeeDirectory(t *testing.T) {
	now := ts("2025-06-15T00:00:00Z")
	entitledHRMS := &models.AddonEntitlement{
		Status:             models.AddonStatusActive,
		SubscriptionStatus: models.SubscriptionStatusActive,
	}
	expiredPayroll := &models.AddonEntitlement{
		Status:             models.AddonStatusActive,
		SubscriptionStatus: models.SubscriptionStatusActive,
		PaidUntil:          tsp("2025-01-01T00:00:00Z"),
	}

	// One entitled dependency is enough.
	d := EvaluateWithDependencies("employee_directory", map[string]*models.AddonEntitlement{
		"hrms":    entitledHRMS,
		"payroll": expiredPayroll,
	}, now)
	if !d.Allowed {
		t.Fatalf("expected employee_directory entitled with live hrms")
	}

	// All dependencies lapsed: expired, not missing.
	d = EvaluateWithDependencies("employee_directory", map[string]*models.AddonEntitlement{
		"payroll": expiredPayroll,
	}, now)
	if d.Allowed || d.Reason != ReasonDependencyExpired {
		t.Fatalf("expected %q, got allowed=%v reason=%q", ReasonDependencyExpired, d.Allowed, d.Reason)
	}

	// No dependency ever installed.
	d = EvaluateWithDependencies("employee_directory", map[string]*models.AddonEntitlement{}, now)
	if d.Allowed || d.Reason != ReasonDependencyMissing {
		t.Fatalf("expected %q, got allowed=%v reason=%q", ReasonDependencyMissing, d.Allowed, d.Reason)
	}
}

func TestEvaluateWithDependencies_DirectAddon(t *testing.T) {
	d := EvaluateWithDependencies("hrms", map[string]*models.AddonEntitlement{}, time.Now())
	if d.Allowed || d.Reason != ReasonNotInstalled {
		t.Fatalf("direct addon without record: got allowed=%v reason=%q", d.Allowed, d.Reason)
	}
}

func TestNormalizeTierAndRank(t *testing.T) {
	tests := []struct {
		in   string
		want Tier
	}{
		{in: "free", want: TierFree},
		{in: "starter", want: TierStarter},
		{in: "PRO", want: TierPro},
		{in: " enterprise ", want: TierEnterprise},
		{in: "invalid", want: TierFree},
	}
	for _, tt := range tests {
		if got := NormalizeTier(tt.in); got != tt.want {
			t.Fatalf("NormalizeTier(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if TierRank(TierFree) >= TierRank(TierStarter) ||
		TierRank(TierStarter) >= TierRank(TierPro) ||
		TierRank(TierPro) >= TierRank(TierEnterprise) {
		t.Fatalf("tier ranks must be strictly increasing")
	}
}

func TestTierCapabilities(t *testing.T) {
	if TierIncludesModule(TierFree, "hrms") {
		t.Fatalf("free tier must not include hrms")
	}
	if !TierIncludesModule(TierPro, "hrms") {
		t.Fatalf("pro tier must include hrms")
	}
	if TierHasFeature(TierFree, "bulk_export") {
		t.Fatalf("free tier must not have bulk_export")
	}
	if !TierHasFeature(TierEnterprise, "sso") {
		t.Fatalf("enterprise tier must have sso")
	}
}
