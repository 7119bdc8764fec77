package stepup

// Purpose scopes a step-up challenge to one sensitive action. A challenge
// issued for one purpose can never satisfy another, even if the numeric code
// would validate under the underlying OTP algorithm.
type Purpose string

const (
	PurposeRevokeSession     Purpose = "revoke_session"
	PurposeForceLogout       Purpose = "force_logout"
	PurposeIPRuleChange      Purpose = "ip_rule_change"
	PurposeImpersonate       Purpose = "impersonate"
	PurposeChangeRole        Purpose = "change_role"
	PurposeChangePermissions Purpose = "change_permissions"
	PurposeSSOConfig         Purpose = "sso_config"
	PurposeBillingChange     Purpose = "billing_change"
	PurposeDataExport        Purpose = "data_export"
	PurposeSecuritySettings  Purpose = "security_settings"
)

var purposeLabels = map[Purpose]string{
	PurposeRevokeSession:     "revoking a session",
	PurposeForceLogout:       "forcing a logout",
	PurposeIPRuleChange:      "changing IP access rules",
	PurposeImpersonate:       "impersonating a user",
	PurposeChangeRole:        "changing a user role",
	PurposeChangePermissions: "changing user permissions",
	PurposeSSOConfig:         "changing SSO configuration",
	PurposeBillingChange:     "changing billing settings",
	PurposeDataExport:        "exporting data",
	PurposeSecuritySettings:  "changing security settings",
}

// Valid reports whether the purpose is part of the fixed enum. Challenges can
// only be issued for valid purposes.
func (p Purpose) Valid() bool {
	_, ok := purposeLabels[p]
	return ok
}

// Label returns the human description of the purpose, with a generic fallback
// for anything not in the table.
func (p Purpose) Label() string {
	if label, ok := purposeLabels[p]; ok {
		return label
	}
	return "a sensitive action"
}
