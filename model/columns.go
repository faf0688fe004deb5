package model

const (
	ColCompanyID     = "company_id"
	ColCreatedAt     = "created_at"
	ColStatus        = "status"
	ColApprovedByID  = "approved_by_id"
	ColTokenHash     = "token_hash"
	ColExpiresAt     = "expires_at"
	ColResolvedAt    = "resolved_at"
	ColUsedAt        = "used_at"
	ColUsedByID      = "used_by_id"
	ColResult        = "result"
	ColUID           = "uid"
	ColTOTPSecret    = "totp_secret"
	ColProvisionedBy = "provisioned_by_id"
	ColProvisionedAt = "provisioned_at"
	ColUpdatedAt     = "updated_at"
)
