package params

import "time"

const (
	ServerBodyLimit        = 1048576 // 1 MiB
	ServerIdleTimeout      = 30 * time.Second
	ServerReadTimeout      = 10 * time.Second
	ServerWriteTimeout     = 10 * time.Second
	RefreshTokenKeyPrefix  = "rt:"
	RateLimitKeyPrefix     = "rl:"
	AccessTokenExpiration  = 15 * time.Minute
	RefreshTokenExpiration = 7 * 24 * time.Hour
	HealthCheckServerAddr  = ":3001" // health check server address
	SnowflakeNodeID        = 1
)

const (
	OverrideDefaultTTL      = 180 * time.Second // approval-to-expiry window when the approver does not pick one
	OverrideMinTTLSeconds   = 30
	OverrideMaxTTLSeconds   = 600
	OverrideTokenLength     = 10 // plaintext token handed to the operator
	OverrideNonceLength     = 8
	OverrideTOTPPeriod      = 30 // seconds per virtual token step
	OverrideTOTPSkew        = 1  // steps accepted on either side of the current one
	OverrideVerifyRateLimit = 30 // verify attempts per client per window
	OverrideVerifyRateSpan  = 1 * time.Minute
	OverrideIssuer          = "FULLPOS"
)

const (
	AuditDefaultLimit    = 100
	RequestsDefaultLimit = 50
	ListMaxLimit         = 200
	MetaMaxKeys          = 32
	MetaMaxDepth         = 4
)
