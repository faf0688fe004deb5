package api

import (
	"time"

	"github.com/fullpos/poscloud/params"
)

type overrideRequestBody struct {
	CompanyID      int64                  `json:"companyId"`
	CompanyRNC     string                 `json:"companyRnc"`
	CompanyCloudID string                 `json:"companyCloudId"`
	ActionCode     string                 `json:"actionCode"`
	ResourceType   string                 `json:"resourceType"`
	ResourceID     string                 `json:"resourceId"`
	RequestedByID  int64                  `json:"requestedById"`
	TerminalID     string                 `json:"terminalId"`
	Meta           map[string]interface{} `json:"meta"`
}

func (b *overrideRequestBody) validate() *ValidationError {
	var v validator
	v.terminalCompany(b.CompanyID, b.CompanyRNC, b.CompanyCloudID)
	v.requiredString("actionCode", b.ActionCode, 3, 64)
	v.optionalString("resourceType", b.ResourceType, 1, 64)
	v.optionalString("resourceId", b.ResourceID, 1, 128)
	v.positiveID("requestedById", b.RequestedByID)
	v.optionalString("terminalId", b.TerminalID, 1, 128)
	v.meta("meta", b.Meta)
	return v.err()
}

// approveBody takes companyId and approvedById from the session. When a caller
// still sends them they must match it.
type approveBody struct {
	CompanyID        *int64 `json:"companyId"`
	RequestID        int64  `json:"requestId"`
	ApprovedByID     *int64 `json:"approvedById"`
	ExpiresInSeconds *int   `json:"expiresInSeconds"`
}

func (b *approveBody) validate() *ValidationError {
	var v validator
	if b.CompanyID != nil {
		v.positiveID("companyId", *b.CompanyID)
	}
	v.positiveID("requestId", b.RequestID)
	if b.ApprovedByID != nil {
		v.positiveID("approvedById", *b.ApprovedByID)
	}
	if b.ExpiresInSeconds != nil {
		v.intRange("expiresInSeconds", *b.ExpiresInSeconds, params.OverrideMinTTLSeconds, params.OverrideMaxTTLSeconds)
	}
	return v.err()
}

type verifyBody struct {
	CompanyID      int64  `json:"companyId"`
	CompanyRNC     string `json:"companyRnc"`
	CompanyCloudID string `json:"companyCloudId"`
	Token          string `json:"token"`
	ActionCode     string `json:"actionCode"`
	ResourceType   string `json:"resourceType"`
	ResourceID     string `json:"resourceId"`
	UsedByID       int64  `json:"usedById"`
	TerminalID     string `json:"terminalId"`
}

func (b *verifyBody) validate() *ValidationError {
	var v validator
	v.terminalCompany(b.CompanyID, b.CompanyRNC, b.CompanyCloudID)
	v.requiredString("token", b.Token, 4, 64)
	v.requiredString("actionCode", b.ActionCode, 3, 64)
	v.optionalString("resourceType", b.ResourceType, 1, 64)
	v.optionalString("resourceId", b.ResourceID, 1, 128)
	v.positiveID("usedById", b.UsedByID)
	v.optionalString("terminalId", b.TerminalID, 1, 128)
	return v.err()
}

type provisionBody struct {
	TerminalID string `json:"terminalId"`
	UID        string `json:"uid"`
}

func (b *provisionBody) validate() *ValidationError {
	var v validator
	v.requiredString("terminalId", b.TerminalID, 3, 128)
	v.optionalString("uid", b.UID, 6, 128)
	return v.err()
}

type loginBody struct {
	Identifier string `json:"identifier"`
	Username   string `json:"username"`
	Password   string `json:"password"`
}

func (b *loginBody) validate() *ValidationError {
	var v validator
	if b.Identifier == "" {
		b.Identifier = b.Username
	}
	v.requiredString("identifier", b.Identifier, 1, 256)
	v.requiredString("password", b.Password, 1, 128)
	return v.err()
}

type refreshBody struct {
	RefreshToken string `json:"refreshToken"`
}

func (b *refreshBody) validate() *ValidationError {
	var v validator
	v.requiredString("refreshToken", b.RefreshToken, 1, 64)
	return v.err()
}

type createRequestResponse struct {
	RequestID uint   `json:"requestId"`
	Status    string `json:"status"`
}

type approveResponse struct {
	RequestID uint      `json:"requestId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	TokenID   uint      `json:"tokenId"`
}

type verifyResponse struct {
	OK      bool   `json:"ok"`
	TokenID uint   `json:"tokenId,omitempty"`
	Method  string `json:"method,omitempty"`
	Message string `json:"message,omitempty"`
}

type provisionResponse struct {
	TerminalID string `json:"terminalId"`
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauthUrl"`
	QRCode     string `json:"qrCode"`
	Period     uint   `json:"period"`
	Digits     int    `json:"digits"`
}

type userInfo struct {
	ID        uint   `json:"id"`
	CompanyID uint   `json:"companyId"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role"`
}

type loginResponse struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	TokenType    string    `json:"tokenType"`
	ExpiresAt    time.Time `json:"expiresAt"`
	User         *userInfo `json:"user,omitempty"`
}
