package override

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fullpos/poscloud/internal/audit"
	"github.com/fullpos/poscloud/model"
	"github.com/fullpos/poscloud/params"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/skip2/go-qrcode"
	"gorm.io/gorm"
)

const qrCodeSize = 256

type ProvisionInput struct {
	CompanyID       uint
	TerminalID      string
	UID             string
	ProvisionedByID uint
}

type ProvisionResult struct {
	TerminalID string
	Secret     string
	URL        string
	QRCode     string // base64 PNG
	Period     uint
	Digits     int
}

var totpOpts = totp.ValidateOpts{
	Period:    params.OverrideTOTPPeriod,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// ProvisionVirtualToken gives a terminal its own TOTP secret. Codes it shows
// afterwards verify like remote tokens without a prior approval round trip.
func (s *OverrideService) ProvisionVirtualToken(ctx context.Context, input ProvisionInput) (*ProvisionResult, error) {
	terminalID := strings.TrimSpace(input.TerminalID)
	if input.CompanyID == 0 || input.ProvisionedByID == 0 || len(terminalID) < 3 {
		return nil, ErrInvalidInput
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: terminalID,
		Period:      params.OverrideTOTPPeriod,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
		Rand:        s.random,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp secret: %w", err)
	}
	png, err := qrcode.Encode(key.URL(), qrcode.Medium, qrCodeSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}

	now := s.now()
	terminal := model.Terminal{
		CompanyID:       input.CompanyID,
		TerminalID:      terminalID,
		UID:             input.UID,
		TOTPSecret:      key.Secret(),
		ProvisionedByID: &input.ProvisionedByID,
		ProvisionedAt:   &now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.terminalRepo.WithTx(tx).Upsert(ctx, &terminal); err != nil {
			return err
		}
		return s.auditSvc.WithTx(tx).RecordOverride(ctx, audit.OverrideRecord{
			CompanyID:     input.CompanyID,
			ActionCode:    audit.ActionVirtualTokenProvision,
			RequestedByID: &input.ProvisionedByID,
			ApprovedByID:  &input.ProvisionedByID,
			Method:        audit.MethodVirtual,
			Result:        audit.ResultProvisioned,
			TerminalID:    terminalID,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("provision virtual token: %w", err)
	}

	return &ProvisionResult{
		TerminalID: terminalID,
		Secret:     key.Secret(),
		URL:        key.URL(),
		QRCode:     base64.StdEncoding.EncodeToString(png),
		Period:     params.OverrideTOTPPeriod,
		Digits:     otp.DigitsSix.Length(),
	}, nil
}

// matchTOTPStep returns the time step whose code equals code, looking one
// step either side of now.
func matchTOTPStep(secret string, code string, now time.Time) (uint64, bool) {
	current := uint64(now.Unix()) / params.OverrideTOTPPeriod
	for offset := -params.OverrideTOTPSkew; offset <= params.OverrideTOTPSkew; offset++ {
		step := uint64(int64(current) + int64(offset))
		stepTime := time.Unix(int64(step*params.OverrideTOTPPeriod), 0)
		expected, err := totp.GenerateCodeCustom(secret, stepTime, totpOpts)
		if err != nil {
			return 0, false
		}
		if subtle.ConstantTimeCompare([]byte(expected), []byte(code)) == 1 {
			return step, true
		}
	}
	return 0, false
}

// consumeVirtualToken records a TOTP code as an already used token. The
// (company, nonce, terminal) unique index rejects a second use of the same step.
func (s *OverrideService) consumeVirtualToken(ctx context.Context, tx *gorm.DB, input VerifyInput, normalized string, now time.Time) (*model.OverrideToken, error) {
	if input.TerminalID == "" {
		return nil, ErrInvalidToken
	}
	terminal, err := s.terminalRepo.WithTx(tx).First(ctx, input.CompanyID, input.TerminalID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if terminal.TOTPSecret == "" {
		return nil, ErrInvalidToken
	}
	step, ok := matchTOTPStep(terminal.TOTPSecret, normalized, now)
	if !ok {
		return nil, ErrInvalidToken
	}

	token := model.OverrideToken{
		CompanyID:     input.CompanyID,
		ActionCode:    input.ActionCode,
		ResourceType:  input.ResourceType,
		ResourceID:    input.ResourceID,
		TokenHash:     HashToken(normalized),
		Method:        model.OverrideMethodVirtual,
		Nonce:         fmt.Sprintf("totp:%d", step),
		RequestedByID: input.UsedByID,
		ApprovedByID:  terminal.ProvisionedByID,
		ExpiresAt:     now.Add(params.OverrideTOTPPeriod * time.Second),
		TerminalID:    input.TerminalID,
		UsedAt:        &now,
		UsedByID:      &input.UsedByID,
		Result:        audit.ResultApproved,
		CreatedAt:     now,
	}
	err = s.tokenRepo.WithTx(tx).Create(ctx, &token)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ErrTokenUsed
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}
