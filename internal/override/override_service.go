package override

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/fullpos/poscloud/internal/audit"
	"github.com/fullpos/poscloud/model"
	"github.com/fullpos/poscloud/params"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CreateRequestInput struct {
	CompanyID     uint
	ActionCode    string
	ResourceType  string
	ResourceID    string
	RequestedByID uint
	TerminalID    string
	Meta          map[string]interface{}
}

type CreateRequestResult struct {
	RequestID uint
	Status    string
}

type ApproveInput struct {
	CompanyID        uint
	RequestID        uint
	ApprovedByID     uint
	ExpiresInSeconds int
}

type ApproveResult struct {
	RequestID uint
	Token     string
	ExpiresAt time.Time
	TokenID   uint
}

type VerifyInput struct {
	CompanyID    uint
	Token        string
	ActionCode   string
	ResourceType string
	ResourceID   string
	UsedByID     uint
	TerminalID   string
}

type VerifyResult struct {
	OK      bool
	TokenID uint
	Method  string
	Message string
}

type ListRequestsFilter struct {
	CompanyID uint
	Status    string
	Limit     int
}

// Notifier is told about every new request after it has been committed.
type Notifier interface {
	NotifyOverrideRequest(ctx context.Context, req *model.OverrideRequest) error
}

type OverrideService struct {
	db           *gorm.DB
	requestRepo  RequestRepository
	tokenRepo    TokenRepository
	terminalRepo TerminalRepository
	auditSvc     *audit.AuditService
	notifier     Notifier
	random       io.Reader
	now          func() time.Time
	issuer       string
}

func (s *OverrideService) CreateRequest(ctx context.Context, input CreateRequestInput) (*CreateRequestResult, error) {
	actionCode := strings.TrimSpace(input.ActionCode)
	if input.CompanyID == 0 || input.RequestedByID == 0 || len(actionCode) < 3 {
		return nil, ErrInvalidInput
	}

	req := model.OverrideRequest{
		CompanyID:     input.CompanyID,
		ActionCode:    actionCode,
		ResourceType:  input.ResourceType,
		ResourceID:    input.ResourceID,
		RequestedByID: input.RequestedByID,
		TerminalID:    input.TerminalID,
		Status:        model.OverrideStatusPending,
		CreatedAt:     s.now(),
	}
	if len(input.Meta) > 0 {
		req.Meta = datatypes.JSONMap(input.Meta)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requestRepo.WithTx(tx).Create(ctx, &req); err != nil {
			return err
		}
		return s.auditSvc.WithTx(tx).RecordOverride(ctx, audit.OverrideRecord{
			CompanyID:     req.CompanyID,
			ActionCode:    req.ActionCode,
			ResourceType:  req.ResourceType,
			ResourceID:    req.ResourceID,
			RequestedByID: &req.RequestedByID,
			Method:        audit.MethodRemote,
			Result:        audit.ResultRequested,
			TerminalID:    req.TerminalID,
			Meta:          input.Meta,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("create override request: %w", err)
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyOverrideRequest(ctx, &req); err != nil {
			slog.Warn("Failed to notify override request", "requestId", req.ID, "error", err)
		}
	}
	return &CreateRequestResult{RequestID: req.ID, Status: req.Status}, nil
}

func approvalTTL(seconds int) (time.Duration, error) {
	if seconds == 0 {
		return params.OverrideDefaultTTL, nil
	}
	if seconds < params.OverrideMinTTLSeconds || seconds > params.OverrideMaxTTLSeconds {
		return 0, ErrInvalidTTL
	}
	return time.Duration(seconds) * time.Second, nil
}

// Approve mints a one-time token for a pending request. The request transition,
// the token row and the audit entry commit together or not at all.
func (s *OverrideService) Approve(ctx context.Context, input ApproveInput) (*ApproveResult, error) {
	if input.CompanyID == 0 || input.RequestID == 0 || input.ApprovedByID == 0 {
		return nil, ErrInvalidInput
	}
	ttl, err := approvalTTL(input.ExpiresInSeconds)
	if err != nil {
		return nil, err
	}
	plainToken, err := generateToken(s.random, params.OverrideTokenLength)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	nonce, err := generateToken(s.random, params.OverrideNonceLength)
	if err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	now := s.now()
	expiresAt := now.Add(ttl)
	tokenHash := HashToken(plainToken)
	var token model.OverrideToken

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		requestRepo := s.requestRepo.WithTx(tx)
		req, err := requestRepo.First(ctx, input.CompanyID, input.RequestID)
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !req.IsPending()) {
			return ErrCannotApprove
		}
		if err != nil {
			return err
		}

		// A concurrent approver may still win between the read and this update.
		affected, err := requestRepo.UpdatePending(ctx, input.CompanyID, input.RequestID, map[string]interface{}{
			model.ColStatus:       model.OverrideStatusApproved,
			model.ColApprovedByID: input.ApprovedByID,
			model.ColTokenHash:    tokenHash,
			model.ColExpiresAt:    expiresAt,
			model.ColResolvedAt:   now,
		})
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrCannotApprove
		}

		requestID := req.ID
		token = model.OverrideToken{
			CompanyID:     req.CompanyID,
			ActionCode:    req.ActionCode,
			ResourceType:  req.ResourceType,
			ResourceID:    req.ResourceID,
			TokenHash:     tokenHash,
			Method:        model.OverrideMethodRemote,
			Nonce:         nonce,
			RequestedByID: req.RequestedByID,
			ApprovedByID:  &input.ApprovedByID,
			ExpiresAt:     expiresAt,
			TerminalID:    req.TerminalID,
			RequestID:     &requestID,
			CreatedAt:     now,
		}
		if err := s.tokenRepo.WithTx(tx).Create(ctx, &token); err != nil {
			return err
		}

		return s.auditSvc.WithTx(tx).RecordOverride(ctx, audit.OverrideRecord{
			CompanyID:     req.CompanyID,
			ActionCode:    req.ActionCode,
			ResourceType:  req.ResourceType,
			ResourceID:    req.ResourceID,
			RequestedByID: &req.RequestedByID,
			ApprovedByID:  &input.ApprovedByID,
			Method:        audit.MethodRemote,
			Result:        audit.ResultApproved,
			TerminalID:    req.TerminalID,
			Meta:          map[string]interface{}{"requestId": req.ID, "tokenId": token.ID},
		})
	})
	if err != nil {
		if IsClientError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("approve override request: %w", err)
	}

	return &ApproveResult{
		RequestID: input.RequestID,
		Token:     plainToken,
		ExpiresAt: expiresAt,
		TokenID:   token.ID,
	}, nil
}

func resourceMatches(token *model.OverrideToken, input VerifyInput) bool {
	if token.ResourceType != "" && input.ResourceType != "" && token.ResourceType != input.ResourceType {
		return false
	}
	if token.ResourceID != "" && input.ResourceID != "" && token.ResourceID != input.ResourceID {
		return false
	}
	return true
}

func (s *OverrideService) consumeToken(ctx context.Context, tx *gorm.DB, input VerifyInput, normalized string, now time.Time) (*model.OverrideToken, error) {
	tokenRepo := s.tokenRepo.WithTx(tx)
	token, err := tokenRepo.FindByHash(ctx, input.CompanyID, input.ActionCode, HashToken(normalized))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.consumeVirtualToken(ctx, tx, input, normalized, now)
	}
	if err != nil {
		return nil, err
	}

	switch {
	case token.IsUsed():
		return nil, ErrTokenUsed
	case token.IsExpired(now):
		return nil, ErrTokenExpired
	case !resourceMatches(token, input):
		return nil, ErrResourceMismatch
	}

	affected, err := tokenRepo.MarkUsed(ctx, token.ID, input.UsedByID, now, audit.ResultApproved)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrTokenUsed
	}
	token.UsedAt = &now
	token.UsedByID = &input.UsedByID
	token.Result = audit.ResultApproved
	return token, nil
}

// Verify consumes a token at most once. Every attempt leaves exactly one audit
// entry: an approval committed with the token update, or a rejection written
// on its own after the transaction has rolled back.
func (s *OverrideService) Verify(ctx context.Context, input VerifyInput) (*VerifyResult, error) {
	normalized := NormalizeToken(input.Token)
	if input.CompanyID == 0 || input.UsedByID == 0 || len(normalized) < 4 || len(strings.TrimSpace(input.ActionCode)) < 3 {
		return nil, ErrInvalidInput
	}
	input.ActionCode = strings.TrimSpace(input.ActionCode)
	now := s.now()

	var token *model.OverrideToken
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		token, err = s.consumeToken(ctx, tx, input, normalized, now)
		if err != nil {
			return err
		}
		// The token's binding is what was authorized, the caller may omit it.
		return s.auditSvc.WithTx(tx).RecordOverride(ctx, audit.OverrideRecord{
			CompanyID:     token.CompanyID,
			ActionCode:    token.ActionCode,
			ResourceType:  token.ResourceType,
			ResourceID:    token.ResourceID,
			RequestedByID: &token.RequestedByID,
			ApprovedByID:  &input.UsedByID,
			Method:        token.Method,
			Result:        audit.ResultApproved,
			TerminalID:    input.TerminalID,
			Meta:          map[string]interface{}{"tokenId": token.ID},
		})
	})
	if err == nil {
		return &VerifyResult{OK: true, TokenID: token.ID, Method: token.Method}, nil
	}

	auditErr := s.auditSvc.RecordOverride(ctx, audit.OverrideRecord{
		CompanyID:     input.CompanyID,
		ActionCode:    input.ActionCode,
		ResourceType:  input.ResourceType,
		ResourceID:    input.ResourceID,
		RequestedByID: &input.UsedByID,
		Method:        audit.MethodRemote,
		Result:        audit.ResultRejected,
		TerminalID:    input.TerminalID,
		Meta:          map[string]interface{}{"error": err.Error()},
	})
	if auditErr != nil {
		slog.Error("Failed to audit rejected override", "companyId", input.CompanyID, "error", auditErr)
	}

	if IsClientError(err) {
		return &VerifyResult{OK: false, Message: err.Error()}, nil
	}
	return nil, fmt.Errorf("verify override token: %w", err)
}

func (s *OverrideService) ListRequests(ctx context.Context, filter ListRequestsFilter) ([]*model.OverrideRequest, error) {
	filter.Limit = audit.ClampLimit(filter.Limit, params.RequestsDefaultLimit)
	return s.requestRepo.Find(ctx, filter)
}

func (s *OverrideService) Audit(ctx context.Context, companyID uint, limit int) ([]*model.AuditLog, error) {
	return s.auditSvc.List(ctx, companyID, limit)
}

type Option func(*OverrideService)

// WithRandom replaces the source used for tokens, nonces and TOTP secrets.
func WithRandom(r io.Reader) Option {
	return func(s *OverrideService) {
		s.random = r
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *OverrideService) {
		s.now = now
	}
}

func WithNotifier(n Notifier) Option {
	return func(s *OverrideService) {
		s.notifier = n
	}
}

func WithIssuer(issuer string) Option {
	return func(s *OverrideService) {
		s.issuer = issuer
	}
}

func NewOverrideService(db *gorm.DB, auditSvc *audit.AuditService, opts ...Option) *OverrideService {
	s := &OverrideService{
		db:           db,
		requestRepo:  NewRequestRepository(db),
		tokenRepo:    NewTokenRepository(db),
		terminalRepo: NewTerminalRepository(db),
		auditSvc:     auditSvc,
		random:       rand.Reader,
		now:          time.Now,
		issuer:       params.OverrideIssuer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
