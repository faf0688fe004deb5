package api

import (
	"context"

	"github.com/fullpos/poscloud/internal/auth"
	"github.com/fullpos/poscloud/internal/override"
	"github.com/fullpos/poscloud/model"
)

type OverrideService interface {
	CreateRequest(ctx context.Context, input override.CreateRequestInput) (*override.CreateRequestResult, error)
	Approve(ctx context.Context, input override.ApproveInput) (*override.ApproveResult, error)
	Verify(ctx context.Context, input override.VerifyInput) (*override.VerifyResult, error)
	ProvisionVirtualToken(ctx context.Context, input override.ProvisionInput) (*override.ProvisionResult, error)
	ListRequests(ctx context.Context, filter override.ListRequestsFilter) ([]*model.OverrideRequest, error)
	Audit(ctx context.Context, companyID uint, limit int) ([]*model.AuditLog, error)
}

type AuthService interface {
	Login(ctx context.Context, identifier string, password string) (*auth.TokenPair, *model.User, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
	Logout(refreshToken string) error
}

type CompanyResolver interface {
	Resolve(ctx context.Context, rnc string, cloudID string) (*model.Company, error)
}

type UserLookup interface {
	GetUserByID(ctx context.Context, userID uint) (*model.User, error)
}
