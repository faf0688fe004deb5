package override

import (
	"context"
	"time"

	"github.com/fullpos/poscloud/model"
	"gorm.io/gorm"
)

type TokenRepository interface {
	WithTx(tx *gorm.DB) TokenRepository
	Create(ctx context.Context, token *model.OverrideToken) error
	FindByHash(ctx context.Context, companyID uint, actionCode string, tokenHash string) (*model.OverrideToken, error)
	MarkUsed(ctx context.Context, tokenID uint, usedByID uint, usedAt time.Time, result string) (int64, error)
}

type tokenRepository struct {
	db *gorm.DB
}

func (r *tokenRepository) WithTx(tx *gorm.DB) TokenRepository {
	return NewTokenRepository(tx)
}

func (r *tokenRepository) Create(ctx context.Context, token *model.OverrideToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

// FindByHash looks up a remote token. Virtual tokens are consumed on insert and
// never match here.
func (r *tokenRepository) FindByHash(ctx context.Context, companyID uint, actionCode string, tokenHash string) (*model.OverrideToken, error) {
	var token model.OverrideToken
	err := r.db.WithContext(ctx).
		Where(model.ColCompanyID+" = ? AND action_code = ? AND "+model.ColTokenHash+" = ? AND method = ?",
			companyID, actionCode, tokenHash, model.OverrideMethodRemote).
		Order("id DESC").
		First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *tokenRepository) MarkUsed(ctx context.Context, tokenID uint, usedByID uint, usedAt time.Time, result string) (int64, error) {
	ret := r.db.WithContext(ctx).
		Model(&model.OverrideToken{}).
		Where("id = ? AND "+model.ColUsedAt+" IS NULL", tokenID).
		Updates(map[string]interface{}{
			model.ColUsedAt:   usedAt,
			model.ColUsedByID: usedByID,
			model.ColResult:   result,
		})
	return ret.RowsAffected, ret.Error
}

func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{db}
}
