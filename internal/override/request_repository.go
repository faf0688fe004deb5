package override

import (
	"context"

	"github.com/fullpos/poscloud/model"
	"gorm.io/gorm"
)

type RequestRepository interface {
	WithTx(tx *gorm.DB) RequestRepository
	Create(ctx context.Context, req *model.OverrideRequest) error
	First(ctx context.Context, companyID uint, requestID uint) (*model.OverrideRequest, error)
	UpdatePending(ctx context.Context, companyID uint, requestID uint, columns map[string]interface{}) (int64, error)
	Find(ctx context.Context, filter ListRequestsFilter) ([]*model.OverrideRequest, error)
}

type requestRepository struct {
	db *gorm.DB
}

func (r *requestRepository) WithTx(tx *gorm.DB) RequestRepository {
	return NewRequestRepository(tx)
}

func (r *requestRepository) Create(ctx context.Context, req *model.OverrideRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *requestRepository) First(ctx context.Context, companyID uint, requestID uint) (*model.OverrideRequest, error) {
	var req model.OverrideRequest
	err := r.db.WithContext(ctx).
		Where("id = ? AND "+model.ColCompanyID+" = ?", requestID, companyID).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// UpdatePending only touches the row while it is still PENDING, so the number
// of affected rows tells the caller whether it won the transition.
func (r *requestRepository) UpdatePending(ctx context.Context, companyID uint, requestID uint, columns map[string]interface{}) (int64, error) {
	ret := r.db.WithContext(ctx).
		Model(&model.OverrideRequest{}).
		Where("id = ? AND "+model.ColCompanyID+" = ? AND "+model.ColStatus+" = ?", requestID, companyID, model.OverrideStatusPending).
		Updates(columns)
	return ret.RowsAffected, ret.Error
}

func (r *requestRepository) Find(ctx context.Context, filter ListRequestsFilter) ([]*model.OverrideRequest, error) {
	var requests []*model.OverrideRequest
	tx := r.db.WithContext(ctx).Where(model.ColCompanyID+" = ?", filter.CompanyID)
	if filter.Status != "" {
		tx = tx.Where(model.ColStatus+" = ?", filter.Status)
	}
	err := tx.Order(model.ColCreatedAt + " DESC").
		Order("id DESC").
		Limit(filter.Limit).
		Find(&requests).Error
	return requests, err
}

func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db}
}
