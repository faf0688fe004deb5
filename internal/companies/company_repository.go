package companies

import (
	"context"

	"github.com/fullpos/poscloud/model"
	"gorm.io/gorm"
)

type CompanyRepository interface {
	WithTx(tx *gorm.DB) CompanyRepository
	First(ctx context.Context, query interface{}, args ...interface{}) (*model.Company, error)
	Create(ctx context.Context, company *model.Company) error
	// DeleteScoped removes every row of model belonging to the company.
	DeleteScoped(ctx context.Context, companyID uint, model interface{}) (int64, error)
	Delete(ctx context.Context, companyID uint) error
}

type companyRepository struct {
	db *gorm.DB
}

func (r *companyRepository) WithTx(tx *gorm.DB) CompanyRepository {
	return NewCompanyRepository(tx)
}

func (r *companyRepository) First(ctx context.Context, query interface{}, args ...interface{}) (*model.Company, error) {
	var company model.Company
	if err := r.db.WithContext(ctx).Where(query, args...).First(&company).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *companyRepository) Create(ctx context.Context, company *model.Company) error {
	return r.db.WithContext(ctx).Create(company).Error
}

func (r *companyRepository) DeleteScoped(ctx context.Context, companyID uint, m interface{}) (int64, error) {
	ret := r.db.WithContext(ctx).Where(model.ColCompanyID+" = ?", companyID).Delete(m)
	return ret.RowsAffected, ret.Error
}

func (r *companyRepository) Delete(ctx context.Context, companyID uint) error {
	return r.db.WithContext(ctx).Delete(&model.Company{}, companyID).Error
}

func NewCompanyRepository(db *gorm.DB) CompanyRepository {
	return &companyRepository{db}
}
