package override

import (
	"context"

	"github.com/fullpos/poscloud/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TerminalRepository interface {
	WithTx(tx *gorm.DB) TerminalRepository
	First(ctx context.Context, companyID uint, terminalID string) (*model.Terminal, error)
	Upsert(ctx context.Context, terminal *model.Terminal) error
}

type terminalRepository struct {
	db *gorm.DB
}

func (r *terminalRepository) WithTx(tx *gorm.DB) TerminalRepository {
	return NewTerminalRepository(tx)
}

func (r *terminalRepository) First(ctx context.Context, companyID uint, terminalID string) (*model.Terminal, error) {
	var terminal model.Terminal
	err := r.db.WithContext(ctx).
		Where(model.ColCompanyID+" = ? AND terminal_id = ?", companyID, terminalID).
		First(&terminal).Error
	if err != nil {
		return nil, err
	}
	return &terminal, nil
}

// Upsert re-keys an existing terminal instead of failing on its unique index.
func (r *terminalRepository) Upsert(ctx context.Context, terminal *model.Terminal) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: model.ColCompanyID}, {Name: "terminal_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				model.ColUID,
				model.ColTOTPSecret,
				model.ColProvisionedBy,
				model.ColProvisionedAt,
				model.ColUpdatedAt,
			}),
		}).
		Create(terminal).Error
}

func NewTerminalRepository(db *gorm.DB) TerminalRepository {
	return &terminalRepository{db}
}
