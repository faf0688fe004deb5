package companies

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/fullpos/poscloud/internal/audit"
	"github.com/fullpos/poscloud/internal/database/dbtest"
	"github.com/fullpos/poscloud/model"
	"gorm.io/gorm"
)

func newTestCompanyService(t *testing.T) (*CompanyService, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t)
	auditSvc := audit.NewAuditService(audit.NewAuditLogRepository(db))
	return NewCompanyService(db, auditSvc), db
}

func TestNormalizeRNC(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"1-01-00001-1", "101000011"},
		{" AbC 123 ", "abc123"},
		{"---", ""},
	}
	for _, tt := range tests {
		if got := NormalizeRNC(tt.in); got != tt.want {
			t.Errorf("NormalizeRNC(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCreateAndResolve(t *testing.T) {
	svc, _ := newTestCompanyService(t)
	ctx := context.Background()

	company, err := svc.Create(ctx, "Colmado A", "1-01-00001-1", "owner@example.com")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if company.CloudID == "" || company.RNC != "101000011" {
		t.Fatalf("unexpected company %+v", company)
	}

	if _, err := svc.Create(ctx, "Copy", "101000011", ""); !errors.Is(err, ErrCompanyExists) {
		t.Fatalf("expected ErrCompanyExists, got %v", err)
	}
	if _, err := svc.Create(ctx, "Empty", "--", ""); !errors.Is(err, ErrInvalidRNC) {
		t.Fatalf("expected ErrInvalidRNC, got %v", err)
	}

	byRNC, err := svc.Resolve(ctx, "101-000011", "")
	if err != nil || byRNC.ID != company.ID {
		t.Fatalf("resolve by rnc: %v %+v", err, byRNC)
	}
	byCloudID, err := svc.Resolve(ctx, "", company.CloudID)
	if err != nil || byCloudID.ID != company.ID {
		t.Fatalf("resolve by cloud id: %v %+v", err, byCloudID)
	}
	if _, err := svc.Resolve(ctx, "999", ""); !errors.Is(err, ErrCompanyNotFound) {
		t.Fatalf("expected ErrCompanyNotFound, got %v", err)
	}
	if _, err := svc.Resolve(ctx, "", ""); !errors.Is(err, ErrCompanyNotFound) {
		t.Fatalf("expected ErrCompanyNotFound, got %v", err)
	}
}

func seedOverrideData(t *testing.T, db *gorm.DB, companyID uint) {
	t.Helper()
	req := model.OverrideRequest{CompanyID: companyID, ActionCode: "VOID_SALE", RequestedByID: 1, Status: model.OverrideStatusPending}
	if err := db.Create(&req).Error; err != nil {
		t.Fatalf("seed request: %v", err)
	}
	entry := model.AuditLog{CompanyID: companyID, ActionCode: "VOID_SALE", Method: audit.MethodRemote, Result: audit.ResultRequested}
	if err := db.Create(&entry).Error; err != nil {
		t.Fatalf("seed audit: %v", err)
	}
	user := model.User{CompanyID: companyID, Username: fmt.Sprintf("user%d", companyID), Password: "x"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func count(t *testing.T, db *gorm.DB, m interface{}, companyID uint) int64 {
	t.Helper()
	var n int64
	if err := db.Model(m).Where("company_id = ?", companyID).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestPurgeReset(t *testing.T) {
	svc, db := newTestCompanyService(t)
	ctx := context.Background()
	a, err := svc.Create(ctx, "A", "101", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	b, err := svc.Create(ctx, "B", "102", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	seedOverrideData(t, db, a.ID)
	seedOverrideData(t, db, b.ID)

	userID := uint(1)
	if err := svc.Purge(ctx, a.ID, &userID, false); err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if n := count(t, db, &model.OverrideRequest{}, a.ID); n != 0 {
		t.Fatalf("requests survived purge: %d", n)
	}
	if n := count(t, db, &model.User{}, a.ID); n != 1 {
		t.Fatalf("reset must keep users, got %d", n)
	}
	var entries []model.AuditLog
	if err := db.Where("company_id = ?", a.ID).Find(&entries).Error; err != nil {
		t.Fatalf("load audit: %v", err)
	}
	if len(entries) != 1 || entries[0].ActionCode != audit.ActionDangerReset {
		t.Fatalf("expected single DANGER_RESET entry, got %+v", entries)
	}
	if n := count(t, db, &model.OverrideRequest{}, b.ID); n != 1 {
		t.Fatalf("purge touched another company")
	}
}

func TestPurgeDelete(t *testing.T) {
	svc, db := newTestCompanyService(t)
	ctx := context.Background()
	a, err := svc.Create(ctx, "A", "101", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	seedOverrideData(t, db, a.ID)

	if err := svc.Purge(ctx, a.ID, nil, true); err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if _, err := svc.GetCompany(ctx, a.ID); !errors.Is(err, ErrCompanyNotFound) {
		t.Fatalf("expected company to be deleted, got %v", err)
	}
	if n := count(t, db, &model.User{}, a.ID); n != 0 {
		t.Fatalf("users survived delete: %d", n)
	}
	if err := svc.Purge(ctx, a.ID, nil, true); !errors.Is(err, ErrCompanyNotFound) {
		t.Fatalf("expected ErrCompanyNotFound, got %v", err)
	}
}
