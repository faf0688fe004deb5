package mail

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fullpos/poscloud/model"
)

type fakeSender struct {
	sent []*Message
}

func (f *fakeSender) Send(message *Message) error {
	f.sent = append(f.sent, message)
	return nil
}

type fakeCompanies map[uint]*model.Company

func (f fakeCompanies) GetCompany(ctx context.Context, companyID uint) (*model.Company, error) {
	c, ok := f[companyID]
	if !ok {
		return nil, errors.New("company not found")
	}
	return c, nil
}

func TestNotifyOverrideRequest(t *testing.T) {
	sender := &fakeSender{}
	companies := fakeCompanies{
		1: {ID: 1, Name: "Colmado A", OwnerEmail: "owner@example.com"},
		2: {ID: 2, Name: "Colmado B"},
	}
	notifier := NewOverrideNotifier(sender, companies)

	req := &model.OverrideRequest{
		ID:           15,
		CompanyID:    1,
		ActionCode:   "VOID_SALE",
		ResourceType: "Sale",
		ResourceID:   "42",
		TerminalID:   "CAJA-01",
		CreatedAt:    time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	if err := notifier.NotifyOverrideRequest(context.Background(), req); err != nil {
		t.Fatalf("NotifyOverrideRequest failed: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one mail, got %d", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.To[0] != "owner@example.com" || !strings.Contains(msg.Subject, "VOID_SALE") {
		t.Fatalf("unexpected message %+v", msg)
	}
	for _, want := range []string{"Colmado A", "Sale 42", "CAJA-01", "#15"} {
		if !strings.Contains(msg.Body, want) {
			t.Fatalf("body missing %q:\n%s", want, msg.Body)
		}
	}

	req.CompanyID = 2
	if err := notifier.NotifyOverrideRequest(context.Background(), req); err != nil {
		t.Fatalf("NotifyOverrideRequest failed: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("company without owner email must not be mailed")
	}

	req.CompanyID = 3
	if err := notifier.NotifyOverrideRequest(context.Background(), req); err == nil {
		t.Fatalf("expected error for unknown company")
	}
}
