package mail

import (
	"context"
	"fmt"
	"text/template"

	"github.com/fullpos/poscloud/model"
	"github.com/valyala/bytebufferpool"
)

var overrideRequestTmpl = template.Must(template.New("override-request").Parse(
	`A terminal of {{.Company}} is asking for an override.

Action:    {{.ActionCode}}
{{- if .ResourceType}}
Resource:  {{.ResourceType}} {{.ResourceID}}
{{- end}}
{{- if .TerminalID}}
Terminal:  {{.TerminalID}}
{{- end}}
Request:   #{{.RequestID}}
Requested: {{.CreatedAt}}

Open the owner app to approve it.
`))

type CompanyLookup interface {
	GetCompany(ctx context.Context, companyID uint) (*model.Company, error)
}

// OverrideNotifier mails the company owner whenever a terminal asks for an
// override. Companies without an owner address are skipped.
type OverrideNotifier struct {
	sender    MailSender
	companies CompanyLookup
}

func renderOverrideRequest(company *model.Company, req *model.OverrideRequest) (string, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	err := overrideRequestTmpl.Execute(buf, map[string]interface{}{
		"Company":      company.Name,
		"ActionCode":   req.ActionCode,
		"ResourceType": req.ResourceType,
		"ResourceID":   req.ResourceID,
		"TerminalID":   req.TerminalID,
		"RequestID":    req.ID,
		"CreatedAt":    req.CreatedAt.Format("2006-01-02 15:04:05 MST"),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (n *OverrideNotifier) NotifyOverrideRequest(ctx context.Context, req *model.OverrideRequest) error {
	company, err := n.companies.GetCompany(ctx, req.CompanyID)
	if err != nil {
		return err
	}
	if company.OwnerEmail == "" {
		return nil
	}
	body, err := renderOverrideRequest(company, req)
	if err != nil {
		return err
	}
	return n.sender.Send(&Message{
		To:      []string{company.OwnerEmail},
		Subject: fmt.Sprintf("Override requested: %s", req.ActionCode),
		Body:    body,
	})
}

func NewOverrideNotifier(sender MailSender, companies CompanyLookup) *OverrideNotifier {
	return &OverrideNotifier{sender: sender, companies: companies}
}
