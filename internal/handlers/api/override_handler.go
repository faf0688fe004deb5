package api

import (
	"errors"

	"github.com/fullpos/poscloud/internal/auth"
	"github.com/fullpos/poscloud/internal/companies"
	"github.com/fullpos/poscloud/internal/middlewares"
	"github.com/fullpos/poscloud/internal/override"
	"github.com/fullpos/poscloud/internal/users"
	"github.com/fullpos/poscloud/model"
	"github.com/fullpos/poscloud/params"
	"github.com/gofiber/fiber/v2"
)

type OverrideHandler struct {
	overrideService OverrideService
	companies       CompanyResolver
	users           UserLookup
}

func clientError(ctx *fiber.Ctx, err error) error {
	if override.IsClientError(err) {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	return err
}

// terminalCompany returns the company a terminal call targets. An explicit id
// wins over the RNC and cloud id.
func (h *OverrideHandler) terminalCompany(ctx *fiber.Ctx, companyID int64, rnc, cloudID string) (uint, error) {
	if companyID > 0 {
		return uint(companyID), nil
	}
	company, err := h.companies.Resolve(ctx.Context(), rnc, cloudID)
	if err != nil {
		return 0, err
	}
	return company.ID, nil
}

// approver reloads the session user so a disabled or demoted account loses
// approval rights before its access token expires.
func (h *OverrideHandler) approver(ctx *fiber.Ctx) (*auth.Claims, error) {
	session := middlewares.CurrentSession(ctx)
	if session == nil {
		return nil, nil
	}
	user, err := h.users.GetUserByID(ctx.Context(), session.UserID)
	if errors.Is(err, users.ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if user.CompanyID != session.CompanyID || !user.CanApproveOverrides() {
		return nil, nil
	}
	return session, nil
}

func forbidden(ctx *fiber.Ctx) error {
	return ctx.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "Forbidden"})
}

// sessionCompany returns the company an authenticated read targets. An explicit
// companyId is accepted only when it names the caller's own company.
func sessionCompany(ctx *fiber.Ctx, v *validator, session *auth.Claims) (uint, bool) {
	companyID, ok := v.queryInt(ctx, "companyId")
	if !ok {
		return session.CompanyID, true
	}
	if companyID <= 0 {
		v.add("companyId", "must be a positive integer")
		return 0, true
	}
	return session.CompanyID, uint(companyID) == session.CompanyID
}

func queryLimit(ctx *fiber.Ctx, v *validator) int {
	limit, ok := v.queryInt(ctx, "limit")
	if !ok {
		return 0
	}
	v.intRange("limit", int(limit), 1, params.ListMaxLimit)
	return int(limit)
}

// PostRequest is called by terminals, so the company comes from the body.
func (h *OverrideHandler) PostRequest(ctx *fiber.Ctx) error {
	var body overrideRequestBody
	if verr := parseBody(ctx, &body); verr != nil {
		return sendValidationError(ctx, verr)
	}
	if err := body.validate(); err != nil {
		return sendValidationError(ctx, err)
	}

	companyID, err := h.terminalCompany(ctx, body.CompanyID, body.CompanyRNC, body.CompanyCloudID)
	if errors.Is(err, companies.ErrCompanyNotFound) {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if err != nil {
		return err
	}

	result, err := h.overrideService.CreateRequest(ctx.Context(), override.CreateRequestInput{
		CompanyID:     companyID,
		ActionCode:    body.ActionCode,
		ResourceType:  body.ResourceType,
		ResourceID:    body.ResourceID,
		RequestedByID: uint(body.RequestedByID),
		TerminalID:    body.TerminalID,
		Meta:          body.Meta,
	})
	if err != nil {
		return clientError(ctx, err)
	}
	return ctx.JSON(createRequestResponse{RequestID: result.RequestID, Status: result.Status})
}

func (h *OverrideHandler) PostApprove(ctx *fiber.Ctx) error {
	session, err := h.approver(ctx)
	if err != nil {
		return err
	}
	if session == nil {
		return forbidden(ctx)
	}

	var body approveBody
	if verr := parseBody(ctx, &body); verr != nil {
		return sendValidationError(ctx, verr)
	}
	if err := body.validate(); err != nil {
		return sendValidationError(ctx, err)
	}
	if body.CompanyID != nil && uint(*body.CompanyID) != session.CompanyID {
		return forbidden(ctx)
	}
	if body.ApprovedByID != nil && uint(*body.ApprovedByID) != session.UserID {
		return forbidden(ctx)
	}

	input := override.ApproveInput{
		CompanyID:    session.CompanyID,
		RequestID:    uint(body.RequestID),
		ApprovedByID: session.UserID,
	}
	if body.ExpiresInSeconds != nil {
		input.ExpiresInSeconds = *body.ExpiresInSeconds
	}
	result, err := h.overrideService.Approve(ctx.Context(), input)
	if err != nil {
		return clientError(ctx, err)
	}
	return ctx.JSON(approveResponse{
		RequestID: result.RequestID,
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		TokenID:   result.TokenID,
	})
}

// PostVerify answers business failures with 400 and {ok:false,message} so the
// terminal can show the reason to the operator.
func (h *OverrideHandler) PostVerify(ctx *fiber.Ctx) error {
	var body verifyBody
	if verr := parseBody(ctx, &body); verr != nil {
		return sendValidationError(ctx, verr)
	}
	if err := body.validate(); err != nil {
		return sendValidationError(ctx, err)
	}

	companyID, err := h.terminalCompany(ctx, body.CompanyID, body.CompanyRNC, body.CompanyCloudID)
	if errors.Is(err, companies.ErrCompanyNotFound) {
		return ctx.Status(fiber.StatusBadRequest).JSON(verifyResponse{OK: false, Message: err.Error()})
	}
	if err != nil {
		return err
	}

	result, err := h.overrideService.Verify(ctx.Context(), override.VerifyInput{
		CompanyID:    companyID,
		Token:        body.Token,
		ActionCode:   body.ActionCode,
		ResourceType: body.ResourceType,
		ResourceID:   body.ResourceID,
		UsedByID:     uint(body.UsedByID),
		TerminalID:   body.TerminalID,
	})
	if errors.Is(err, override.ErrInvalidInput) {
		return ctx.Status(fiber.StatusBadRequest).JSON(verifyResponse{OK: false, Message: err.Error()})
	}
	if err != nil {
		return err
	}
	if !result.OK {
		return ctx.Status(fiber.StatusBadRequest).JSON(verifyResponse{OK: false, Message: result.Message})
	}
	return ctx.JSON(verifyResponse{OK: true, TokenID: result.TokenID, Method: result.Method})
}

func (h *OverrideHandler) PostProvisionVirtual(ctx *fiber.Ctx) error {
	session, err := h.approver(ctx)
	if err != nil {
		return err
	}
	if session == nil {
		return forbidden(ctx)
	}

	var body provisionBody
	if verr := parseBody(ctx, &body); verr != nil {
		return sendValidationError(ctx, verr)
	}
	if err := body.validate(); err != nil {
		return sendValidationError(ctx, err)
	}

	result, err := h.overrideService.ProvisionVirtualToken(ctx.Context(), override.ProvisionInput{
		CompanyID:       session.CompanyID,
		TerminalID:      body.TerminalID,
		UID:             body.UID,
		ProvisionedByID: session.UserID,
	})
	if err != nil {
		return clientError(ctx, err)
	}
	return ctx.JSON(provisionResponse{
		TerminalID: result.TerminalID,
		Secret:     result.Secret,
		OTPAuthURL: result.URL,
		QRCode:     "data:image/png;base64," + result.QRCode,
		Period:     result.Period,
		Digits:     result.Digits,
	})
}

func (h *OverrideHandler) GetRequests(ctx *fiber.Ctx) error {
	session := middlewares.CurrentSession(ctx)
	var v validator
	companyID, allowed := sessionCompany(ctx, &v, session)
	limit := queryLimit(ctx, &v)
	status := ctx.Query("status")
	switch status {
	case "", model.OverrideStatusPending, model.OverrideStatusApproved, model.OverrideStatusRejected, model.OverrideStatusExpired:
	default:
		v.add("status", "must be one of PENDING, APPROVED, REJECTED, EXPIRED")
	}
	if err := v.err(); err != nil {
		return sendValidationError(ctx, err)
	}
	if !allowed {
		return forbidden(ctx)
	}

	requests, err := h.overrideService.ListRequests(ctx.Context(), override.ListRequestsFilter{
		CompanyID: companyID,
		Status:    status,
		Limit:     limit,
	})
	if err != nil {
		return err
	}
	return ctx.JSON(requests)
}

func (h *OverrideHandler) GetAudit(ctx *fiber.Ctx) error {
	session := middlewares.CurrentSession(ctx)
	var v validator
	companyID, allowed := sessionCompany(ctx, &v, session)
	limit := queryLimit(ctx, &v)
	if err := v.err(); err != nil {
		return sendValidationError(ctx, err)
	}
	if !allowed {
		return forbidden(ctx)
	}

	entries, err := h.overrideService.Audit(ctx.Context(), companyID, limit)
	if err != nil {
		return err
	}
	return ctx.JSON(entries)
}

func NewOverrideHandler(overrideService OverrideService, companies CompanyResolver, users UserLookup) *OverrideHandler {
	return &OverrideHandler{
		overrideService: overrideService,
		companies:       companies,
		users:           users,
	}
}
