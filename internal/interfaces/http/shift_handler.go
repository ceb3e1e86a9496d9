package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/retail-pos/internal/application/dto"
	"github.com/tu-usuario/retail-pos/internal/application/pos"
)

// ShiftHandler maneja las peticiones HTTP de turnos de caja (protegido).
type ShiftHandler struct {
	uc *pos.ShiftUseCase
}

// NewShiftHandler construye el handler.
func NewShiftHandler(uc *pos.ShiftUseCase) *ShiftHandler {
	return &ShiftHandler{uc: uc}
}

// Open godoc
// @Summary      Abrir turno de caja
// @Tags         shifts
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string  false  "clave de idempotencia"
// @Param        body  body  dto.OpenShiftRequest  true  "register_id, opening_cash"
// @Success      201   {object}  dto.ShiftResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/pos/shifts/open [post]
func (h *ShiftHandler) Open(c *fiber.Ctx) error {
	var in dto.OpenShiftRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "BAD_REQUEST", Message: "posInvalidBody"})
	}
	resp, err := h.uc.OpenShift(c.UserContext(), pos.OpenShiftInput{
		OrgID:       GetOrgID(c),
		ActorID:     GetUserID(c),
		RegisterID:  in.RegisterID,
		OpeningCash: in.OpeningCash,
		Notes:       in.Notes,
		IdemKey:     c.Get(HeaderIdempotencyKey),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// Close godoc
// @Summary      Cerrar turno con arqueo
// @Tags         shifts
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "shift id"
// @Param        body  body  dto.CloseShiftRequest  true  "closing_cash_counted"
// @Success      200   {object}  dto.ShiftResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/pos/shifts/{id}/close [post]
func (h *ShiftHandler) Close(c *fiber.Ctx) error {
	var in dto.CloseShiftRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "BAD_REQUEST", Message: "posInvalidBody"})
	}
	resp, err := h.uc.CloseShift(c.UserContext(), pos.CloseShiftInput{
		OrgID:              GetOrgID(c),
		ActorID:            GetUserID(c),
		ShiftID:            c.Params("id"),
		ClosingCashCounted: in.ClosingCashCounted,
		Notes:              in.Notes,
		IdemKey:            c.Get(HeaderIdempotencyKey),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

// Report godoc
// @Summary      X-report del turno (totales en vivo)
// @Tags         shifts
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "shift id"
// @Success      200  {object}  dto.ShiftReportResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/pos/shifts/{id}/report [get]
func (h *ShiftHandler) Report(c *fiber.Ctx) error {
	resp, err := h.uc.ShiftReport(c.UserContext(), GetOrgID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

// Current godoc
// @Summary      Turno OPEN de una caja
// @Tags         shifts
// @Security     Bearer
// @Produce      json
// @Param        register_id  query  string  true  "register id"
// @Success      200  {object}  dto.ShiftResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/pos/shifts/current [get]
func (h *ShiftHandler) Current(c *fiber.Ctx) error {
	resp, err := h.uc.CurrentShift(c.UserContext(), GetOrgID(c), c.Query("register_id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

// CashMovement godoc
// @Summary      Registrar PAY_IN / PAY_OUT en el cajón
// @Tags         shifts
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "shift id"
// @Param        body  body  dto.CashMovementRequest  true  "type, amount, reason"
// @Success      201   {object}  dto.CashMovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/pos/shifts/{id}/cash-movements [post]
func (h *ShiftHandler) CashMovement(c *fiber.Ctx) error {
	var in dto.CashMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "BAD_REQUEST", Message: "posInvalidBody"})
	}
	resp, err := h.uc.RecordCashMovement(c.UserContext(), pos.CashMovementInput{
		OrgID:   GetOrgID(c),
		ActorID: GetUserID(c),
		ShiftID: c.Params("id"),
		Type:    in.Type,
		Amount:  in.Amount,
		Reason:  in.Reason,
		IdemKey: c.Get(HeaderIdempotencyKey),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}
