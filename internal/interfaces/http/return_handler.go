package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/retail-pos/internal/application/dto"
	"github.com/tu-usuario/retail-pos/internal/application/pos"
)

// ReturnHandler maneja las peticiones HTTP de devoluciones POS (protegido).
type ReturnHandler struct {
	uc *pos.ReturnUseCase
}

// NewReturnHandler construye el handler.
func NewReturnHandler(uc *pos.ReturnUseCase) *ReturnHandler {
	return &ReturnHandler{uc: uc}
}

// CreateDraft godoc
// @Summary      Crear borrador de devolución
// @Tags         returns
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string  false  "clave de idempotencia"
// @Param        body  body  dto.CreateReturnDraftRequest  true  "register_id, original_sale_id, líneas opcionales"
// @Success      201   {object}  dto.ReturnResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/pos/returns [post]
func (h *ReturnHandler) CreateDraft(c *fiber.Ctx) error {
	var in dto.CreateReturnDraftRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "BAD_REQUEST", Message: "posInvalidBody"})
	}
	input := pos.CreateReturnDraftInput{
		OrgID:          GetOrgID(c),
		ActorID:        GetUserID(c),
		RegisterID:     in.RegisterID,
		OriginalSaleID: in.OriginalSaleID,
		IdemKey:        c.Get(HeaderIdempotencyKey),
	}
	for _, l := range in.Lines {
		input.Lines = append(input.Lines, pos.ReturnLineInput{SaleLineID: l.SaleLineID, Qty: l.Qty})
	}
	resp, err := h.uc.CreateDraft(c.UserContext(), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// Get godoc
// @Summary      Obtener devolución con líneas
// @Tags         returns
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "return id"
// @Success      200  {object}  dto.ReturnResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/pos/returns/{id} [get]
func (h *ReturnHandler) Get(c *fiber.Ctx) error {
	resp, err := h.uc.GetReturn(c.UserContext(), GetOrgID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

// AddLine godoc
// @Summary      Agregar línea a la devolución
// @Tags         returns
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "return id"
// @Param        body  body  dto.ReturnLineRequest  true  "sale_line_id, qty"
// @Success      200   {object}  dto.ReturnResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/pos/returns/{id}/lines [post]
func (h *ReturnHandler) AddLine(c *fiber.Ctx) error {
	var in dto.ReturnLineRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "BAD_REQUEST", Message: "posInvalidBody"})
	}
	resp, err := h.uc.AddLine(c.UserContext(), GetOrgID(c), GetUserID(c), c.Params("id"), in.SaleLineID, in.Qty)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

// UpdateLine godoc
// @Summary      Cambiar cantidad de una línea de devolución
// @Tags         returns
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id      path  string  true  "return id"
// @Param        lineId  path  string  true  "line id"
// @Param        body    body  dto.UpdateLineQtyRequest  true  "qty"
// @Success      200     {object}  dto.ReturnResponse
// @Failure      409     {object}  dto.ErrorResponse
// @Router       /api/pos/returns/{id}/lines/{lineId} [put]
func (h *ReturnHandler) UpdateLine(c *fiber.Ctx) error {
	var in dto.UpdateLineQtyRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "BAD_REQUEST", Message: "posInvalidBody"})
	}
	resp, err := h.uc.UpdateLineQty(c.UserContext(), GetOrgID(c), GetUserID(c), c.Params("id"), c.Params("lineId"), in.Qty)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

// RemoveLine godoc
// @Summary      Eliminar línea de la devolución
// @Tags         returns
// @Security     Bearer
// @Produce      json
// @Param        id      path  string  true  "return id"
// @Param        lineId  path  string  true  "line id"
// @Success      200     {object}  dto.ReturnResponse
// @Failure      404     {object}  dto.ErrorResponse
// @Router       /api/pos/returns/{id}/lines/{lineId} [delete]
func (h *ReturnHandler) RemoveLine(c *fiber.Ctx) error {
	resp, err := h.uc.RemoveLine(c.UserContext(), GetOrgID(c), GetUserID(c), c.Params("id"), c.Params("lineId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

// Complete godoc
// @Summary      Completar devolución (reembolso y reposición de stock)
// @Tags         returns
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string  false  "clave de idempotencia"
// @Param        id    path  string  true  "return id"
// @Param        body  body  dto.CompleteReturnRequest  true  "payments"
// @Success      200   {object}  dto.ReturnResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/pos/returns/{id}/complete [post]
func (h *ReturnHandler) Complete(c *fiber.Ctx) error {
	var in dto.CompleteReturnRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "BAD_REQUEST", Message: "posInvalidBody"})
	}
	input := pos.CompleteReturnInput{
		OrgID:    GetOrgID(c),
		ActorID:  GetUserID(c),
		ReturnID: c.Params("id"),
		IdemKey:  c.Get(HeaderIdempotencyKey),
	}
	for _, p := range in.Payments {
		input.Payments = append(input.Payments, pos.PaymentInput{Method: p.Method, Amount: p.Amount, ProviderRef: p.ProviderRef})
	}
	resp, err := h.uc.Complete(c.UserContext(), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}
