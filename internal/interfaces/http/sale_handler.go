package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/retail-pos/internal/application/dto"
	"github.com/tu-usuario/retail-pos/internal/application/pos"
)

// SaleHandler maneja las peticiones HTTP del motor de ventas POS (protegido).
type SaleHandler struct {
	uc *pos.SaleUseCase
}

// NewSaleHandler construye el handler.
func NewSaleHandler(uc *pos.SaleUseCase) *SaleHandler {
	return &SaleHandler{uc: uc}
}

// CreateDraft godoc
// @Summary      Crear (o reutilizar) borrador de venta
// @Tags         sales
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string  false  "clave de idempotencia"
// @Param        body  body  dto.CreateSaleDraftRequest  true  "register_id y líneas opcionales"
// @Success      201   {object}  dto.SaleResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/pos/sales [post]
func (h *SaleHandler) CreateDraft(c *fiber.Ctx) error {
	var in dto.CreateSaleDraftRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "BAD_REQUEST", Message: "posInvalidBody"})
	}
	input := pos.CreateSaleDraftInput{
		OrgID:         GetOrgID(c),
		ActorID:       GetUserID(c),
		RegisterID:    in.RegisterID,
		CustomerName:  in.CustomerName,
		CustomerPhone: in.CustomerPhone,
		Notes:         in.Notes,
		IdemKey:       c.Get(HeaderIdempotencyKey),
	}
	for _, l := range in.Lines {
		input.Lines = append(input.Lines, pos.DraftLineInput{ProductID: l.ProductID, VariantID: l.VariantID, Qty: l.Qty})
	}
	resp, err := h.uc.CreateDraft(c.UserContext(), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// Get godoc
// @Summary      Obtener venta con líneas
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "sale id"
// @Success      200  {object}  dto.SaleResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/pos/sales/{id} [get]
func (h *SaleHandler) Get(c *fiber.Ctx) error {
	resp, err := h.uc.GetSale(c.UserContext(), GetOrgID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

// AddLine godoc
// @Summary      Agregar línea al borrador
// @Tags         sales
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "sale id"
// @Param        body  body  dto.AddSaleLineRequest  true  "product_id, variant_id opcional, qty"
// @Success      200   {object}  dto.SaleResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/pos/sales/{id}/lines [post]
func (h *SaleHandler) AddLine(c *fiber.Ctx) error {
	var in dto.AddSaleLineRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "BAD_REQUEST", Message: "posInvalidBody"})
	}
	resp, err := h.uc.AddLine(c.UserContext(), pos.AddLineInput{
		OrgID:     GetOrgID(c),
		ActorID:   GetUserID(c),
		SaleID:    c.Params("id"),
		ProductID: in.ProductID,
		VariantID: in.VariantID,
		Qty:       in.Qty,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

// UpdateLine godoc
// @Summary      Cambiar cantidad de una línea
// @Tags         sales
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id      path  string  true  "sale id"
// @Param        lineId  path  string  true  "line id"
// @Param        body    body  dto.UpdateLineQtyRequest  true  "qty"
// @Success      200     {object}  dto.SaleResponse
// @Failure      404     {object}  dto.ErrorResponse
// @Failure      409     {object}  dto.ErrorResponse
// @Router       /api/pos/sales/{id}/lines/{lineId} [put]
func (h *SaleHandler) UpdateLine(c *fiber.Ctx) error {
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
// @Summary      Eliminar línea del borrador
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Param        id      path  string  true  "sale id"
// @Param        lineId  path  string  true  "line id"
// @Success      200     {object}  dto.SaleResponse
// @Failure      404     {object}  dto.ErrorResponse
// @Router       /api/pos/sales/{id}/lines/{lineId} [delete]
func (h *SaleHandler) RemoveLine(c *fiber.Ctx) error {
	resp, err := h.uc.RemoveLine(c.UserContext(), GetOrgID(c), GetUserID(c), c.Params("id"), c.Params("lineId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

// Cancel godoc
// @Summary      Anular borrador
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "sale id"
// @Success      200  {object}  dto.SaleResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/pos/sales/{id}/cancel [post]
func (h *SaleHandler) Cancel(c *fiber.Ctx) error {
	resp, err := h.uc.Cancel(c.UserContext(), GetOrgID(c), GetUserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

// Complete godoc
// @Summary      Completar venta (ruta crítica)
// @Tags         sales
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string  false  "clave de idempotencia"
// @Param        id    path  string  true  "sale id"
// @Param        body  body  dto.CompleteSaleRequest  true  "payments"
// @Success      200   {object}  dto.SaleResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/pos/sales/{id}/complete [post]
func (h *SaleHandler) Complete(c *fiber.Ctx) error {
	var in dto.CompleteSaleRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "BAD_REQUEST", Message: "posInvalidBody"})
	}
	input := pos.CompleteSaleInput{
		OrgID:   GetOrgID(c),
		ActorID: GetUserID(c),
		SaleID:  c.Params("id"),
		IdemKey: c.Get(HeaderIdempotencyKey),
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

// RetryKKM godoc
// @Summary      Reintentar fiscalización de una venta completada
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "sale id"
// @Success      200  {object}  dto.SaleResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/pos/sales/{id}/kkm-retry [post]
func (h *SaleHandler) RetryKKM(c *fiber.Ctx) error {
	resp, err := h.uc.RetryFiscalization(c.UserContext(), GetOrgID(c), GetUserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}
