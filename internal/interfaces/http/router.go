package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/retail-pos/internal/application/pos"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	ShiftUC   *pos.ShiftUseCase
	SaleUC    *pos.SaleUseCase
	ReturnUC  *pos.ReturnUseCase
	JWTSecret string
}

// Router registra las rutas del motor POS. Todo va protegido por Bearer Token.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api/pos", RequestIDMiddleware(), AuthMiddleware(deps.JWTSecret))

	// Turnos de caja
	shifts := api.Group("/shifts")
	shiftHandler := NewShiftHandler(deps.ShiftUC)
	shifts.Post("/open", shiftHandler.Open)
	shifts.Get("/current", shiftHandler.Current)
	shifts.Post("/:id/close", shiftHandler.Close)
	shifts.Get("/:id/report", shiftHandler.Report)
	shifts.Post("/:id/cash-movements", shiftHandler.CashMovement)

	// Ventas
	sales := api.Group("/sales")
	saleHandler := NewSaleHandler(deps.SaleUC)
	sales.Post("/", saleHandler.CreateDraft)
	sales.Get("/:id", saleHandler.Get)
	sales.Post("/:id/lines", saleHandler.AddLine)
	sales.Put("/:id/lines/:lineId", saleHandler.UpdateLine)
	sales.Delete("/:id/lines/:lineId", saleHandler.RemoveLine)
	sales.Post("/:id/cancel", saleHandler.Cancel)
	sales.Post("/:id/complete", saleHandler.Complete)
	sales.Post("/:id/kkm-retry", saleHandler.RetryKKM)

	// Devoluciones
	returns := api.Group("/returns")
	returnHandler := NewReturnHandler(deps.ReturnUC)
	returns.Post("/", returnHandler.CreateDraft)
	returns.Get("/:id", returnHandler.Get)
	returns.Post("/:id/lines", returnHandler.AddLine)
	returns.Put("/:id/lines/:lineId", returnHandler.UpdateLine)
	returns.Delete("/:id/lines/:lineId", returnHandler.RemoveLine)
	returns.Post("/:id/complete", returnHandler.Complete)
}
