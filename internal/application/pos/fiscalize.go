package pos

import (
	"context"

	"github.com/tu-usuario/retail-pos/internal/domain/entity"
	"github.com/tu-usuario/retail-pos/internal/domain/repository"
	"github.com/tu-usuario/retail-pos/pkg/logger"
)

// Fiscalizer entrega recibos al proveedor KKM estrictamente después del commit
// de la venta. El resultado (SENT o FAILED con el payload crudo del error) se
// persiste con un repo atado al pool; un fallo aquí nunca revierte la venta.
type Fiscalizer struct {
	registry FiscalRegistry
	sales    repository.SaleRepository // atado al pool, fuera de toda tx
	log      *logger.Logger
}

// NewFiscalizer construye el despachador fiscal.
func NewFiscalizer(registry FiscalRegistry, sales repository.SaleRepository, log *logger.Logger) *Fiscalizer {
	return &Fiscalizer{registry: registry, sales: sales, log: log}
}

// Dispatch envía el borrador al adaptador y persiste el resultado. Devuelve el
// estado KKM final y el id de recibo del proveedor (nil si falló).
func (f *Fiscalizer) Dispatch(ctx context.Context, draft *entity.FiscalReceiptDraft) (status string, receiptID *string) {
	adapter, err := f.registry.Resolve(draft.ProviderKey)
	if err != nil {
		return f.markFailed(ctx, draft, err)
	}
	result, err := adapter.Fiscalize(ctx, draft)
	if err != nil {
		return f.markFailed(ctx, draft, err)
	}
	if err := f.sales.UpdateKKM(ctx, draft.SaleID, entity.KKMStatusSent, &result.ProviderReceiptID, nil); err != nil {
		f.log.Error().Err(err).Str("sale_id", draft.SaleID).Msg("persistiendo resultado KKM")
	}
	f.log.Info().Str("sale_id", draft.SaleID).Str("receipt_id", result.ProviderReceiptID).Msg("recibo fiscalizado")
	return entity.KKMStatusSent, &result.ProviderReceiptID
}

func (f *Fiscalizer) markFailed(ctx context.Context, draft *entity.FiscalReceiptDraft, cause error) (string, *string) {
	raw := cause.Error()
	if err := f.sales.UpdateKKM(ctx, draft.SaleID, entity.KKMStatusFailed, nil, &raw); err != nil {
		f.log.Error().Err(err).Str("sale_id", draft.SaleID).Msg("persistiendo fallo KKM")
	}
	f.log.Warn().Err(cause).Str("sale_id", draft.SaleID).Str("provider", draft.ProviderKey).Msg("fiscalización fallida")
	return entity.KKMStatusFailed, nil
}
