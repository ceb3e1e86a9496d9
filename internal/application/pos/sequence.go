package pos

import (
	"context"
	"fmt"

	"github.com/tu-usuario/retail-pos/internal/domain"
	"github.com/tu-usuario/retail-pos/internal/domain/repository"
)

// nextSaleNumber acuña el consecutivo humano de venta: S-000123.
// Un contador que no devuelve fila es una anomalía de driver, no un error de usuario.
func nextSaleNumber(ctx context.Context, counters repository.CounterRepository, orgID string) (string, error) {
	n, err := counters.NextPosSaleNumber(ctx, orgID)
	if err != nil {
		return "", domain.Internal("posCounterFailure", err)
	}
	return fmt.Sprintf("S-%06d", n), nil
}

// nextReturnNumber acuña el consecutivo humano de devolución: SR-000123.
func nextReturnNumber(ctx context.Context, counters repository.CounterRepository, orgID string) (string, error) {
	n, err := counters.NextPosReturnNumber(ctx, orgID)
	if err != nil {
		return "", domain.Internal("posCounterFailure", err)
	}
	return fmt.Sprintf("SR-%06d", n), nil
}
