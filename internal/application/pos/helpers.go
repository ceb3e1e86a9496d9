package pos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/tu-usuario/retail-pos/internal/domain"
	"github.com/tu-usuario/retail-pos/internal/domain/entity"
	"github.com/tu-usuario/retail-pos/internal/domain/repository"
)

type ctxKey int

const requestIDKey ctxKey = 0

// WithRequestID anota el request id en el contexto (lo setea el middleware HTTP;
// termina en las entradas de auditoría).
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func requestIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// writeAudit serializa snapshots antes/después y los escribe en la tx del caller.
func writeAudit(ctx context.Context, audit repository.AuditRepository, orgID, actorID, action, entityName, entityID string, before, after any) error {
	var rawBefore, rawAfter json.RawMessage
	if before != nil {
		b, err := json.Marshal(before)
		if err != nil {
			return domain.Internal("posAuditEncode", err)
		}
		rawBefore = b
	}
	if after != nil {
		b, err := json.Marshal(after)
		if err != nil {
			return domain.Internal("posAuditEncode", err)
		}
		rawAfter = b
	}
	return audit.Write(ctx, &entity.AuditEntry{
		ID:             uuid.New().String(),
		OrganizationID: orgID,
		ActorID:        actorID,
		Action:         action,
		Entity:         entityName,
		EntityID:       entityID,
		Before:         rawBefore,
		After:          rawAfter,
		RequestID:      requestIDFrom(ctx),
		CreatedAt:      time.Now(),
	})
}

// requireOpenShift valida que la caja exista, esté activa y tenga un turno
// OPEN; toda mutación de venta/devolución pasa por aquí.
func requireOpenShift(ctx context.Context, r Repos, orgID, registerID string) (*entity.RegisterShift, error) {
	reg, err := r.Registers.GetByID(ctx, orgID, registerID)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, domain.NotFound("posRegisterNotFound")
	}
	if !reg.IsActive {
		return nil, domain.Conflict("posRegisterInactive")
	}
	shift, err := r.Shifts.GetOpenByRegister(ctx, orgID, registerID)
	if err != nil {
		return nil, err
	}
	if shift == nil {
		return nil, domain.Conflict("posShiftNotOpen")
	}
	return shift, nil
}
