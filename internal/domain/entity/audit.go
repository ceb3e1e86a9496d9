package entity

import (
	"encoding/json"
	"time"
)

// Acciones de auditoría del motor POS.
const (
	AuditShiftOpen       = "pos.shift.open"
	AuditShiftClose      = "pos.shift.close"
	AuditCashMovement    = "pos.shift.cash_movement"
	AuditSaleDraftCreate = "pos.sale.draft_create"
	AuditSaleLineAdd     = "pos.sale.line_add"
	AuditSaleLineUpdate  = "pos.sale.line_update"
	AuditSaleLineRemove  = "pos.sale.line_remove"
	AuditSaleComplete    = "pos.sale.complete"
	AuditSaleCancel      = "pos.sale.cancel"
	AuditSaleKKMRetry    = "pos.sale.kkm_retry"
	AuditReturnCreate    = "pos.return.draft_create"
	AuditReturnLineAdd   = "pos.return.line_add"
	AuditReturnLineUpd   = "pos.return.line_update"
	AuditReturnLineDel   = "pos.return.line_remove"
	AuditReturnComplete  = "pos.return.complete"
)

// AuditEntry guarda snapshots antes/después de cada operación mutadora.
// Se escribe en la misma transacción; el motor no lee de vuelta.
type AuditEntry struct {
	ID             string
	OrganizationID string
	ActorID        string
	Action         string
	Entity         string
	EntityID       string
	Before         json.RawMessage
	After          json.RawMessage
	RequestID      string
	CreatedAt      time.Time
}
