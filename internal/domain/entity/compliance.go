package entity

// Modos de fiscalización por tienda.
const (
	KKMModeAdapter = "ADAPTER" // el motor envía el recibo al proveedor externo
	KKMModeManual  = "MANUAL"  // el recibo fiscal se emite fuera del sistema
)

// StoreComplianceProfile decide si una venta completada se fiscaliza y con qué proveedor.
type StoreComplianceProfile struct {
	OrganizationID string
	StoreID        string
	EnableKKM      bool
	KKMMode        string
	KKMProviderKey string
}

// ShouldFiscalize indica si el motor debe construir un borrador de recibo fiscal.
func (p *StoreComplianceProfile) ShouldFiscalize() bool {
	return p != nil && p.EnableKKM && p.KKMMode == KKMModeAdapter
}
