package kkm

import (
	"fmt"
	"sync"

	"github.com/tu-usuario/retail-pos/internal/application/pos"
)

var _ pos.FiscalRegistry = (*Registry)(nil)

// Registry resuelve adaptadores fiscales por la clave de proveedor del perfil
// de cumplimiento de la tienda.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]pos.FiscalAdapter
}

// NewRegistry construye un registro vacío.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]pos.FiscalAdapter)}
}

// Register asocia un adaptador a una clave de proveedor.
func (r *Registry) Register(providerKey string, adapter pos.FiscalAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[providerKey] = adapter
}

// Resolve devuelve el adaptador de la clave o error si no hay ninguno registrado.
func (r *Registry) Resolve(providerKey string) (pos.FiscalAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[providerKey]
	if !ok {
		return nil, fmt.Errorf("proveedor KKM no registrado: %q", providerKey)
	}
	return adapter, nil
}
