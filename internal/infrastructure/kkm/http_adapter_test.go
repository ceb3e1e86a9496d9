package kkm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tu-usuario/retail-pos/internal/domain/entity"
	"github.com/tu-usuario/retail-pos/internal/infrastructure/kkm"
)

func sampleDraft() *entity.FiscalReceiptDraft {
	return &entity.FiscalReceiptDraft{
		SaleID:      "sale-1",
		Number:      "S-000001",
		StoreID:     "store-1",
		ProviderKey: "default",
		Total:       decimal.RequireFromString("150"),
		Lines: []entity.FiscalReceiptLine{
			{ProductID: "prod-1", Name: "Producto 1", VariantKey: "BASE",
				Qty: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("150"),
				LineTotal: decimal.RequireFromString("150")},
		},
		Payments: []entity.FiscalReceiptPayment{
			{Method: "CASH", Amount: decimal.RequireFromString("150")},
		},
	}
}

func TestHTTPAdapter_envia_recibo_y_lee_receipt_id(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/receipts", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"receipt_id":"FR-42"}`))
	}))
	defer srv.Close()

	adapter := kkm.NewHTTPAdapter(srv.URL, "api-key-1", 5*time.Second)
	result, err := adapter.Fiscalize(context.Background(), sampleDraft())

	require.NoError(t, err)
	assert.Equal(t, "FR-42", result.ProviderReceiptID)
	assert.Equal(t, "Bearer api-key-1", gotAuth)
	assert.Equal(t, "sale-1", gotBody["sale_id"])
	assert.Equal(t, "S-000001", gotBody["number"])
}

func TestHTTPAdapter_propaga_el_cuerpo_crudo_del_fallo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"kkm offline"}`))
	}))
	defer srv.Close()

	adapter := kkm.NewHTTPAdapter(srv.URL, "", 5*time.Second)
	_, err := adapter.Fiscalize(context.Background(), sampleDraft())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "kkm offline", "el cuerpo crudo queda en el error para persistirse en la venta")
	assert.Contains(t, err.Error(), "502")
}

func TestHTTPAdapter_respuesta_sin_receipt_id_es_error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	adapter := kkm.NewHTTPAdapter(srv.URL, "", 5*time.Second)
	_, err := adapter.Fiscalize(context.Background(), sampleDraft())

	assert.Error(t, err)
}

func TestRegistry_resuelve_por_clave_de_proveedor(t *testing.T) {
	reg := kkm.NewRegistry()
	adapter := kkm.NewHTTPAdapter("http://localhost", "", time.Second)
	reg.Register("default", adapter)

	got, err := reg.Resolve("default")
	require.NoError(t, err)
	assert.Same(t, adapter, got)

	_, err = reg.Resolve("desconocido")
	assert.Error(t, err, "una clave sin adaptador registrado es error")
}
