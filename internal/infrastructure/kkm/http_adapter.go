package kkm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/retail-pos/internal/application/pos"
	"github.com/tu-usuario/retail-pos/internal/domain/entity"
)

var _ pos.FiscalAdapter = (*HTTPAdapter)(nil)

// HTTPAdapter habla con un servicio fiscal externo por JSON sobre HTTP.
// El cuerpo crudo de un fallo se devuelve en el error para que quede
// persistido tal cual en la venta.
type HTTPAdapter struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPAdapter construye el adaptador con el timeout dado.
func NewHTTPAdapter(baseURL, apiKey string, timeout time.Duration) *HTTPAdapter {
	return &HTTPAdapter{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type receiptRequest struct {
	SaleID   string           `json:"sale_id"`
	Number   string           `json:"number"`
	StoreID  string           `json:"store_id"`
	Total    decimal.Decimal  `json:"total"`
	Lines    []receiptLine    `json:"lines"`
	Payments []receiptPayment `json:"payments"`
}

type receiptLine struct {
	Name      string          `json:"name"`
	Qty       decimal.Decimal `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type receiptPayment struct {
	Method string          `json:"method"`
	Amount decimal.Decimal `json:"amount"`
}

type receiptResponse struct {
	ReceiptID string `json:"receipt_id"`
}

// Fiscalize envía el recibo al proveedor y devuelve su id de recibo.
func (a *HTTPAdapter) Fiscalize(ctx context.Context, draft *entity.FiscalReceiptDraft) (*entity.FiscalReceiptResult, error) {
	payload := receiptRequest{
		SaleID:  draft.SaleID,
		Number:  draft.Number,
		StoreID: draft.StoreID,
		Total:   draft.Total,
	}
	for _, l := range draft.Lines {
		payload.Lines = append(payload.Lines, receiptLine{
			Name: l.Name, Qty: l.Qty, UnitPrice: l.UnitPrice, LineTotal: l.LineTotal,
		})
	}
	for _, p := range draft.Payments {
		payload.Payments = append(payload.Payments, receiptPayment{Method: p.Method, Amount: p.Amount})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode receipt: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/receipts", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send receipt: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("provider status %d: %s", resp.StatusCode, string(raw))
	}
	var out receiptResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out.ReceiptID == "" {
		return nil, fmt.Errorf("provider sin receipt_id: %s", string(raw))
	}
	return &entity.FiscalReceiptResult{ProviderReceiptID: out.ReceiptID, RawJSON: string(raw)}, nil
}
