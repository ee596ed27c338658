package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/provix/provix-api/internal/config"
	"github.com/provix/provix-api/internal/platform/logger"
)

// defaultBaseURL is the production Mercado Pago API endpoint.
const defaultBaseURL = "https://api.mercadopago.com"

// chargeExpiry is how long a PIX charge stays payable.
const chargeExpiry = 15 * time.Minute

// MercadoPago implements Gateway against the Mercado Pago payments API.
type MercadoPago struct {
	baseURL         string
	accessToken     string
	notificationURL string
	httpClient      *http.Client
	logger          *slog.Logger
}

// Ensure MercadoPago implements the Gateway interface
var _ Gateway = (*MercadoPago)(nil)

// NewMercadoPago creates a Mercado Pago gateway from configuration.
// If log is nil, the default logger is used.
func NewMercadoPago(cfg config.PaymentConfig, log *slog.Logger) *MercadoPago {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	if log == nil {
		log = slog.Default()
	}

	return &MercadoPago{
		baseURL:         baseURL,
		accessToken:     cfg.AccessToken,
		notificationURL: cfg.NotificationURL,
		httpClient:      &http.Client{Timeout: 10 * time.Second},
		logger:          log.With(slog.String("component", "mercadopago")),
	}
}

// createPaymentRequest is the wire shape of a PIX payment request.
type createPaymentRequest struct {
	TransactionAmount float64      `json:"transaction_amount"`
	PaymentMethodID   string       `json:"payment_method_id"`
	Description       string       `json:"description"`
	ExternalReference string       `json:"external_reference"`
	NotificationURL   string       `json:"notification_url,omitempty"`
	Payer             paymentPayer `json:"payer"`
}

type paymentPayer struct {
	Email string `json:"email"`
}

// paymentResponse is the subset of the provider response we consume.
type paymentResponse struct {
	ID                 json.Number `json:"id"`
	Status             string      `json:"status"`
	PointOfInteraction struct {
		TransactionData struct {
			QRCode       string `json:"qr_code"`
			QRCodeBase64 string `json:"qr_code_base64"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`
}

// CreateCharge implements Gateway.CreateCharge by issuing a PIX payment.
func (g *MercadoPago) CreateCharge(ctx context.Context, params CreateChargeParams) (*Charge, error) {
	log := logger.FromContextOrDefault(ctx, g.logger)

	reqBody := createPaymentRequest{
		TransactionAmount: float64(params.AmountInCents) / 100,
		PaymentMethodID:   "pix",
		Description:       params.Description,
		ExternalReference: params.ExternalReference,
		NotificationURL:   g.notificationURL,
		Payer:             paymentPayer{Email: params.PayerEmail},
	}

	var resp paymentResponse
	if err := g.post(ctx, "/v1/payments", reqBody, &resp); err != nil {
		log.Error("failed to create PIX payment",
			slog.String("external_reference", params.ExternalReference),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %v", ErrChargeFailed, err)
	}

	copyPaste := resp.PointOfInteraction.TransactionData.QRCode
	if copyPaste == "" {
		return nil, fmt.Errorf("%w: provider response missing PIX QR code", ErrChargeFailed)
	}

	log.Info("PIX charge created",
		slog.String("payment_id", resp.ID.String()),
		slog.String("external_reference", params.ExternalReference))

	return &Charge{
		ID:            resp.ID.String(),
		QRCode:        resp.PointOfInteraction.TransactionData.QRCodeBase64,
		CopyPasteCode: copyPaste,
		ExpiresAt:     time.Now().UTC().Add(chargeExpiry),
	}, nil
}

// GetStatus implements Gateway.GetStatus by fetching the payment resource.
func (g *MercadoPago) GetStatus(ctx context.Context, paymentID string) (string, error) {
	log := logger.FromContextOrDefault(ctx, g.logger)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		g.baseURL+"/v1/payments/"+paymentID, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStatusQueryFailed, err)
	}
	g.setHeaders(req)

	httpResp, err := g.httpClient.Do(req)
	if err != nil {
		log.Error("payment status request failed",
			slog.String("payment_id", paymentID),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("%w: %v", ErrStatusQueryFailed, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, 1024))
		log.Error("payment status query rejected",
			slog.String("payment_id", paymentID),
			slog.Int("status_code", httpResp.StatusCode))
		return "", fmt.Errorf("%w: provider returned %d: %s",
			ErrStatusQueryFailed, httpResp.StatusCode, body)
	}

	var resp paymentResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStatusQueryFailed, err)
	}

	if resp.Status == "" {
		return "", fmt.Errorf("%w: provider response missing status", ErrStatusQueryFailed)
	}

	return resp.Status, nil
}

// post sends a JSON request and decodes the JSON response.
func (g *MercadoPago) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	g.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	// The provider uses the idempotency key to dedupe retried charge requests.
	req.Header.Set("X-Idempotency-Key", uuid.New().String())

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("provider returned %d: %s", resp.StatusCode, respBody)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func (g *MercadoPago) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+g.accessToken)
	req.Header.Set("Accept", "application/json")
}
