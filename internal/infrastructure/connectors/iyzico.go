package connectors

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pazarsync/backend/internal/domain/integration"
)

// iyzico API endpoints.
const (
	IyzicoBaseURL        = "https://api.iyzipay.com"
	IyzicoSandboxBaseURL = "https://sandbox-api.iyzipay.com"
)

// IyzicoConnector adapts the iyzico payment API. Only the payment-side
// operations exist here: refunds and payment cancellation, plus inbound
// payment webhooks.
type IyzicoConnector struct {
	unsupportedOps
	baseURL        string
	sandboxBaseURL string
	client         *http.Client
}

// NewIyzicoConnector creates an iyzico connector. Empty baseURL and nil
// client select production defaults.
func NewIyzicoConnector(baseURL string, client *http.Client) *IyzicoConnector {
	sandboxURL := IyzicoSandboxBaseURL
	if baseURL == "" {
		baseURL = IyzicoBaseURL
	} else {
		sandboxURL = baseURL
	}
	return &IyzicoConnector{
		unsupportedOps: unsupportedOps{platform: integration.PlatformCodeIyzico},
		baseURL:        strings.TrimRight(baseURL, "/"),
		sandboxBaseURL: strings.TrimRight(sandboxURL, "/"),
		client:         newHTTPClient(client),
	}
}

// Platform returns the platform code this connector handles.
func (c *IyzicoConnector) Platform() integration.PlatformCode {
	return integration.PlatformCodeIyzico
}

// Capabilities returns the operations iyzico supports.
func (c *IyzicoConnector) Capabilities() integration.CapabilitySet {
	return integration.NewCapabilitySet(
		integration.CapabilityRefund,
		integration.CapabilityCancelOrder,
	)
}

// IyzicoRefundRequest refunds one payment transaction.
type IyzicoRefundRequest struct {
	PaymentTransactionID string `json:"paymentTransactionId"`
	Price                string `json:"price"`
	Currency             string `json:"currency"`
	IP                   string `json:"ip"`
	Reason               string `json:"reason,omitempty"`
}

// IyzicoCancelRequest cancels one payment before settlement.
type IyzicoCancelRequest struct {
	PaymentID string `json:"paymentId"`
	IP        string `json:"ip"`
	Reason    string `json:"reason,omitempty"`
}

// IyzicoResponse is the status block every iyzico response carries.
type IyzicoResponse struct {
	Status       string `json:"status"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// IyzicoWebhookEnvelope is the outer shape of an inbound iyzico event.
type IyzicoWebhookEnvelope struct {
	IyziEventType     string `json:"iyziEventType"`
	IyziReferenceCode string `json:"iyziReferenceCode"`
	PaymentID         string `json:"paymentId"`
}

// Refund issues a (partial) refund for one payment transaction.
func (c *IyzicoConnector) Refund(ctx context.Context, creds integration.CredentialHandle, req *integration.RefundRequest) error {
	payload := IyzicoRefundRequest{
		PaymentTransactionID: req.TransactionID,
		Price:                req.Amount.StringFixed(2),
		Currency:             req.Currency,
		IP:                   "127.0.0.1",
		Reason:               req.Reason,
	}
	return c.post(ctx, creds, "/payment/refund", payload)
}

// CancelOrder cancels one payment before settlement. The external order ID
// is the iyzico payment ID.
func (c *IyzicoConnector) CancelOrder(ctx context.Context, creds integration.CredentialHandle, externalOrderID, reason string) error {
	payload := IyzicoCancelRequest{
		PaymentID: externalOrderID,
		IP:        "127.0.0.1",
		Reason:    reason,
	}
	return c.post(ctx, creds, "/payment/cancel", payload)
}

// ---------------------------------------------------------------------------
// Webhooks
// ---------------------------------------------------------------------------

// VerifyWebhook checks the HMAC-SHA256 hex signature over the raw payload,
// keyed by the merchant secret key.
func (c *IyzicoConnector) VerifyWebhook(creds integration.CredentialHandle, payload []byte, signature string) error {
	secret, err := creds.Get(integration.CredentialFieldSecretKey)
	if err != nil {
		return integration.WrapFailure(integration.FailureNotConfigured, c.Platform(), err)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature)))) {
		return integration.ErrWebhookBadSignature
	}
	return nil
}

// WebhookEventID extracts the dedup key and normalized event type.
func (c *IyzicoConnector) WebhookEventID(payload []byte) (string, integration.WebhookEventType, error) {
	var envelope IyzicoWebhookEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return "", "", fmt.Errorf("iyzico: malformed webhook payload: %w", err)
	}

	eventType, err := mapIyzicoEventType(envelope.IyziEventType)
	if err != nil {
		return "", "", err
	}

	eventID := envelope.IyziReferenceCode
	if eventID == "" && envelope.PaymentID != "" {
		eventID = envelope.IyziEventType + "-" + envelope.PaymentID
	}
	if eventID == "" {
		return "", "", fmt.Errorf("iyzico: webhook payload carries no event identifier")
	}
	return eventID, eventType, nil
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// post performs one authorized POST against the iyzico API. The request is
// signed iyzico-style: SHA-1 over api key, a per-request nonce, the secret
// and the body, carried in the IYZWS authorization scheme.
func (c *IyzicoConnector) post(ctx context.Context, creds integration.CredentialHandle, path string, payload any) error {
	apiKey, err := creds.Get(integration.CredentialFieldAPIKey)
	if err != nil {
		return integration.WrapFailure(integration.FailureNotConfigured, c.Platform(), err)
	}
	secretKey, err := creds.Get(integration.CredentialFieldSecretKey)
	if err != nil {
		return integration.WrapFailure(integration.FailureNotConfigured, c.Platform(), err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return integration.WrapFailure(integration.FailureTransientNetwork, c.Platform(), err)
	}

	nonce, err := randomNonce()
	if err != nil {
		return integration.WrapFailure(integration.FailureTransientNetwork, c.Platform(), err)
	}

	digest := sha1.Sum([]byte(apiKey + nonce + secretKey + string(body)))
	auth := "IYZWS " + apiKey + ":" + base64.StdEncoding.EncodeToString(digest[:])

	host := c.baseURL
	if creds.Sandbox() {
		host = c.sandboxBaseURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, host+path, bytes.NewReader(body))
	if err != nil {
		return integration.WrapFailure(integration.FailureTransientNetwork, c.Platform(), err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", auth)
	req.Header.Set("x-iyzi-rnd", nonce)

	resp, err := c.client.Do(req)
	if err != nil {
		return classifyTransport(c.Platform(), err)
	}
	defer resp.Body.Close()

	respBody, err := readBody(resp)
	if err != nil {
		return classifyTransport(c.Platform(), err)
	}
	if err := classifyStatus(c.Platform(), resp, respBody); err != nil {
		return err
	}

	// iyzico reports business failures inside HTTP 200 responses
	var status IyzicoResponse
	if err := json.Unmarshal(respBody, &status); err != nil {
		return integration.WrapFailure(integration.FailureTransientNetwork, c.Platform(), err)
	}
	if status.Status != "success" {
		return classifyIyzicoError(c.Platform(), &status)
	}
	return nil
}

// classifyIyzicoError maps an iyzico failure response onto the taxonomy.
func classifyIyzicoError(platform integration.PlatformCode, resp *IyzicoResponse) error {
	message := fmt.Sprintf("%s: %s", resp.ErrorCode, resp.ErrorMessage)
	switch resp.ErrorCode {
	case "1000", "1001":
		// Invalid signature / api credentials
		return integration.NewFailure(integration.FailureAuth, platform, message)
	default:
		return integration.NewFailure(integration.FailureRemoteValidation, platform, message)
	}
}

// mapIyzicoEventType maps an iyzico event type onto the normalized set.
func mapIyzicoEventType(eventType string) (integration.WebhookEventType, error) {
	switch eventType {
	case "PAYMENT_API", "CHECKOUT_FORM_AUTH", "THREE_DS_AUTH":
		return integration.WebhookEventPaymentCompleted, nil
	case "REFUND", "REFUND_RETRY_SUCCESS":
		return integration.WebhookEventPaymentRefunded, nil
	default:
		return "", fmt.Errorf("iyzico: unknown webhook event type %q", eventType)
	}
}

// randomNonce returns a hex nonce for request signing.
func randomNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Ensure IyzicoConnector implements the connector port with webhook support
var (
	_ integration.Connector       = (*IyzicoConnector)(nil)
	_ integration.WebhookVerifier = (*IyzicoConnector)(nil)
)
