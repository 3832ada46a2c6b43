package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
)

// Payment is the authoritative payment detail fetched from the processor.
// Notification payloads are never trusted for these fields.
type Payment struct {
	ID                json.Number     `json:"id"`
	Status            string          `json:"status"`
	TransactionAmount float64         `json:"transaction_amount"`
	DateApproved      *time.Time      `json:"date_approved"`
	DateCreated       *time.Time      `json:"date_created"`
	Metadata          PaymentMetadata `json:"metadata"`
}

type PaymentMetadata struct {
	UserID   string `json:"user_id"`
	PlanType string `json:"plan_type"`
}

// PreferenceRequest creates a checkout preference the frontend redirects to.
type PreferenceRequest struct {
	Items             []PreferenceItem `json:"items"`
	Metadata          PaymentMetadata  `json:"metadata"`
	ExternalReference string           `json:"external_reference"`
}

type PreferenceItem struct {
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type Preference struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

// Client is a thin HTTP client for the processor API. Both calls carry the
// request context and the client's bounded timeout; a timed-out lookup is an
// error, never a silent success.
type Client struct {
	baseURL     *url.URL
	accessToken string
	httpClient  *http.Client
}

func NewClient(baseURL, accessToken string) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid processor base URL: %w", err)
	}
	return &Client{
		baseURL:     parsed,
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// GetPayment fetches payment details by the notification's identifier.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	rel := &url.URL{Path: fmt.Sprintf("/v1/payments/%s", url.PathEscape(paymentID))}
	u := c.baseURL.ResolveReference(rel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Warn().Int("status", resp.StatusCode).Str("payment_id", paymentID).
			Bytes("body", body).Msg("processor returned non-200 for payment lookup")
		return nil, fmt.Errorf("payment lookup returned %s", resp.Status)
	}

	var payment Payment
	if err := json.NewDecoder(resp.Body).Decode(&payment); err != nil {
		return nil, fmt.Errorf("malformed payment response: %w", err)
	}
	if payment.ID.String() == "" {
		return nil, fmt.Errorf("payment response missing id")
	}
	return &payment, nil
}

// CreatePreference creates a checkout preference for a plan purchase.
func (c *Client) CreatePreference(ctx context.Context, pref PreferenceRequest) (*Preference, error) {
	rel := &url.URL{Path: "/checkout/preferences"}
	u := c.baseURL.ResolveReference(rel)

	payload, err := json.Marshal(pref)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("preference creation failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("preference creation returned %s", resp.Status)
	}

	var created Preference
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("malformed preference response: %w", err)
	}
	return &created, nil
}

// OccurredAt picks the event timestamp for ordering: approval time when the
// payment was approved, creation time otherwise.
func (p *Payment) OccurredAt() time.Time {
	if p.DateApproved != nil {
		return *p.DateApproved
	}
	if p.DateCreated != nil {
		return *p.DateCreated
	}
	return time.Time{}
}
