package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Veraticus/givedesk/internal/common"
	"github.com/Veraticus/givedesk/internal/model"
)

// PayPalOrder is the request to open a PayPal checkout.
type PayPalOrder struct {
	Cause  string  `json:"cause"`
	Name   string  `json:"name,omitempty"`
	Email  string  `json:"email,omitempty"`
	Amount float64 `json:"amount"`
}

// PayPalApproval is where the donor must go to approve the order.
type PayPalApproval struct {
	ApprovalURL string
	OrderID     string
}

// CreatePayPalOrder opens a PayPal order on the backend.
func (c *Client) CreatePayPalOrder(ctx context.Context, order PayPalOrder) (PayPalApproval, error) {
	data, err := c.do(ctx, http.MethodPost, "/paypal/paypal-create-order", nil, order)
	if err != nil {
		return PayPalApproval{}, fmt.Errorf("failed to create paypal order: %w", err)
	}

	var resp struct {
		Success     bool   `json:"success"`
		ApprovalURL string `json:"approvalUrl"`
		OrderID     string `json:"orderId"`
		Error       string `json:"error"`
		Message     string `json:"message"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return PayPalApproval{}, fmt.Errorf("failed to decode paypal order: %w", err)
	}
	if !resp.Success || resp.ApprovalURL == "" {
		msg := resp.Error
		if msg == "" {
			msg = resp.Message
		}
		return PayPalApproval{}, &common.ServerRejection{StatusCode: http.StatusOK, Message: msg}
	}
	return PayPalApproval{ApprovalURL: resp.ApprovalURL, OrderID: resp.OrderID}, nil
}

// Charge is a card payment using a provider token. The card number never
// appears here.
type Charge struct {
	Token          string  `json:"token"`
	Email          string  `json:"email,omitempty"`
	Cause          string  `json:"cause"`
	NameOnCard     string  `json:"name_oncard"`
	Name           string  `json:"name,omitempty"`
	Country        string  `json:"country"`
	IdempotencyKey string  `json:"idempotencyKey,omitempty"`
	Amount         float64 `json:"amount"`
}

// ChargeCard submits a tokenized card payment.
func (c *Client) ChargeCard(ctx context.Context, charge Charge) (model.Receipt, error) {
	data, err := c.do(ctx, http.MethodPost, "/stripe-payment", nil, charge)
	if err != nil {
		return model.Receipt{}, fmt.Errorf("failed to charge card: %w", err)
	}

	obj, err := decodeObject(data)
	if err != nil {
		return model.Receipt{}, err
	}
	rec := model.RawRecord(obj)

	return model.Receipt{
		Cause:         charge.Cause,
		Email:         charge.Email,
		Amount:        charge.Amount,
		Method:        model.MethodCard,
		ReceiptURL:    rec.FirstString("receiptUrl", "receipt_url"),
		TransactionID: rec.FirstString("transactionId", "id"),
	}, nil
}

// DefaultStripeURL is the provider's card token endpoint.
const DefaultStripeURL = "https://api.stripe.com/v1/tokens"

// StripeTokenizer exchanges card details for a single-use token directly with
// the payment provider using the publishable key.
type StripeTokenizer struct {
	HTTPClient     *http.Client
	Endpoint       string
	PublishableKey string
}

// Tokenize returns a provider token for card.
func (s StripeTokenizer) Tokenize(ctx context.Context, card model.Card) (string, error) {
	if s.PublishableKey == "" {
		return "", fmt.Errorf("%w: payment provider publishable key", common.ErrMissingConfig)
	}
	month, year, ok := strings.Cut(card.Expiry, "/")
	if !ok {
		return "", common.NewValidationError("expiry", "Expiry must be MM/YY")
	}

	form := url.Values{}
	form.Set("card[number]", strings.ReplaceAll(card.Number, " ", ""))
	form.Set("card[exp_month]", month)
	form.Set("card[exp_year]", year)
	form.Set("card[cvc]", card.CVV)
	form.Set("card[name]", card.Holder)

	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = DefaultStripeURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.PublishableKey, "")

	hc := s.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return "", classifyTransport("POST tokens", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var body struct {
		ID    string `json:"id"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if resp.StatusCode >= 400 || body.ID == "" {
		return "", &common.ServerRejection{StatusCode: resp.StatusCode, Message: body.Error.Message}
	}
	return body.ID, nil
}
