package payment

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"
)

// EventCheckoutCompleted is the provider event that drives reconciliation.
const EventCheckoutCompleted = "checkout.session.completed"

// metadataOrderID is the session metadata key binding a provider session to
// an order ledger entry.
const metadataOrderID = "orderId"

// SessionLine is one provider line item. Amounts are currency minor units.
type SessionLine struct {
	Name            string
	ImageURL        string
	UnitAmountCents int64
	Quantity        int64
}

// SessionInput describes a one-time-payment session bound to an order.
type SessionInput struct {
	OrderID    string
	Lines      []SessionLine
	SuccessURL string
	CancelURL  string
}

// Event is the slice of a provider webhook event the reconciler consumes.
type Event struct {
	Type    string
	OrderID string
}

// Client talks to Stripe: hosted checkout sessions out, webhook events in.
type Client struct {
	webhookSecret string
}

func NewClient(secretKey, webhookSecret string) *Client {
	stripe.Key = secretKey
	return &Client{webhookSecret: webhookSecret}
}

// CreateSession creates a hosted checkout session and returns its payment URL.
func (c *Client) CreateSession(ctx context.Context, in SessionInput) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(in.SuccessURL),
		CancelURL:          stripe.String(in.CancelURL),
	}
	params.Context = ctx
	params.AddMetadata(metadataOrderID, in.OrderID)

	for _, line := range in.Lines {
		productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(line.Name),
		}
		if line.ImageURL != "" {
			productData.Images = stripe.StringSlice([]string{line.ImageURL})
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(string(stripe.CurrencyEUR)),
				ProductData: productData,
				UnitAmount:  stripe.Int64(line.UnitAmountCents),
			},
			Quantity: stripe.Int64(line.Quantity),
		})
	}

	sess, err := session.New(params)
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}

// ParseEvent verifies the provider signature over the raw payload and
// extracts the bound order ID for completed checkouts. Any verification or
// decoding failure is a client error: the provider retries delivery with
// backoff, so rejecting is safe.
func (c *Client) ParseEvent(payload []byte, signatureHeader string) (Event, error) {
	ev, err := webhook.ConstructEvent(payload, signatureHeader, c.webhookSecret)
	if err != nil {
		return Event{}, err
	}

	out := Event{Type: string(ev.Type)}
	if out.Type == EventCheckoutCompleted {
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &sess); err != nil {
			return Event{}, err
		}
		out.OrderID = sess.Metadata[metadataOrderID]
	}
	return out, nil
}
