package stripe

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/client"

	"saas-starter/internal/domain/plans"
)

type CustomerRequest struct {
	UserID string
	Email  string
}

type CheckoutRequest struct {
	UserID     string
	CustomerID string
	Plan       plans.Key
	PriceID    string
	SuccessURL string
	CancelURL  string
}

type Session struct {
	ID  string
	URL string
}

// Provider is the subset of the Stripe API the billing flows use.
type Provider interface {
	CreateCustomer(ctx context.Context, req CustomerRequest) (string, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (*Session, error)
}

// ProviderError carries a Stripe failure up to the user-facing layer.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("stripe: %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Message returns Stripe's own message when there is one.
func (e *ProviderError) Message() string {
	var se *stripe.Error
	if errors.As(e.Err, &se) && se.Msg != "" {
		return se.Msg
	}
	return e.Err.Error()
}

// Client talks to Stripe through an injected API client; the package-level
// stripe.Key is never touched.
type Client struct {
	api *client.API
}

var _ Provider = (*Client)(nil)

// NewClient builds a client. Nil backends use Stripe's defaults.
func NewClient(secretKey string, backends *stripe.Backends) *Client {
	return &Client{api: client.New(secretKey, backends)}
}

func (c *Client) CreateCustomer(ctx context.Context, req CustomerRequest) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(req.Email),
	}
	params.Context = ctx
	params.AddMetadata("userId", req.UserID)
	// Concurrent first checkouts for one user collapse into one customer.
	params.SetIdempotencyKey("customer-create-" + req.UserID)

	cus, err := c.api.Customers.New(params)
	if err != nil {
		return "", &ProviderError{Op: "create customer", Err: err}
	}
	return cus.ID, nil
}

func (c *Client) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:          stripe.String(req.CustomerID),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.UserID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(req.PriceID), Quantity: stripe.Int64(1)},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				"userId": req.UserID,
				"plan":   string(req.Plan),
			},
		},
	}
	params.Context = ctx
	params.AddMetadata("plan", string(req.Plan))
	params.AddMetadata("userId", req.UserID)

	s, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, &ProviderError{Op: "create checkout session", Err: err}
	}
	return &Session{ID: s.ID, URL: s.URL}, nil
}

func (c *Client) CreatePortalSession(ctx context.Context, customerID, returnURL string) (*Session, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	s, err := c.api.BillingPortalSessions.New(params)
	if err != nil {
		return nil, &ProviderError{Op: "create portal session", Err: err}
	}
	return &Session{ID: s.ID, URL: s.URL}, nil
}

type Price struct {
	ID         string
	ProductID  string
	Active     bool
	UnitAmount int64
	Currency   string
	Interval   string
}

// ListRecurringPrices returns every recurring price on the account.
func (c *Client) ListRecurringPrices(ctx context.Context) ([]Price, error) {
	params := &stripe.PriceListParams{}
	params.Context = ctx
	params.Type = stripe.String(string(stripe.PriceTypeRecurring))
	params.AddExpand("data.product")

	var out []Price
	it := c.api.Prices.List(params)
	for it.Next() {
		p := it.Price()
		price := Price{
			ID:         p.ID,
			Active:     p.Active,
			UnitAmount: p.UnitAmount,
			Currency:   string(p.Currency),
		}
		if p.Product != nil {
			price.ProductID = p.Product.ID
		}
		if p.Recurring != nil {
			price.Interval = string(p.Recurring.Interval)
		}
		out = append(out, price)
	}
	if err := it.Err(); err != nil {
		return nil, &ProviderError{Op: "list prices", Err: err}
	}
	return out, nil
}
