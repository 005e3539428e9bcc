package plans

type Key string

const (
	Free       Key = "free"
	Pro        Key = "pro"
	Enterprise Key = "enterprise"
)

type Plan struct {
	Key         Key      `json:"key"`
	Name        string   `json:"name"`
	PriceCents  int64    `json:"price_cents"`
	Interval    string   `json:"interval"`
	StripePrice string   `json:"-"`
	Features    []string `json:"features"`
	Purchasable bool     `json:"purchasable"`
}
