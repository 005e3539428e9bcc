package billing

import (
	"errors"
	"net/http"

	stripeinfra "saas-starter/internal/infra/stripe"
)

var (
	ErrUnauthenticated       = errors.New("billing: unauthenticated")
	ErrInvalidPlan           = errors.New("billing: invalid plan")
	ErrPlanNotPurchasable    = errors.New("billing: plan not purchasable")
	ErrNoBillingCustomer     = errors.New("billing: no billing customer")
	ErrSessionCreationFailed = errors.New("billing: session has no url")
)

// ErrorResponse maps a service error to an HTTP status and a message safe to
// show the user. Stripe messages pass through verbatim.
func ErrorResponse(err error) (int, string) {
	var perr *stripeinfra.ProviderError
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized, "You must be logged in to continue."
	case errors.Is(err, ErrInvalidPlan):
		return http.StatusBadRequest, "Invalid plan selected."
	case errors.Is(err, ErrPlanNotPurchasable):
		return http.StatusBadRequest, "This plan is not purchasable."
	case errors.Is(err, ErrNoBillingCustomer):
		return http.StatusConflict, "No Stripe customer found for this account."
	case errors.Is(err, ErrSessionCreationFailed):
		return http.StatusBadGateway, "Unable to create checkout session."
	case errors.As(err, &perr):
		return http.StatusBadGateway, perr.Message()
	default:
		return http.StatusInternalServerError, "Something went wrong. Please try again."
	}
}
