package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"saas-starter/internal/domain/billing"
	"saas-starter/internal/domain/plans"
	"saas-starter/internal/domain/users"
	stripeinfra "saas-starter/internal/infra/stripe"
)

const billingPath = "/dashboard/billing"

// Service starts hosted Stripe flows on behalf of a signed-in user.
type Service struct {
	repo     billing.Repository
	provider stripeinfra.Provider
	registry *plans.Registry
	appURL   string
	log      logrus.FieldLogger
}

func NewService(repo billing.Repository, provider stripeinfra.Provider, registry *plans.Registry, appURL string, log logrus.FieldLogger) *Service {
	return &Service{
		repo:     repo,
		provider: provider,
		registry: registry,
		appURL:   appURL,
		log:      log.WithField("component", "billing"),
	}
}

// StartCheckout returns the hosted checkout URL for the requested plan.
// The Stripe customer is created once per user and its id is stored before
// the checkout session exists.
func (s *Service) StartCheckout(ctx context.Context, user *users.SessionUser, rawPlan string) (string, error) {
	if user == nil || user.ID == "" {
		return "", ErrUnauthenticated
	}
	key, ok := plans.Lookup(rawPlan)
	if !ok {
		return "", ErrInvalidPlan
	}
	plan, ok := s.registry.For(key)
	if !ok || !plan.Purchasable {
		return "", ErrPlanNotPurchasable
	}
	log := s.log.WithFields(logrus.Fields{"user_id": user.ID, "plan": key})

	customerID, err := s.customerID(ctx, user.ID)
	if err != nil {
		return "", err
	}

	if customerID == "" {
		customerID, err = s.provider.CreateCustomer(ctx, stripeinfra.CustomerRequest{
			UserID: user.ID,
			Email:  user.Email,
		})
		if err != nil {
			log.WithError(err).Warn("stripe customer creation failed")
			return "", err
		}
		if err := s.repo.SaveCustomerID(ctx, user.ID, customerID); err != nil {
			return "", fmt.Errorf("save customer id: %w", err)
		}
		log.WithField("customer_id", customerID).Info("stripe customer created")
	}

	session, err := s.provider.CreateCheckoutSession(ctx, stripeinfra.CheckoutRequest{
		UserID:     user.ID,
		CustomerID: customerID,
		Plan:       key,
		PriceID:    plan.StripePrice,
		SuccessURL: s.appURL + billingPath + "?checkout=success",
		CancelURL:  s.appURL + billingPath + "?checkout=cancelled",
	})
	if err != nil {
		log.WithError(err).Warn("stripe checkout session failed")
		return "", err
	}

	if err := s.repo.UpsertCheckoutIntent(ctx, user.ID, key, customerID); err != nil {
		return "", fmt.Errorf("record checkout intent: %w", err)
	}

	if session.URL == "" {
		return "", ErrSessionCreationFailed
	}
	log.WithField("session_id", session.ID).Info("checkout session created")
	return session.URL, nil
}

// StartPortal returns a customer portal URL. It never writes locally.
func (s *Service) StartPortal(ctx context.Context, user *users.SessionUser) (string, error) {
	if user == nil || user.ID == "" {
		return "", ErrUnauthenticated
	}

	customerID, err := s.customerID(ctx, user.ID)
	if err != nil {
		return "", err
	}
	if customerID == "" {
		return "", ErrNoBillingCustomer
	}

	session, err := s.provider.CreatePortalSession(ctx, customerID, s.appURL+billingPath)
	if err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Warn("stripe portal session failed")
		return "", err
	}
	if session.URL == "" {
		return "", ErrSessionCreationFailed
	}
	return session.URL, nil
}

func (s *Service) customerID(ctx context.Context, userID string) (string, error) {
	sub, err := s.repo.FindSubscription(ctx, userID)
	switch {
	case errors.Is(err, billing.ErrNotFound):
		return "", nil
	case err != nil:
		return "", fmt.Errorf("load subscription: %w", err)
	}
	return sub.CustomerID(), nil
}
