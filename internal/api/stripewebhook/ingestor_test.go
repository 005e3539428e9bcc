package stripewebhooks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saas-starter/internal/domain/billing"
	"saas-starter/internal/domain/notifications"
	"saas-starter/internal/domain/plans"
	"saas-starter/internal/infra/email"
	"saas-starter/internal/infra/logging"
	stripeinfra "saas-starter/internal/infra/stripe"
	"saas-starter/internal/testutils"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []email.Request
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, req email.Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, req)
	if m.err != nil {
		return "", m.err
	}
	return "msg-1", nil
}

func (m *fakeMailer) requests() []email.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]email.Request(nil), m.sent...)
}

func newIngestor(t *testing.T) (*Ingestor, *testutils.MemStore, *fakeMailer) {
	t.Helper()
	repo := testutils.NewMemStore()
	mailer := &fakeMailer{}
	reg := plans.NewRegistry(plans.Prices{Pro: "price_pro", Enterprise: "price_ent"})
	in := NewIngestor(repo, reg, stripeinfra.NewVerifier(testutils.WebhookSecret), mailer, Config{
		AppName: "SaaS Starter",
		AppURL:  "https://app.test",
	}, logging.Discard())
	return in, repo, mailer
}

func eventJSON(t *testing.T, id, typ string, created int64, object map[string]any) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"id":          id,
		"object":      "event",
		"type":        typ,
		"created":     created,
		"api_version": "2023-10-16",
		"data":        map[string]any{"object": object},
	})
	require.NoError(t, err)
	return raw
}

func deliver(in *Ingestor, payload []byte) Outcome {
	return in.Handle(context.Background(), payload, testutils.SignPayload(payload, testutils.WebhookSecret))
}

func subscriptionObject(customer, price, status string, start, end int64) map[string]any {
	return map[string]any{
		"id":                   "sub_1",
		"object":               "subscription",
		"customer":             customer,
		"status":               status,
		"current_period_start": start,
		"current_period_end":   end,
		"items": map[string]any{
			"object": "list",
			"data": []any{
				map[string]any{"id": "si_1", "price": map[string]any{"id": price}},
			},
		},
	}
}

func invoiceObject(id, customer string, paid, due int64, status string) map[string]any {
	return map[string]any{
		"id":                 id,
		"object":             "invoice",
		"customer":           customer,
		"amount_paid":        paid,
		"amount_due":         due,
		"currency":           "USD",
		"status":             status,
		"hosted_invoice_url": "https://invoice.stripe.com/i/" + id,
		"invoice_pdf":        "https://invoice.stripe.com/pdf/" + id,
	}
}

// seedCustomer mirrors what checkout leaves behind before any webhook lands.
func seedCustomer(t *testing.T, repo *testutils.MemStore, userID, customerID string) {
	t.Helper()
	repo.AddProfile(userID, userID+"@example.com")
	require.NoError(t, repo.UpsertCheckoutIntent(context.Background(), userID, plans.Pro, customerID))
}

func TestHandleMissingSignature(t *testing.T) {
	in, repo, _ := newIngestor(t)

	out := in.Handle(context.Background(), []byte(`{}`), "")

	assert.Equal(t, http.StatusBadRequest, out.Status)
	assert.Equal(t, "Missing stripe-signature header", out.Message)
	assert.Zero(t, repo.Writes)
}

func TestHandleRejectsTamperedPayload(t *testing.T) {
	in, repo, _ := newIngestor(t)
	seedCustomer(t, repo, "u1", "cus_1")
	before := repo.Writes

	payload := eventJSON(t, "evt_1", "customer.subscription.updated", 100,
		subscriptionObject("cus_1", "price_pro", "active", 1, 2))
	sig := testutils.SignPayload(payload, testutils.WebhookSecret)
	tampered := append([]byte(nil), payload...)
	tampered[len(tampered)-2] = ' '

	out := in.Handle(context.Background(), tampered, sig)

	assert.Equal(t, http.StatusBadRequest, out.Status)
	assert.Equal(t, "Invalid signature", out.Message)
	assert.Equal(t, before, repo.Writes)
	assert.Empty(t, repo.Events)
}

func TestHandleRejectsWrongSecret(t *testing.T) {
	in, repo, _ := newIngestor(t)
	payload := eventJSON(t, "evt_1", "invoice.payment_succeeded", 100, invoiceObject("in_1", "cus_1", 100, 100, "paid"))

	out := in.Handle(context.Background(), payload, testutils.SignPayload(payload, "whsec_other"))

	assert.Equal(t, http.StatusBadRequest, out.Status)
	assert.Empty(t, repo.Events)
}

func TestHandleIsIdempotent(t *testing.T) {
	in, repo, mailer := newIngestor(t)
	seedCustomer(t, repo, "u1", "cus_1")

	payload := eventJSON(t, "evt_inv", "invoice.payment_succeeded", 100, invoiceObject("in_1", "cus_1", 2900, 2900, "paid"))

	first := deliver(in, payload)
	in.Wait()
	writes := repo.Writes
	second := deliver(in, payload)
	in.Wait()

	assert.Equal(t, http.StatusOK, first.Status)
	assert.False(t, first.Duplicate)
	assert.Equal(t, http.StatusOK, second.Status)
	assert.True(t, second.Duplicate)
	assert.Equal(t, writes, repo.Writes)
	assert.Len(t, repo.Invoices, 1)
	assert.Len(t, mailer.requests(), 1)
}

func TestConcurrentClaimIsDuplicate(t *testing.T) {
	in, repo, mailer := newIngestor(t)
	seedCustomer(t, repo, "u1", "cus_1")
	// Another delivery commits the claim between the precheck and our insert.
	repo.BeforeClaim = func(events map[string]*billing.StripeEvent, ev *billing.StripeEvent) {
		cp := *ev
		events[ev.EventID] = &cp
	}
	writes := repo.Writes

	out := deliver(in, eventJSON(t, "evt_race", "invoice.payment_succeeded", 100, invoiceObject("in_1", "cus_1", 2900, 2900, "paid")))
	in.Wait()

	assert.Equal(t, http.StatusOK, out.Status)
	assert.True(t, out.Duplicate)
	assert.Equal(t, writes, repo.Writes)
	assert.Empty(t, repo.Invoices)
	assert.Empty(t, mailer.requests())
	assert.Equal(t, billing.StatusIncomplete, repo.Subscription("u1").Status)
}

func TestReconcileConvergesOnNewestSnapshot(t *testing.T) {
	in, repo, _ := newIngestor(t)
	seedCustomer(t, repo, "u1", "cus_1")

	t0, t1, t2 := int64(1_700_000_000), int64(1_702_592_000), int64(1_705_270_400)

	require.Equal(t, http.StatusOK, deliver(in, eventJSON(t, "evt_a", "customer.subscription.created", 100,
		subscriptionObject("cus_1", "price_pro", "active", t0, t1))).Status)
	require.Equal(t, http.StatusOK, deliver(in, eventJSON(t, "evt_b", "customer.subscription.updated", 200,
		subscriptionObject("cus_1", "price_pro", "active", t1, t2))).Status)

	sub := repo.Subscription("u1")
	require.NotNil(t, sub)
	require.NotNil(t, sub.CurrentPeriodStart)
	require.NotNil(t, sub.CurrentPeriodEnd)
	assert.Equal(t, time.Unix(t1, 0).UTC(), *sub.CurrentPeriodStart)
	assert.Equal(t, time.Unix(t2, 0).UTC(), *sub.CurrentPeriodEnd)
	assert.Equal(t, billing.StatusActive, sub.Status)
	assert.Equal(t, plans.Pro, sub.Plan)
	assert.Equal(t, "sub_1", *sub.StripeSubscriptionID)
	assert.Equal(t, plans.Pro, repo.Profiles["u1"].Plan)
}

func TestReconcileSkipsStaleSnapshot(t *testing.T) {
	in, repo, _ := newIngestor(t)
	seedCustomer(t, repo, "u1", "cus_1")

	newer := deliver(in, eventJSON(t, "evt_new", "customer.subscription.updated", 200,
		subscriptionObject("cus_1", "price_ent", "active", 10, 20)))
	older := deliver(in, eventJSON(t, "evt_old", "customer.subscription.updated", 100,
		subscriptionObject("cus_1", "price_pro", "past_due", 1, 2)))

	assert.Equal(t, http.StatusOK, newer.Status)
	assert.Equal(t, http.StatusOK, older.Status)

	sub := repo.Subscription("u1")
	assert.Equal(t, plans.Enterprise, sub.Plan)
	assert.Equal(t, billing.StatusActive, sub.Status)
	assert.Equal(t, time.Unix(20, 0).UTC(), *sub.CurrentPeriodEnd)
	// the stale event is still claimed
	assert.Contains(t, repo.Events, "evt_old")
}

func TestReconcileUnknownPriceFallsBackToFree(t *testing.T) {
	in, repo, _ := newIngestor(t)
	seedCustomer(t, repo, "u1", "cus_1")

	out := deliver(in, eventJSON(t, "evt_1", "customer.subscription.updated", 100,
		subscriptionObject("cus_1", "price_legacy", "active", 1, 2)))

	assert.Equal(t, http.StatusOK, out.Status)
	assert.Equal(t, plans.Free, repo.Subscription("u1").Plan)
}

func TestReconcileDeletedDowngradesProfile(t *testing.T) {
	in, repo, _ := newIngestor(t)
	seedCustomer(t, repo, "u1", "cus_1")

	deliver(in, eventJSON(t, "evt_1", "customer.subscription.updated", 100,
		subscriptionObject("cus_1", "price_pro", "active", 1, 2)))
	require.Equal(t, plans.Pro, repo.Profiles["u1"].Plan)

	deliver(in, eventJSON(t, "evt_2", "customer.subscription.deleted", 200,
		subscriptionObject("cus_1", "price_pro", "canceled", 1, 2)))

	sub := repo.Subscription("u1")
	assert.Equal(t, billing.StatusCanceled, sub.Status)
	assert.Equal(t, plans.Pro, sub.Plan)
	assert.Equal(t, plans.Free, repo.Profiles["u1"].Plan)
}

func TestReconcileUnknownStatusStoredAsIncomplete(t *testing.T) {
	in, repo, _ := newIngestor(t)
	seedCustomer(t, repo, "u1", "cus_1")

	deliver(in, eventJSON(t, "evt_1", "customer.subscription.updated", 100,
		subscriptionObject("cus_1", "price_pro", "something_new", 1, 2)))

	assert.Equal(t, billing.StatusIncomplete, repo.Subscription("u1").Status)
}

func TestReconcileUnknownCustomerIsDropped(t *testing.T) {
	in, repo, _ := newIngestor(t)

	out := deliver(in, eventJSON(t, "evt_1", "customer.subscription.updated", 100,
		subscriptionObject("cus_nobody", "price_pro", "active", 1, 2)))

	assert.Equal(t, http.StatusOK, out.Status)
	assert.False(t, out.Ignored)
	assert.Empty(t, repo.Subscriptions)
	assert.Contains(t, repo.Events, "evt_1")
}

func TestInvoiceDedupKeepsLatestAmount(t *testing.T) {
	in, repo, mailer := newIngestor(t)
	seedCustomer(t, repo, "u1", "cus_1")

	deliver(in, eventJSON(t, "evt_1", "invoice.payment_succeeded", 100, invoiceObject("in_1", "cus_1", 2900, 2900, "paid")))
	deliver(in, eventJSON(t, "evt_2", "invoice.payment_succeeded", 200, invoiceObject("in_1", "cus_1", 9900, 9900, "paid")))
	in.Wait()

	require.Len(t, repo.Invoices, 1)
	inv := repo.Invoices["in_1"]
	assert.Equal(t, int64(9900), inv.AmountCents)
	assert.Equal(t, "usd", inv.Currency)
	assert.Len(t, mailer.requests(), 2)
}

func TestInvoiceWithoutCurrencyDefaultsToUSD(t *testing.T) {
	in, repo, _ := newIngestor(t)
	logger, hook := logtest.NewNullLogger()
	in.log = logger
	seedCustomer(t, repo, "u1", "cus_1")

	obj := invoiceObject("in_1", "cus_1", 2900, 2900, "paid")
	delete(obj, "currency")
	out := deliver(in, eventJSON(t, "evt_1", "invoice.payment_succeeded", 100, obj))
	in.Wait()

	require.Equal(t, http.StatusOK, out.Status)
	require.Contains(t, repo.Invoices, "in_1")
	assert.Equal(t, "usd", repo.Invoices["in_1"].Currency)

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "invoice without currency, defaulting to usd" {
			warned = true
			assert.Equal(t, "in_1", e.Data["invoice_id"])
		}
	}
	assert.True(t, warned)
}

func TestInvoiceFailedIsRecordedWithoutEmail(t *testing.T) {
	in, repo, mailer := newIngestor(t)
	seedCustomer(t, repo, "u1", "cus_1")

	out := deliver(in, eventJSON(t, "evt_1", "invoice.payment_failed", 100, invoiceObject("in_1", "cus_1", 0, 2900, "open")))
	in.Wait()

	assert.Equal(t, http.StatusOK, out.Status)
	inv := repo.Invoices["in_1"]
	require.NotNil(t, inv)
	assert.Equal(t, int64(2900), inv.AmountCents)
	assert.Equal(t, billing.InvoicePending, inv.Status)
	assert.Empty(t, mailer.requests())
}

func TestInvoiceUncollectibleIsFailed(t *testing.T) {
	in, repo, _ := newIngestor(t)
	seedCustomer(t, repo, "u1", "cus_1")

	deliver(in, eventJSON(t, "evt_1", "invoice.payment_failed", 100, invoiceObject("in_1", "cus_1", 0, 2900, "uncollectible")))

	assert.Equal(t, billing.InvoiceFailed, repo.Invoices["in_1"].Status)
}

func TestPaymentAlertOptOutSuppressesEmail(t *testing.T) {
	in, repo, mailer := newIngestor(t)
	seedCustomer(t, repo, "u1", "cus_1")
	repo.Preferences["u1"] = &notifications.Preferences{UserID: "u1", PaymentAlerts: false}

	out := deliver(in, eventJSON(t, "evt_1", "invoice.payment_succeeded", 100, invoiceObject("in_1", "cus_1", 2900, 2900, "paid")))
	in.Wait()

	assert.Equal(t, http.StatusOK, out.Status)
	assert.Len(t, repo.Invoices, 1)
	assert.Empty(t, mailer.requests())
}

func TestEmailFailureDoesNotAffectOutcome(t *testing.T) {
	in, repo, mailer := newIngestor(t)
	mailer.err = errors.New("postmark down")
	seedCustomer(t, repo, "u1", "cus_1")

	out := deliver(in, eventJSON(t, "evt_1", "invoice.payment_succeeded", 100, invoiceObject("in_1", "cus_1", 2900, 2900, "paid")))
	in.Wait()

	assert.Equal(t, http.StatusOK, out.Status)
	assert.Len(t, repo.Invoices, 1)
	assert.Len(t, mailer.requests(), 1)
}

func TestFailureRollsBackClaimAndRedeliveryProcesses(t *testing.T) {
	in, repo, _ := newIngestor(t)
	seedCustomer(t, repo, "u1", "cus_1")
	repo.Fail["UpsertInvoice"] = errors.New("connection reset")

	payload := eventJSON(t, "evt_1", "invoice.payment_succeeded", 100, invoiceObject("in_1", "cus_1", 2900, 2900, "paid"))

	failed := deliver(in, payload)
	assert.Equal(t, http.StatusInternalServerError, failed.Status)
	assert.Equal(t, "Webhook handler failed", failed.Message)
	assert.NotContains(t, repo.Events, "evt_1")
	assert.Empty(t, repo.Invoices)

	delete(repo.Fail, "UpsertInvoice")
	retried := deliver(in, payload)
	in.Wait()

	assert.Equal(t, http.StatusOK, retried.Status)
	assert.False(t, retried.Duplicate)
	assert.Contains(t, repo.Events, "evt_1")
	assert.Len(t, repo.Invoices, 1)
}

func TestIdempotencyCheckFailureIs500(t *testing.T) {
	in, repo, _ := newIngestor(t)
	repo.Fail["IsEventProcessed"] = errors.New("db down")

	out := deliver(in, eventJSON(t, "evt_1", "ping", 100, map[string]any{"id": "x"}))

	assert.Equal(t, http.StatusInternalServerError, out.Status)
}

func TestUnknownEventTypeIsAcknowledged(t *testing.T) {
	in, repo, _ := newIngestor(t)

	out := deliver(in, eventJSON(t, "evt_1", "customer.created", 100, map[string]any{"id": "cus_1", "object": "customer"}))

	assert.Equal(t, http.StatusOK, out.Status)
	assert.True(t, out.Ignored)
	assert.Contains(t, repo.Events, "evt_1")
}

func TestCheckoutCompletedActivatesPlan(t *testing.T) {
	in, repo, _ := newIngestor(t)
	seedCustomer(t, repo, "u1", "cus_1")

	out := deliver(in, eventJSON(t, "evt_1", "checkout.session.completed", 100, map[string]any{
		"id":                  "cs_1",
		"object":              "checkout.session",
		"client_reference_id": "u1",
		"customer":            "cus_1",
		"subscription":        "sub_1",
		"payment_status":      "paid",
		"metadata":            map[string]any{"userId": "u1", "plan": "enterprise"},
	}))

	assert.Equal(t, http.StatusOK, out.Status)
	sub := repo.Subscription("u1")
	assert.Equal(t, billing.StatusActive, sub.Status)
	assert.Equal(t, plans.Enterprise, sub.Plan)
	assert.Equal(t, "sub_1", *sub.StripeSubscriptionID)
	assert.Nil(t, sub.CurrentPeriodEnd)
	assert.Equal(t, plans.Enterprise, repo.Profiles["u1"].Plan)
}

func TestCheckoutCompletedUnpaidKeepsStatus(t *testing.T) {
	in, repo, _ := newIngestor(t)
	seedCustomer(t, repo, "u1", "cus_1")

	deliver(in, eventJSON(t, "evt_1", "checkout.session.completed", 100, map[string]any{
		"id":                  "cs_1",
		"object":              "checkout.session",
		"client_reference_id": "u1",
		"customer":            "cus_1",
		"payment_status":      "unpaid",
	}))

	sub := repo.Subscription("u1")
	assert.Equal(t, billing.StatusIncomplete, sub.Status)
	assert.Equal(t, plans.Pro, sub.Plan)
	assert.Equal(t, plans.Free, repo.Profiles["u1"].Plan)
}

func TestCheckoutCompletedWithoutLocalRowIsDropped(t *testing.T) {
	in, repo, _ := newIngestor(t)

	out := deliver(in, eventJSON(t, "evt_1", "checkout.session.completed", 100, map[string]any{
		"id":                  "cs_1",
		"object":              "checkout.session",
		"client_reference_id": "ghost",
		"customer":            "cus_9",
		"payment_status":      "paid",
	}))

	assert.Equal(t, http.StatusOK, out.Status)
	assert.Empty(t, repo.Subscriptions)
}

func TestCheckoutToPaidInvoiceScenario(t *testing.T) {
	in, repo, mailer := newIngestor(t)
	seedCustomer(t, repo, "u1", "cus_1")

	require.Equal(t, http.StatusOK, deliver(in, eventJSON(t, "evt_cs", "checkout.session.completed", 100, map[string]any{
		"id":             "cs_1",
		"object":         "checkout.session",
		"customer":       "cus_1",
		"subscription":   "sub_1",
		"payment_status": "paid",
		"metadata":       map[string]any{"userId": "u1", "plan": "pro"},
	})).Status)
	require.Equal(t, http.StatusOK, deliver(in, eventJSON(t, "evt_inv", "invoice.payment_succeeded", 110,
		invoiceObject("in_1", "cus_1", 2900, 2900, "paid"))).Status)
	in.Wait()

	inv := repo.Invoices["in_1"]
	require.NotNil(t, inv)
	assert.Equal(t, "u1", inv.UserID)
	assert.Equal(t, int64(2900), inv.AmountCents)
	assert.Equal(t, billing.InvoicePaid, inv.Status)
	require.NotNil(t, inv.PDFURL)
	assert.Equal(t, "https://invoice.stripe.com/pdf/in_1", *inv.PDFURL)

	sent := mailer.requests()
	require.Len(t, sent, 1)
	assert.Equal(t, "u1@example.com", sent[0].To)
	assert.Equal(t, email.TemplatePaymentConfirmation, sent[0].Template)
	data, ok := sent[0].Data.(email.PaymentConfirmation)
	require.True(t, ok)
	assert.Equal(t, "$29.00", data.Amount)
	assert.Equal(t, "Pro", data.PlanName)
	assert.Equal(t, "https://app.test/dashboard/billing", data.BillingURL)
}
