package webhook_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/studysnap-backend/internal/models"
	"github.com/magabrotheeeer/studysnap-backend/internal/paymentprovider"
	"github.com/magabrotheeeer/studysnap-backend/internal/services/webhook"
)

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return discardHandler{} }
func (discardHandler) WithGroup(string) slog.Handler             { return discardHandler{} }

func makeLogger() *slog.Logger {
	return slog.New(discardHandler{})
}

// fakeStore держит строки подписок и профилей в памяти, имитируя
// keyed upsert/update семантику хранилища.
type fakeStore struct {
	subs       map[string]models.Subscription // по processor_subscription_id
	premium    map[string]bool                // по user_uid
	customers  map[string]string              // customer id -> user uid
	upsertErr  error
	writeCount int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		subs:      make(map[string]models.Subscription),
		premium:   make(map[string]bool),
		customers: make(map[string]string),
	}
}

func (f *fakeStore) UpsertSubscription(_ context.Context, sub models.Subscription) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if existing, ok := f.subs[sub.ProcessorSubscriptionID]; ok {
		sub.ID = existing.ID
		sub.UserUID = existing.UserUID
	} else {
		sub.ID = len(f.subs) + 1
	}
	f.subs[sub.ProcessorSubscriptionID] = sub
	f.writeCount++
	return nil
}

func (f *fakeStore) CancelSubscription(_ context.Context, id string) (int64, error) {
	sub, ok := f.subs[id]
	if !ok {
		return 0, nil
	}
	sub.Status = models.StatusCanceled
	f.subs[id] = sub
	f.writeCount++
	return 1, nil
}

func (f *fakeStore) FindSubscriptionByProcessorID(_ context.Context, id string) (*models.Subscription, bool, error) {
	sub, ok := f.subs[id]
	if !ok {
		return nil, false, nil
	}
	return &sub, true, nil
}

func (f *fakeStore) FindUserUIDByCustomerID(_ context.Context, customerID string) (string, bool, error) {
	uid, ok := f.customers[customerID]
	return uid, ok, nil
}

func (f *fakeStore) UpsertProfilePremium(_ context.Context, userUID, customerID string, isPremium bool) error {
	f.premium[userUID] = isPremium
	f.customers[customerID] = userUID
	f.writeCount++
	return nil
}

// fakeProvider отдаёт снапшоты подписок по id, имитируя авторитетное
// состояние на стороне провайдера.
type fakeProvider struct {
	subs  map[string]*paymentprovider.Subscription
	calls int
}

func (f *fakeProvider) GetSubscription(_ context.Context, id string) (*paymentprovider.Subscription, error) {
	f.calls++
	sub, ok := f.subs[id]
	if !ok {
		return nil, fmt.Errorf("no such subscription: %s", id)
	}
	cp := *sub
	return &cp, nil
}

type fakePublisher struct {
	messages []webhook.StateChangedMessage
}

func (f *fakePublisher) Publish(_ string, msg any) error {
	f.messages = append(f.messages, msg.(webhook.StateChangedMessage))
	return nil
}

func event(t *testing.T, eventType string, object any) *paymentprovider.Event {
	t.Helper()
	raw, err := json.Marshal(object)
	require.NoError(t, err)
	var ev paymentprovider.Event
	ev.ID = "evt_" + eventType
	ev.Type = eventType
	ev.Data.Object = raw
	return &ev
}

func activeRemoteSub(userUID string, periodEnd time.Time) *paymentprovider.Subscription {
	return &paymentprovider.Subscription{
		ID:         "sub_1",
		CustomerID: "cus_1",
		Status:     models.StatusActive,
		Price: paymentprovider.RecurringPrice{
			Currency:   "usd",
			UnitAmount: 999,
			Interval:   "month",
		},
		Metadata: paymentprovider.Metadata{
			paymentprovider.MetaUserUID:  userUID,
			paymentprovider.MetaPlanType: "monthly",
		},
		CurrentPeriodStart: periodEnd.AddDate(0, -1, 0).Unix(),
		CurrentPeriodEnd:   periodEnd.Unix(),
	}
}

func TestProcessEvent_SubscriptionUpdatedIsIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	provider := &fakeProvider{subs: map[string]*paymentprovider.Subscription{
		"sub_1": activeRemoteSub("user-1", now.AddDate(0, 1, 0)),
	}}
	svc := webhook.New(store, provider, nil, makeLogger(), func() time.Time { return now })

	ev := event(t, webhook.EventSubscriptionUpdated, map[string]string{"id": "sub_1"})

	require.NoError(t, svc.ProcessEvent(context.Background(), ev))
	after := store.subs["sub_1"]

	// Повторная доставка того же события не меняет состояние.
	require.NoError(t, svc.ProcessEvent(context.Background(), ev))
	assert.Equal(t, after, store.subs["sub_1"])
	assert.Len(t, store.subs, 1)
	assert.True(t, store.premium["user-1"])
}

func TestProcessEvent_OrderIndependentTerminalState(t *testing.T) {
	// Подписка в реальности отменена: перечитывание у провайдера
	// всегда отражает терминальное состояние, поэтому поздний дубль
	// created не возвращает строку в active.
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	canceled := activeRemoteSub("user-1", now.AddDate(0, 1, 0))
	canceled.Status = models.StatusCanceled

	store := newFakeStore()
	provider := &fakeProvider{subs: map[string]*paymentprovider.Subscription{"sub_1": canceled}}
	svc := webhook.New(store, provider, nil, makeLogger(), func() time.Time { return now })

	deleted := event(t, webhook.EventSubscriptionDeleted, map[string]string{"id": "sub_1"})
	created := event(t, webhook.EventSubscriptionCreated, map[string]string{"id": "sub_1"})

	// deleted до created: отмена по отсутствующей строке — no-op,
	// затем created синхронизирует уже отменённый снапшот.
	require.NoError(t, svc.ProcessEvent(context.Background(), deleted))
	require.NoError(t, svc.ProcessEvent(context.Background(), created))
	assert.Equal(t, models.StatusCanceled, store.subs["sub_1"].Status)

	// created до deleted сходится к тому же терминальному состоянию.
	store2 := newFakeStore()
	provider2 := &fakeProvider{subs: map[string]*paymentprovider.Subscription{"sub_1": canceled}}
	svc2 := webhook.New(store2, provider2, nil, makeLogger(), func() time.Time { return now })

	require.NoError(t, svc2.ProcessEvent(context.Background(), created))
	require.NoError(t, svc2.ProcessEvent(context.Background(), deleted))
	assert.Equal(t, models.StatusCanceled, store2.subs["sub_1"].Status)
	assert.False(t, store2.premium["user-1"])
}

func TestProcessEvent_CheckoutCompletedCreatesRow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	provider := &fakeProvider{subs: map[string]*paymentprovider.Subscription{
		"sub_1": activeRemoteSub("user-1", now.AddDate(0, 1, 0)),
	}}
	pub := &fakePublisher{}
	svc := webhook.New(store, provider, pub, makeLogger(), func() time.Time { return now })

	ev := event(t, webhook.EventCheckoutCompleted, map[string]string{
		"id":           "cs_1",
		"mode":         "subscription",
		"subscription": "sub_1",
	})
	require.NoError(t, svc.ProcessEvent(context.Background(), ev))

	sub := store.subs["sub_1"]
	assert.Equal(t, "user-1", sub.UserUID)
	assert.Equal(t, models.StatusActive, sub.Status)
	assert.Equal(t, models.PlanMonthly, sub.PlanType)
	require.Len(t, pub.messages, 1)
	assert.Equal(t, "sub_1", pub.messages[0].ProcessorSubscriptionID)
}

func TestProcessEvent_InvoiceEventsResyncSubscription(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pastDue := activeRemoteSub("user-1", now.AddDate(0, 1, 0))
	pastDue.Status = models.StatusPastDue

	store := newFakeStore()
	provider := &fakeProvider{subs: map[string]*paymentprovider.Subscription{"sub_1": pastDue}}
	svc := webhook.New(store, provider, nil, makeLogger(), func() time.Time { return now })

	// Неуспех и успех оплаты сводятся к одному re-sync: авторитетный
	// статус живёт на объекте подписки.
	ev := event(t, webhook.EventInvoiceFailed, map[string]string{
		"id":           "in_1",
		"subscription": "sub_1",
	})
	require.NoError(t, svc.ProcessEvent(context.Background(), ev))
	assert.Equal(t, models.StatusPastDue, store.subs["sub_1"].Status)
	assert.Equal(t, 1, provider.calls)
	assert.False(t, store.premium["user-1"])
}

func TestProcessEvent_NoLocalUserIsNoop(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	remote := activeRemoteSub("", now.AddDate(0, 1, 0))
	delete(remote.Metadata, paymentprovider.MetaUserUID)

	store := newFakeStore()
	provider := &fakeProvider{subs: map[string]*paymentprovider.Subscription{"sub_1": remote}}
	svc := webhook.New(store, provider, nil, makeLogger(), func() time.Time { return now })

	ev := event(t, webhook.EventSubscriptionUpdated, map[string]string{"id": "sub_1"})
	require.NoError(t, svc.ProcessEvent(context.Background(), ev))

	// Пользователь не выдумывается: ноль записей в хранилище.
	assert.Empty(t, store.subs)
	assert.Zero(t, store.writeCount)
}

func TestProcessEvent_UnknownEventTypeAcknowledged(t *testing.T) {
	store := newFakeStore()
	provider := &fakeProvider{subs: map[string]*paymentprovider.Subscription{}}
	svc := webhook.New(store, provider, nil, makeLogger(), nil)

	ev := event(t, "customer.updated", map[string]string{"id": "cus_1"})
	require.NoError(t, svc.ProcessEvent(context.Background(), ev))
	assert.Zero(t, store.writeCount)
	assert.Zero(t, provider.calls)
}

func TestProcessEvent_DeletedWithoutRowIsNoop(t *testing.T) {
	store := newFakeStore()
	provider := &fakeProvider{subs: map[string]*paymentprovider.Subscription{}}
	svc := webhook.New(store, provider, nil, makeLogger(), nil)

	ev := event(t, webhook.EventSubscriptionDeleted, map[string]string{"id": "sub_missing"})
	require.NoError(t, svc.ProcessEvent(context.Background(), ev))
	assert.Zero(t, store.writeCount)
}

func TestProcessEvent_StoreFailureReturnsError(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	store.upsertErr = errors.New("connection reset")
	provider := &fakeProvider{subs: map[string]*paymentprovider.Subscription{
		"sub_1": activeRemoteSub("user-1", now.AddDate(0, 1, 0)),
	}}
	svc := webhook.New(store, provider, nil, makeLogger(), func() time.Time { return now })

	ev := event(t, webhook.EventSubscriptionUpdated, map[string]string{"id": "sub_1"})
	require.Error(t, svc.ProcessEvent(context.Background(), ev))
}

func TestProcessEvent_PlanTypeFromPriceIntervalFallback(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	remote := activeRemoteSub("user-1", now.AddDate(1, 0, 0))
	delete(remote.Metadata, paymentprovider.MetaPlanType)
	remote.Price.Interval = "year"

	store := newFakeStore()
	provider := &fakeProvider{subs: map[string]*paymentprovider.Subscription{"sub_1": remote}}
	svc := webhook.New(store, provider, nil, makeLogger(), func() time.Time { return now })

	ev := event(t, webhook.EventSubscriptionUpdated, map[string]string{"id": "sub_1"})
	require.NoError(t, svc.ProcessEvent(context.Background(), ev))
	assert.Equal(t, models.PlanYearly, store.subs["sub_1"].PlanType)
}
