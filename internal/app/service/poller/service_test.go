package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"paybridge/internal/app/logger"
	"paybridge/internal/app/model"
	"paybridge/internal/app/notify"
	"paybridge/internal/app/service/reconcile"
	"paybridge/internal/app/storage/memory"
	"paybridge/pkg/gateway"
)

// fakeGateway serves scripted statuses by payment id.
type fakeGateway struct {
	mu       sync.Mutex
	statuses map[string]string
	errs     map[string]error
	calls    int
	block    chan struct{}
}

func (g *fakeGateway) GetPayment(_ context.Context, in *gateway.GetPaymentRequest, out *gateway.GetPaymentResponse) error {
	g.mu.Lock()
	g.calls++
	block := g.block
	g.mu.Unlock()

	if block != nil {
		<-block
	}

	if err := g.errs[in.PaymentID]; err != nil {
		return err
	}

	out.PaymentID = in.PaymentID
	out.PaymentStatus = g.statuses[in.PaymentID]
	return nil
}

// recordingSink captures deliveries.
type recordingSink struct {
	mu       sync.Mutex
	messages []string
}

func (s *recordingSink) Send(_ context.Context, recipient, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, recipient+": "+text)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func setup(gw *fakeGateway) (*Service, *memory.TransactionRepository, *recordingSink) {
	repo := memory.NewTransactionRepository()
	engine := reconcile.New(repo)
	sink := &recordingSink{}
	dispatcher := notify.NewDispatcher(sink, "admin-chat", *logger.Global())
	svc := New(repo, gw, engine, dispatcher, time.Minute, 2)
	return svc, repo, sink
}

func createTx(t *testing.T, repo *memory.TransactionRepository, paymentID string) *model.Transaction {
	t.Helper()
	m, err := repo.Create(context.Background(), &model.Transaction{
		ID:                    uuid.New(),
		PaymentID:             paymentID,
		UserRef:               "chat-42",
		State:                 model.StatePending,
		RequiredConfirmations: 3,
		PriceAmount:           decimal.NewFromInt(100),
		PriceCurrency:         "EUR",
		PayAmount:             decimal.NewFromFloat(0.0025),
		PayCurrency:           "BTC",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return m
}

func TestTickAdvancesOpenTransactions(t *testing.T) {
	gw := &fakeGateway{statuses: map[string]string{"pay-1": "confirmed"}}
	svc, repo, sink := setup(gw)
	tx := createTx(t, repo, "pay-1")

	svc.Tick(context.Background())

	cur, _ := repo.Read(context.Background(), tx.ID)
	if cur.State != model.StateConfirmed {
		t.Errorf("state = %s, want confirmed", cur.State)
	}

	// user confirmation plus admin payout notice
	if sink.count() != 2 {
		t.Errorf("deliveries = %d, want 2: %v", sink.count(), sink.messages)
	}

	stats := svc.Stats()
	if stats.Ticks != 1 || stats.Applied != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.LastTick == 0 {
		t.Error("last tick not recorded")
	}
}

func TestTickSkipsTransactionsWithoutPaymentID(t *testing.T) {
	gw := &fakeGateway{statuses: map[string]string{}}
	svc, repo, _ := setup(gw)
	createTx(t, repo, "")

	svc.Tick(context.Background())

	if gw.calls != 0 {
		t.Errorf("gateway called %d times for a transaction without payment id", gw.calls)
	}
}

func TestTickIsolatesFailures(t *testing.T) {
	gw := &fakeGateway{
		statuses: map[string]string{"pay-ok": "confirming"},
		errs:     map[string]error{"pay-bad": errors.New("gateway down")},
	}
	svc, repo, _ := setup(gw)
	good := createTx(t, repo, "pay-ok")
	bad := createTx(t, repo, "pay-bad")

	svc.Tick(context.Background())

	curGood, _ := repo.Read(context.Background(), good.ID)
	if curGood.State != model.StateConfirming {
		t.Errorf("healthy transaction not advanced: %s", curGood.State)
	}

	curBad, _ := repo.Read(context.Background(), bad.ID)
	if curBad.State != model.StatePending {
		t.Errorf("failed poll changed state to %s", curBad.State)
	}

	if svc.Stats().Skipped != 1 {
		t.Errorf("skipped = %d, want 1", svc.Stats().Skipped)
	}
}

func TestTickReentrancyGuard(t *testing.T) {
	block := make(chan struct{})
	gw := &fakeGateway{
		statuses: map[string]string{"pay-1": "confirming"},
		block:    block,
	}
	svc, repo, _ := setup(gw)
	createTx(t, repo, "pay-1")

	done := make(chan struct{})
	go func() {
		svc.Tick(context.Background())
		close(done)
	}()

	// wait for the first tick to reach the gateway
	for {
		gw.mu.Lock()
		n := gw.calls
		gw.mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	// overlapping tick must be refused
	svc.Tick(context.Background())

	close(block)
	<-done

	gw.mu.Lock()
	calls := gw.calls
	gw.mu.Unlock()
	if calls != 1 {
		t.Errorf("gateway called %d times, want 1", calls)
	}
}

func TestStartStop(t *testing.T) {
	gw := &fakeGateway{statuses: map[string]string{"pay-1": "confirming"}}
	svc, repo, _ := setup(gw)
	tx := createTx(t, repo, "pay-1")

	svc.interval = 5 * time.Millisecond
	svc.Start()

	deadline := time.After(time.Second)
	for {
		cur, _ := repo.Read(context.Background(), tx.ID)
		if cur.State == model.StateConfirming {
			break
		}
		select {
		case <-deadline:
			t.Fatal("poller never advanced the transaction")
		case <-time.After(time.Millisecond):
		}
	}

	svc.Stop()

	// a second Stop is safe
	svc.Stop()
}
