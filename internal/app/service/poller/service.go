package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"paybridge/internal/app/logger"
	"paybridge/internal/app/model"
	"paybridge/internal/app/notify"
	"paybridge/internal/app/service/reconcile"
	"paybridge/internal/app/storage"
	"paybridge/pkg/gateway"
)

const jobTimeout = 30 * time.Second

// StatusProvider is the slice of the gateway client the poller needs.
type StatusProvider interface {
	GetPayment(ctx context.Context, in *gateway.GetPaymentRequest, out *gateway.GetPaymentResponse) error
}

// Service polls the gateway for every open transaction on a fixed
// interval and feeds the results through the reconciliation engine. The
// fallback channel: it picks up anything a lost webhook never delivered.
type Service struct {
	logger       logger.Logger
	transactions storage.TransactionRepository
	gateway      StatusProvider
	engine       *reconcile.Service
	dispatcher   *notify.Dispatcher

	interval time.Duration
	workers  int

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	inFlight int32

	ticks    int64
	applied  int64
	skipped  int64
	lastTick int64
}

func (s *Service) LoggerComponent() string {
	return "Poller.Service"
}

func New(
	transactions storage.TransactionRepository,
	gw StatusProvider,
	engine *reconcile.Service,
	dispatcher *notify.Dispatcher,
	interval time.Duration,
	workers int,
) *Service {
	if workers < 1 {
		workers = 1
	}
	return &Service{
		logger:       logger.Global().WithComponent("Poller.Service"),
		transactions: transactions,
		gateway:      gw,
		engine:       engine,
		dispatcher:   dispatcher,
		interval:     interval,
		workers:      workers,
		stopCh:       make(chan struct{}),
	}
}

// Start the interval loop. Runs until Stop.
func (s *Service) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		t := time.NewTicker(s.interval)
		defer t.Stop()
		for {
			select {
			case <-s.stopCh:
				return
			case <-t.C:
				s.Tick(context.Background())
			}
		}
	}()
}

// Stop the loop and wait for an in-flight tick to drain.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
	s.logger.Debug().Msg("Service shutdown")
}

// Stats for the health surface.
type Stats struct {
	Ticks    int64 `json:"ticks"`
	Applied  int64 `json:"applied"`
	Skipped  int64 `json:"skipped"`
	LastTick int64 `json:"last_tick_unix"`
}

func (s *Service) Stats() Stats {
	return Stats{
		Ticks:    atomic.LoadInt64(&s.ticks),
		Applied:  atomic.LoadInt64(&s.applied),
		Skipped:  atomic.LoadInt64(&s.skipped),
		LastTick: atomic.LoadInt64(&s.lastTick),
	}
}

// Tick runs one polling pass. At most one tick runs at a time; a tick
// arriving while the previous one still runs is skipped.
func (s *Service) Tick(ctx context.Context) {
	if !atomic.CompareAndSwapInt32(&s.inFlight, 0, 1) {
		s.logger.Warn().Msg("Previous tick still running, skipping")
		return
	}
	defer atomic.StoreInt32(&s.inFlight, 0)

	l := s.logger.With().Int64("tick", atomic.AddInt64(&s.ticks, 1)).Logger()
	l.Debug().Msg("Polling gateway")

	mm, err := s.transactions.ListByStates(ctx, model.OpenStates())
	if err != nil {
		l.Error().Err(err).Msg("Open transaction listing failed")
		return
	}

	jobs := make(chan *model.Transaction)
	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tx := range jobs {
				s.pollOne(ctx, tx)
			}
		}()
	}

	queued := 0
enqueue:
	for _, tx := range mm {
		if tx.PaymentID == "" {
			// nothing to query yet; the gateway has not assigned an id
			continue
		}
		select {
		case <-s.stopCh:
			break enqueue
		case jobs <- tx:
			queued++
		}
	}
	close(jobs)
	wg.Wait()

	atomic.StoreInt64(&s.lastTick, time.Now().Unix())
	l.Debug().Int("open", len(mm)).Int("polled", queued).Msg("Tick done")
}

// pollOne queries the gateway for a single transaction and reconciles the
// answer. Failures are logged and skipped; the next tick retries.
func (s *Service) pollOne(ctx context.Context, tx *model.Transaction) {
	l := logger.Logger{Logger: s.logger.With().
		Str("transaction_id", tx.ID.String()).
		Str("payment_id", tx.PaymentID).
		Logger()}

	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	in := &gateway.GetPaymentRequest{PaymentID: tx.PaymentID}
	out := &gateway.GetPaymentResponse{}
	if err := s.gateway.GetPayment(ctx, in, out); err != nil {
		atomic.AddInt64(&s.skipped, 1)
		l.Warn().Err(err).Msg("Gateway poll failed, skipping until next tick")
		return
	}

	events, err := s.engine.Reconcile(ctx, model.StatusEvent{
		TransactionID: tx.ID.String(),
		PaymentID:     out.PaymentID,
		RawStatus:     out.PaymentStatus,
		Confirmations: out.Confirmations,
		Amount:        out.ActuallyPaid,
		Source:        model.SourcePoll,
	})
	if err != nil {
		atomic.AddInt64(&s.skipped, 1)
		l.Warn().Err(err).Msg("Reconcile failed, skipping until next tick")
		return
	}

	if len(events) > 0 {
		atomic.AddInt64(&s.applied, 1)
		cur, err := s.transactions.Read(ctx, tx.ID)
		if err != nil {
			l.Error().Err(err).Msg("Post-transition read failed, notifying from stale record")
			cur = tx
		}
		s.dispatcher.Dispatch(ctx, cur, events)
	}
}
