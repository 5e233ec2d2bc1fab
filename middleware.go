package banklink

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

type Middleware func(Service) Service

// Wrap applies mws so that the first one is the outermost.
func Wrap(svc Service, mws ...Middleware) Service {
	for i := len(mws) - 1; i >= 0; i-- {
		svc = mws[i](svc)
	}
	return svc
}

//
// Logging middleware
//

type loggingMiddleware struct {
	next Service
	log  *zerolog.Logger
}

var (
	_ Service = (*loggingMiddleware)(nil)
)

func NewLoggingMiddleware(log *zerolog.Logger) Middleware {
	return func(next Service) Service {
		return &loggingMiddleware{
			next: next,
			log:  log,
		}
	}
}

func (l *loggingMiddleware) Account(ctx context.Context, id int64) (acct *Account, err error) {
	defer func(begin time.Time) {
		l.event(err).
			Str("method", "account").
			Int64("id", id).
			Dur("took", time.Since(begin)).
			Msg("")
	}(time.Now())
	return l.next.Account(ctx, id)
}

func (l *loggingMiddleware) ReceiveCredit(ctx context.Context, req CreditReq) (res *CreditResult, err error) {
	defer func(begin time.Time) {
		l.event(err).
			Str("method", "receive_credit").
			Int64("to_id", req.ToID).
			Str("amount", req.Amount.String()).
			Str("from_bank", req.FromBank).
			Int64("from_id", req.FromID).
			Str("transfer_id", req.TransferID.String()).
			Dur("took", time.Since(begin)).
			Msg("")
	}(time.Now())
	return l.next.ReceiveCredit(ctx, req)
}

func (l *loggingMiddleware) Transfer(ctx context.Context, req TransferReq) (res *TransferResult, err error) {
	defer func(begin time.Time) {
		ev := l.event(err).
			Str("method", "transfer").
			Int64("from_id", req.FromID).
			Int64("to_id", req.ToID).
			Str("amount", req.Amount.String())
		if res != nil {
			ev = ev.Str("transfer_id", res.TransferID.String())
		}
		ev.Dur("took", time.Since(begin)).Msg("")
	}(time.Now())
	return l.next.Transfer(ctx, req)
}

func (l *loggingMiddleware) Statement(ctx context.Context, w io.Writer, id int64) (err error) {
	defer func(begin time.Time) {
		l.event(err).
			Str("method", "statement").
			Int64("id", id).
			Dur("took", time.Since(begin)).
			Msg("")
	}(time.Now())
	return l.next.Statement(ctx, w, id)
}

func (l *loggingMiddleware) event(err error) *zerolog.Event {
	if err != nil {
		return l.log.Warn().Err(err).Str("category", ErrorCategory(err))
	}
	return l.log.Info()
}

//
// Rate limiting middleware
//

// limitMiddleware limits the number of in-flight requests per operation with
// weighted semaphores. A request that cannot get a token within
// AcquireTimeout is shed with ErrOverloaded before it touches the store.
type limitMiddleware struct {
	next   Service
	limits *ServiceLimits
}

var (
	_ Service = (*limitMiddleware)(nil)
)

type ServiceLimits struct {
	Account        *semaphore.Weighted
	ReceiveCredit  *semaphore.Weighted
	Transfer       *semaphore.Weighted
	Statement      *semaphore.Weighted
	AcquireTimeout time.Duration
}

func NewServiceLimits(cfg LimitsConfig) *ServiceLimits {
	return &ServiceLimits{
		Account:        semaphore.NewWeighted(cfg.Account),
		ReceiveCredit:  semaphore.NewWeighted(cfg.ReceiveCredit),
		Transfer:       semaphore.NewWeighted(cfg.Transfer),
		Statement:      semaphore.NewWeighted(cfg.Statement),
		AcquireTimeout: cfg.AcquireTimeout,
	}
}

func NewLimitMiddleware(limits *ServiceLimits) Middleware {
	return func(next Service) Service {
		return &limitMiddleware{
			next:   next,
			limits: limits,
		}
	}
}

func (l *limitMiddleware) acquire(ctx context.Context, sem *semaphore.Weighted) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, l.limits.AcquireTimeout)
	defer cancel()
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, ErrOverloaded
	}
	return func() { sem.Release(1) }, nil
}

func (l *limitMiddleware) Account(ctx context.Context, id int64) (*Account, error) {
	release, err := l.acquire(ctx, l.limits.Account)
	if err != nil {
		return nil, err
	}
	defer release()
	return l.next.Account(ctx, id)
}

func (l *limitMiddleware) ReceiveCredit(ctx context.Context, req CreditReq) (*CreditResult, error) {
	release, err := l.acquire(ctx, l.limits.ReceiveCredit)
	if err != nil {
		return nil, err
	}
	defer release()
	return l.next.ReceiveCredit(ctx, req)
}

func (l *limitMiddleware) Transfer(ctx context.Context, req TransferReq) (*TransferResult, error) {
	release, err := l.acquire(ctx, l.limits.Transfer)
	if err != nil {
		return nil, err
	}
	defer release()
	return l.next.Transfer(ctx, req)
}

func (l *limitMiddleware) Statement(ctx context.Context, w io.Writer, id int64) error {
	release, err := l.acquire(ctx, l.limits.Statement)
	if err != nil {
		return err
	}
	defer release()
	return l.next.Statement(ctx, w, id)
}
