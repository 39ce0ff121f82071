package workflow

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/bsm/redislock"
	"github.com/mmdatafocus/autoservice_backend/models"
	"github.com/mmdatafocus/autoservice_backend/utils"
	"github.com/sirupsen/logrus"
)

const (
	invoiceNumberPrefix  = "INV-"
	invoiceNumberLockKey = "lock:invoice-number"
)

var trailingDigits = regexp.MustCompile(`(\d+)$`)

// NextInvoiceNumber formats INV-YYMM-NNNN from the clock reading and the most recently
// created invoice. The sequence continues from the latest number regardless of its month;
// no latest invoice, or one without trailing digits, restarts at 1.
func NextInvoiceNumber(now time.Time, latest *models.Invoice) string {
	seq := 1
	if latest != nil {
		if m := trailingDigits.FindStringSubmatch(latest.InvoiceNumber); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				seq = n + 1
			}
		}
	}
	return fmt.Sprintf("%s%s-%04d", invoiceNumberPrefix, now.Format("0601"), seq)
}

// Locker serializes invoice number allocation across instances.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type RedisLocker struct {
	Client *redislock.Client
	TTL    time.Duration
}

func NewRedisLocker(client *redislock.Client) *RedisLocker {
	return &RedisLocker{Client: client, TTL: 10 * time.Second}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	lock, err := l.Client.Obtain(ctx, key, l.TTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 20),
	})
	if err != nil {
		return nil, err
	}
	return func() {
		_ = lock.Release(context.WithoutCancel(ctx))
	}, nil
}

// lockAllocation is best effort: without a lock the unique index on invoice_number still
// turns a race into a Conflict.
func (s *InvoiceService) lockAllocation(ctx context.Context) func() {
	if s.Locker == nil {
		return func() {}
	}
	unlock, err := s.Locker.Lock(ctx, invoiceNumberLockKey)
	if err != nil {
		msg := "could not obtain invoice number lock; proceeding without lock"
		if !errors.Is(err, redislock.ErrNotObtained) {
			msg = "invoice number lock unavailable; proceeding without lock"
		}
		s.Logger.WithFields(logrus.Fields{
			"field": "lockAllocation",
			"key":   invoiceNumberLockKey,
			"error": err.Error(),
		}).Warn(msg)
		return func() {}
	}
	return unlock
}

func (s *InvoiceService) allocateInvoiceNumber(ctx context.Context, now time.Time) (string, error) {
	latest, err := s.Store.LatestInvoice(ctx)
	if err != nil {
		if !errors.Is(err, utils.ErrorRecordNotFound) {
			return "", utils.WrapAppError(utils.KindInternal, err, "failed to read latest invoice")
		}
		latest = nil
	}
	return NextInvoiceNumber(now, latest), nil
}
