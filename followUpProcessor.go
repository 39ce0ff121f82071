package main

import (
	"context"
	"time"

	"github.com/mmdatafocus/autoservice_backend/workflow"
	"github.com/sirupsen/logrus"
)

type followUpRunner interface {
	ProcessPendingFollowUps(ctx context.Context, limit int) (processed int, failed int, err error)
}

// FollowUpProcessor retries customer follow-ups that failed right after invoice creation.
// Rounds that leave failures behind back off exponentially up to MaxBackoff.
type FollowUpProcessor struct {
	Service    followUpRunner
	Logger     *logrus.Logger
	BatchSize  int
	Interval   time.Duration
	MaxBackoff time.Duration
}

func NewFollowUpProcessor(svc *workflow.InvoiceService, logger *logrus.Logger) *FollowUpProcessor {
	return &FollowUpProcessor{
		Service:    svc,
		Logger:     logger,
		BatchSize:  50,
		Interval:   5 * time.Second,
		MaxBackoff: 5 * time.Minute,
	}
}

func (p *FollowUpProcessor) Run(ctx context.Context) {
	if p == nil || p.Service == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	failedRounds := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if p.processOnce(ctx) {
			failedRounds++
		} else {
			failedRounds = 0
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.nextDelay(failedRounds)):
		}
	}
}

// processOnce reports whether the round left any follow-up failing.
func (p *FollowUpProcessor) processOnce(ctx context.Context) bool {
	processed, failed, err := p.Service.ProcessPendingFollowUps(ctx, p.BatchSize)
	if err != nil {
		if ctx.Err() == nil && p.Logger != nil {
			p.Logger.WithFields(logrus.Fields{
				"field": "FollowUpProcessor",
			}).Warn("follow-up round failed: " + err.Error())
		}
		return true
	}
	if processed > 0 && p.Logger != nil {
		p.Logger.WithFields(logrus.Fields{
			"field":     "FollowUpProcessor",
			"processed": processed,
			"failed":    failed,
		}).Info("processed customer follow-ups")
	}
	return failed > 0
}

func (p *FollowUpProcessor) nextDelay(failedRounds int) time.Duration {
	if failedRounds <= 0 {
		return p.Interval
	}
	delay := p.Interval << min(failedRounds, 16)
	if p.MaxBackoff > 0 && delay > p.MaxBackoff {
		return p.MaxBackoff
	}
	return delay
}
