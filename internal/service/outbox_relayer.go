package service

import (
	"context"
	"strconv"
	"time"

	"MiCiudadSV/internal/config"
	"MiCiudadSV/internal/metrics"
	"MiCiudadSV/internal/model"
	"MiCiudadSV/internal/pkg"

	"github.com/sirupsen/logrus"
)

const (
	outboxPurgeEvery = time.Hour
	outboxRetention  = 24 * time.Hour
)

type Sender func(ctx context.Context, ob *model.CommunityOutbox) error

// OutboxRelayer delivers comunidad_outbox rows written by membership and message transactions.
type OutboxRelayer struct {
	repo       OutboxStore
	batchSize  int
	interval   time.Duration
	maxRetries int
	sender     Sender
	metrics    *metrics.Metrics
	log        *logrus.Entry
}

func NewOutboxRelayer(repo OutboxStore, cfg config.OutboxConfig, sender Sender, m *metrics.Metrics) *OutboxRelayer {
	r := &OutboxRelayer{
		repo:       repo,
		batchSize:  cfg.BatchSize,
		interval:   cfg.Interval,
		maxRetries: cfg.MaxRetries,
		sender:     sender,
		metrics:    m,
		log:        logrus.WithField("component", "outbox"),
	}
	if r.batchSize <= 0 {
		r.batchSize = 200
	}
	if r.interval <= 0 {
		r.interval = time.Second
	}
	if r.maxRetries <= 0 {
		r.maxRetries = 5
	}
	return r
}

// Run drains the outbox every interval until ctx is done.
func (r *OutboxRelayer) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	purge := time.NewTicker(outboxPurgeEvery)
	defer purge.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.drainOnce(ctx)
		case <-purge.C:
			n, err := r.repo.PurgeSent(ctx, time.Now().Add(-outboxRetention))
			if err != nil {
				r.log.WithError(err).Warn("outbox purge failed")
				continue
			}
			if n > 0 {
				r.log.WithField("rows", n).Info("outbox purged")
			}
		}
	}
}

// drainOnce returns how many rows were delivered.
func (r *OutboxRelayer) drainOnce(ctx context.Context) int {
	rows, err := r.repo.List(ctx, r.batchSize, r.maxRetries)
	if err != nil {
		r.log.WithError(err).Warn("outbox query failed")
		return 0
	}

	sent := 0
	for i := range rows {
		ob := rows[i]
		if err := r.sender(ctx, &ob); err != nil {
			r.metrics.OutboxEvent(ob.EventType, false)
			fields := logrus.Fields{"outbox_id": ob.ID, "event": ob.EventType, "retry": ob.Retry + 1}
			if ob.Retry+1 >= r.maxRetries {
				r.log.WithFields(fields).WithError(err).Error("outbox event abandoned")
			} else {
				r.log.WithFields(fields).WithError(err).Warn("outbox send failed")
			}
			if err := r.repo.MarkFailed(ctx, ob.ID); err != nil {
				r.log.WithError(err).Warn("outbox mark failed")
			}
			continue
		}
		r.metrics.OutboxEvent(ob.EventType, true)
		if err := r.repo.MarkSent(ctx, ob.ID); err != nil {
			r.log.WithError(err).Warn("outbox mark sent failed")
			continue
		}
		sent++
	}
	return sent
}

// LogSender is used when no Kafka brokers are configured.
func LogSender(_ context.Context, ob *model.CommunityOutbox) error {
	logrus.WithFields(logrus.Fields{
		"event":        ob.EventType,
		"community_id": ob.CommunityID,
		"user_id":      ob.UserID,
		"payload":      ob.Payload,
	}).Info("outbox event")
	return nil
}

// KafkaSender keys every event by community so one community's events stay ordered.
func KafkaSender(p *pkg.KafkaProducer) Sender {
	return func(ctx context.Context, ob *model.CommunityOutbox) error {
		return p.Send(ctx, pkg.MakeKeyFromID(ob.CommunityID), []byte(ob.Payload), map[string]string{
			"event_type": ob.EventType,
			"outbox_id":  strconv.FormatUint(ob.ID, 10),
		})
	}
}
