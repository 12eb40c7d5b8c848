package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/amorempixels/amor_server/internal/model"
	"github.com/amorempixels/amor_server/internal/pkg/metrics"
	"github.com/amorempixels/amor_server/internal/pkg/pubsub"
	"github.com/amorempixels/amor_server/internal/pkg/queue"
	"github.com/amorempixels/amor_server/internal/repository"
)

// SiteActivator publishes a pending card: free submissions call it directly,
// paid ones when the checkout webhook arrives.
type SiteActivator struct {
	sites     *repository.SiteRepository
	cache     *repository.SiteCache
	publisher *pubsub.Publisher
	queue     *queue.Queue
	metrics   *metrics.Metrics
	log       *zap.Logger
	baseURL   string
	now       func() time.Time
}

func NewSiteActivator(
	sites *repository.SiteRepository,
	cache *repository.SiteCache,
	publisher *pubsub.Publisher,
	q *queue.Queue,
	m *metrics.Metrics,
	log *zap.Logger,
	baseURL string,
) *SiteActivator {
	return &SiteActivator{
		sites:     sites,
		cache:     cache,
		publisher: publisher,
		queue:     q,
		metrics:   m,
		log:       log,
		baseURL:   strings.TrimRight(baseURL, "/"),
		now:       time.Now,
	}
}

// SiteURL is the public address of a card.
func (a *SiteActivator) SiteURL(customURL string) string {
	return a.baseURL + "/" + customURL
}

// Activate is idempotent: a site that is no longer pending is left alone and
// nothing is announced twice.
func (a *SiteActivator) Activate(ctx context.Context, site *model.Site) error {
	now := a.now()
	changed, err := a.sites.Activate(site.ID, now)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	site.Status = model.SiteStatusActive
	site.ActivatedAt = &now

	if err := a.cache.Invalidate(ctx, site.CustomURL); err != nil {
		a.log.Warn("failed to invalidate site cache", zap.String("custom_url", site.CustomURL), zap.Error(err))
	}
	a.metrics.SitesActivated.WithLabelValues(site.Plan).Inc()

	if site.OwnerID != nil {
		ev := &pubsub.UserEvent{
			Type:      pubsub.EventSiteActivated,
			UserID:    *site.OwnerID,
			SiteID:    site.ID,
			CustomURL: site.CustomURL,
		}
		if err := a.publisher.Publish(ctx, ev); err != nil {
			a.log.Warn("failed to publish site activation", zap.Int64("site_id", site.ID), zap.Error(err))
		}
	}

	if site.Email != "" {
		msg := &queue.Notification{
			Kind:      queue.KindSitePublished,
			Email:     site.Email,
			Name:      site.Form.CoupleName,
			SiteID:    site.ID,
			CustomURL: site.CustomURL,
			SiteURL:   a.SiteURL(site.CustomURL),
			ExpiresAt: site.ExpiresAt.Format("02/01/2006"),
		}
		if err := a.queue.Push(ctx, msg); err != nil {
			a.log.Warn("failed to enqueue publication email", zap.Int64("site_id", site.ID), zap.Error(err))
		}
	}

	a.log.Info("site activated",
		zap.Int64("site_id", site.ID),
		zap.String("custom_url", site.CustomURL),
		zap.String("plan", site.Plan))
	return nil
}
