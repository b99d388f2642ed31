// Package jobs runs the scheduled maintenance tasks.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/propdesk/leadadmin/pkg/geo"
	"github.com/propdesk/leadadmin/pkg/logger"
	"github.com/propdesk/leadadmin/pkg/metrics"
	"github.com/propdesk/leadadmin/pkg/store"
)

// cityWarmLimit caps how many leads the warm-up job walks.
const cityWarmLimit = 500

// CronManager manages scheduled jobs
type CronManager struct {
	cron    *cron.Cron
	store   store.LeadStore
	geo     *geo.Resolver
	metrics *metrics.Metrics
	log     logger.Logger
}

// NewCronManager creates a new cron manager
func NewCronManager(st store.LeadStore, resolver *geo.Resolver, m *metrics.Metrics, log logger.Logger) *CronManager {
	return &CronManager{
		cron:    cron.New(),
		store:   st,
		geo:     resolver,
		metrics: m,
		log:     log,
	}
}

// SetupJobs configures all scheduled jobs
func (cm *CronManager) SetupJobs() error {
	// Nightly at 1 AM: refresh the lead-count gauge.
	_, err := cm.cron.AddFunc("0 1 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		cm.RefreshLeadCount(ctx)
	})
	if err != nil {
		return err
	}

	// Nightly at 1:30 AM: pre-resolve cities so the morning's first page
	// loads render without waiting on the postal API.
	_, err = cm.cron.AddFunc("30 1 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
		defer cancel()
		cm.WarmCityCache(ctx)
	})
	return err
}

// RefreshLeadCount updates the lead total gauge from the store.
func (cm *CronManager) RefreshLeadCount(ctx context.Context) {
	count, err := cm.store.Count(ctx, store.LeadQuery{})
	if err != nil {
		cm.log.Error("lead count refresh failed", "error", err)
		return
	}
	cm.metrics.LeadsTotal.Set(float64(count))
	cm.log.Info("lead count refreshed", "total", count)
}

// WarmCityCache walks recent leads and resolves their pincodes, priming
// both cache tiers.
func (cm *CronManager) WarmCityCache(ctx context.Context) {
	var cursor store.Cursor
	walked := 0
	for walked < cityWarmLimit {
		page, err := cm.store.List(ctx, store.LeadQuery{Limit: 100, StartAfter: cursor})
		if err != nil {
			cm.log.Error("city cache warm-up failed", "error", err)
			return
		}
		pincodes := make([]string, 0, len(page.Leads))
		for _, l := range page.Leads {
			if pin := geo.ExtractPincode(l.Pincode); pin != "" {
				pincodes = append(pincodes, pin)
			}
		}
		cm.geo.ResolveAll(ctx, pincodes)
		walked += len(page.Leads)
		if page.Next == "" {
			break
		}
		cursor = page.Next
	}
	cm.log.Info("city cache warmed", "leads_walked", walked)
}

// Start begins running scheduled jobs.
func (cm *CronManager) Start() {
	cm.cron.Start()
	cm.log.Info("cron jobs started")
}

// Stop halts the scheduler and waits for running jobs.
func (cm *CronManager) Stop() {
	ctx := cm.cron.Stop()
	<-ctx.Done()
	cm.log.Info("cron jobs stopped")
}
