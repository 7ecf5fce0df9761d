// Package verify re-reads a device's license state after a mutation until
// the device reports a usable expiry or a wait budget runs out.
//
// Mutations restart the device's control plane, so the poller treats
// unreachable, service-unavailable, unlicensed and unparseable results as
// expected transitional states and keeps trying. Only an explicit
// credential rejection ends the poll early: retrying a bad password gains
// nothing and can lock the account.
package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/creds"
	apperrors "github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/errors"
	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/license"
	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/store"
	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/transport"
)

// RecordWriter persists a verification result. *store.Store satisfies it.
type RecordWriter interface {
	Update(ip string, patch map[string]any) (store.DeviceRecord, error)
}

// Poller drives the post-mutation verification loop. The clock and the
// sleep are injectable so tests run the loop without waiting.
type Poller struct {
	fetcher transport.Fetcher
	records RecordWriter
	metrics *transport.Metrics
	logger  *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPoller builds a poller on the wall clock. metrics may be nil.
func NewPoller(fetcher transport.Fetcher, records RecordWriter, metrics *transport.Metrics, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		fetcher: fetcher,
		records: records,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
		sleep:   contextSleep,
	}
}

// Poll fetches the device's license state every interval until the expiry
// is usable, then persists the result and returns the updated record.
//
// The attempt schedule includes one fetch at the maxWait boundary itself.
// When the budget runs out a TimeoutError wrapping the last failure is
// returned; that asserts nothing about the mutation's outcome, only that
// verification could not confirm it in time.
func (p *Poller) Poll(ctx context.Context, ip string, bundle creds.Bundle, maxWait, interval time.Duration) (store.DeviceRecord, error) {
	start := p.now()

	var lastErr error
	for attempt := 1; ; attempt++ {
		info, err := p.fetcher.FetchLicenseInfo(ctx, ip, bundle)
		switch {
		case err == nil:
			evalAt := p.now()
			days, status := license.DeriveAt(info.Expiry, evalAt)
			if days != license.DaysUnknown {
				p.metrics.RecordPoll(ctx, ip, true)
				p.logger.InfoContext(ctx, "verification succeeded",
					slog.String("ip", ip),
					slog.Int("attempt", attempt),
					slog.String("status", string(status)),
					slog.String("expiry", info.Expiry))
				return p.persist(ip, info, evalAt)
			}
			// The fetch worked but the expiry text is not yet
			// interpretable; the device may still be settling.
			lastErr = fmt.Errorf("%w: expiry %q", apperrors.ErrUnparseable, info.Expiry)

		case errors.Is(err, apperrors.ErrAuthFailed):
			p.metrics.RecordPoll(ctx, ip, false)
			p.logger.ErrorContext(ctx, "verification stopped on credential rejection",
				slog.String("ip", ip),
				slog.Int("attempt", attempt))
			return store.DeviceRecord{}, err

		default:
			lastErr = err
		}

		p.metrics.RecordPoll(ctx, ip, false)

		waited := p.now().Sub(start)
		if waited+interval > maxWait {
			terr := &apperrors.TimeoutError{IP: ip, Waited: waited, LastErr: lastErr}
			p.logger.WarnContext(ctx, "verification timed out",
				slog.String("ip", ip),
				slog.Int("attempts", attempt),
				slog.Duration("waited", waited),
				slog.String("last_error", fmt.Sprint(lastErr)))
			return store.DeviceRecord{}, terr
		}

		p.logger.DebugContext(ctx, "verification attempt failed, retrying",
			slog.String("ip", ip),
			slog.Int("attempt", attempt),
			slog.Duration("waited", waited),
			slog.String("error", fmt.Sprint(lastErr)))

		if err := p.sleep(ctx, interval); err != nil {
			return store.DeviceRecord{}, err
		}
	}
}

// persist writes the verified license state onto the device record.
func (p *Poller) persist(ip string, info license.Info, evalAt time.Time) (store.DeviceRecord, error) {
	return p.records.Update(ip, store.LicensePatch(info, evalAt))
}

// contextSleep waits d or until the context is cancelled.
func contextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
