package settings

import (
	"context"
	"fmt"
	"time"

	"github.com/flow-hydraulics/settings-client/cache"
	"github.com/flow-hydraulics/settings-client/errors"
	"github.com/jpillora/backoff"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// CachePolicy decides what happens to the cached snapshot after a
// successful update.
type CachePolicy string

const (
	CachePolicyNone       CachePolicy = "none"       // leave the snapshot as is, it may be stale
	CachePolicyInvalidate CachePolicy = "invalidate" // delete the snapshot
	CachePolicyRefresh    CachePolicy = "refresh"    // fetch all settings again and overwrite the snapshot
)

func ParseCachePolicy(s string) (CachePolicy, error) {
	switch p := CachePolicy(s); p {
	case CachePolicyNone, CachePolicyInvalidate, CachePolicyRefresh:
		return p, nil
	}
	return "", fmt.Errorf("cache policy '%s' not supported", s)
}

// Service combines the settings endpoint with the local snapshot cache.
type Service struct {
	api         API
	store       cache.Store
	cachePolicy CachePolicy
	maxAttempts int
	minBackoff  time.Duration
	maxBackoff  time.Duration
	logger      *log.Logger
}

func NewService(api API, store cache.Store, opts ...ServiceOption) *Service {
	svc := &Service{
		api:         api,
		store:       store,
		cachePolicy: CachePolicyRefresh,
		maxAttempts: 1,
		minBackoff:  100 * time.Millisecond,
		maxBackoff:  10 * time.Second,
		logger:      log.StandardLogger(),
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc
}

// Setup fetches all settings and stores them as the snapshot under
// cache.SettingsKey, replacing any previous one. It is meant to be called
// once on application startup and its error must be handled by the caller.
func (svc *Service) Setup(ctx context.Context, token string) error {
	b := &backoff.Backoff{
		Min:    svc.minBackoff,
		Max:    svc.maxBackoff,
		Factor: 2,
		Jitter: true,
	}

	var (
		data datatypes.JSON
		err  error
	)

	for attempt := 1; ; attempt++ {
		data, err = svc.api.GetAllSettings(ctx, token)
		if err == nil {
			break
		}

		// Only transport failures are worth another try
		if !errors.IsKind(err, errors.Network) || attempt >= svc.maxAttempts {
			return fmt.Errorf("error while fetching settings: %w", err)
		}

		d := b.Duration()
		svc.logger.
			WithFields(log.Fields{"attempt": attempt, "wait": d.String()}).
			Debug("Retrying settings bootstrap")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
		}
	}

	if err := svc.store.Put(cache.SettingsKey, data); err != nil {
		return err
	}

	svc.logger.WithFields(log.Fields{"key": cache.SettingsKey}).Debug("Settings snapshot stored")

	return nil
}

func (svc *Service) GetAllSettings(ctx context.Context, token string) (datatypes.JSON, error) {
	return svc.api.GetAllSettings(ctx, token)
}

// UpdateSettingValue persists a setting and then applies the cache policy.
// A failing cache step is logged but does not fail the update.
func (svc *Service) UpdateSettingValue(ctx context.Context, token, name, value string) (datatypes.JSON, error) {
	res, err := svc.api.UpdateSettingValue(ctx, token, name, value)
	if err != nil {
		return nil, err
	}

	if err := svc.applyCachePolicy(ctx, token); err != nil {
		svc.logger.
			WithFields(log.Fields{"error": err, "policy": svc.cachePolicy}).
			Warn("Could not update settings snapshot after update")
	}

	return res, nil
}

// Cached returns the current snapshot, cache.ErrNotFound if there is none.
func (svc *Service) Cached() (*cache.Snapshot, error) {
	return svc.store.Get(cache.SettingsKey)
}

func (svc *Service) applyCachePolicy(ctx context.Context, token string) error {
	switch svc.cachePolicy {
	case CachePolicyInvalidate:
		return svc.store.Delete(cache.SettingsKey)
	case CachePolicyRefresh:
		data, err := svc.api.GetAllSettings(ctx, token)
		if err != nil {
			return err
		}
		return svc.store.Put(cache.SettingsKey, data)
	}
	return nil
}
