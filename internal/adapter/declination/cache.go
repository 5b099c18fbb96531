package declination

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/Temutjin2k/room-compass/pkg/logger"
	"github.com/Temutjin2k/room-compass/pkg/metrics"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

type Provider interface {
	Declination(ctx context.Context, lat, lon float64) (float64, error)
}

// Lookup sources reported to metrics
const (
	SourceCache  = "cache"
	SourceRemote = "remote"
	SourceFailed = "failed"
)

const keyPrefix = "declination:"

// CachedProvider puts a Redis cache in front of a Provider. Positions are
// snapped to a grid so nearby devices share an entry, and concurrent misses
// for the same cell collapse into one remote call.
type CachedProvider struct {
	rdb   *redis.Client // nil disables caching
	next  Provider
	ttl   time.Duration
	grid  float64
	group singleflight.Group
	log   logger.Logger
}

// NewCachedProvider returns a provider caching next. grid is the cell size in degrees.
func NewCachedProvider(rdb *redis.Client, next Provider, ttl time.Duration, grid float64, log logger.Logger) *CachedProvider {
	if grid <= 0 {
		grid = 0.1
	}
	return &CachedProvider{
		rdb:  rdb,
		next: next,
		ttl:  ttl,
		grid: grid,
		log:  log,
	}
}

func (p *CachedProvider) Declination(ctx context.Context, lat, lon float64) (float64, error) {
	lat, lon = p.snap(lat), p.snap(lon)
	key := fmt.Sprintf("%s%.4f:%.4f", keyPrefix, lat, lon)

	if v, ok := p.cached(ctx, key); ok {
		metrics.RecordDeclinationLookup(SourceCache)
		return v, nil
	}

	v, err, _ := p.group.Do(key, func() (any, error) {
		d, err := p.next.Declination(ctx, lat, lon)
		if err != nil {
			return 0.0, err
		}
		p.store(ctx, key, d)
		return d, nil
	})
	if err != nil {
		metrics.RecordDeclinationLookup(SourceFailed)
		return 0, err
	}

	metrics.RecordDeclinationLookup(SourceRemote)
	return v.(float64), nil
}

func (p *CachedProvider) snap(deg float64) float64 {
	return math.Round(deg/p.grid) * p.grid
}

func (p *CachedProvider) cached(ctx context.Context, key string) (float64, bool) {
	if p.rdb == nil {
		return 0, false
	}

	s, err := p.rdb.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			p.log.Warn(ctx, "declination cache read failed", "error", err)
		}
		return 0, false
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (p *CachedProvider) store(ctx context.Context, key string, v float64) {
	if p.rdb == nil {
		return
	}
	if err := p.rdb.Set(ctx, key, strconv.FormatFloat(v, 'f', -1, 64), p.ttl).Err(); err != nil {
		p.log.Warn(ctx, "declination cache write failed", "error", err)
	}
}
