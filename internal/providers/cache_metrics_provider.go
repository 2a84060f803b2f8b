package providers

import "dashd/internal/structures"

// instrumentedCache counts search-cache hits and misses. Only Get is
// instrumented; a Set carries no signal the request metrics don't
// already have.
type instrumentedCache struct {
	inner   CacheProviderInterface
	metrics MetricsProviderInterface
}

func (c *instrumentedCache) Get(key string) ([]byte, bool) {
	val, ok := c.inner.Get(key)
	if ok {
		c.metrics.IncCacheHits()
		return val, true
	}
	c.metrics.IncCacheMisses()
	return nil, false
}

func (c *instrumentedCache) Set(key string, value []byte) {
	c.inner.Set(key, value)
}

// NewInstrumentedCacheProvider builds the search cache with hit/miss
// accounting. A disabled cache stays uninstrumented, every lookup would
// otherwise register as a phantom miss.
func NewInstrumentedCacheProvider(conf *structures.Config, logger Logger, metrics MetricsProviderInterface) CacheProviderInterface {
	inner := NewCacheProvider(conf, logger)
	if !conf.Cache.Enabled {
		return inner
	}
	return &instrumentedCache{
		inner:   inner,
		metrics: metrics,
	}
}
