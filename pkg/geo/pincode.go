// Package geo resolves Indian postal pincodes to city names through the
// public postal API, memoizing results in Redis and in process.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/propdesk/leadadmin/pkg/cache"
	"github.com/propdesk/leadadmin/pkg/logger"
)

// CityUnknown marks a pincode whose lookup failed or returned nothing.
// It is cached like a real city so the same dead pincode is never
// re-queried.
const CityUnknown = "—"

// DefaultBaseURL is the public postal pincode API.
const DefaultBaseURL = "https://api.postalpincode.in"

var pincodeRe = regexp.MustCompile(`\d{6}`)

// ExtractPincode returns the first run of six consecutive digits in the
// address, or "" when none exists.
func ExtractPincode(address string) string {
	return pincodeRe.FindString(address)
}

// pincodeAPIResponse mirrors the postal API payload. Only the first
// entry's first post office is consulted.
type pincodeAPIResponse []struct {
	Status     string `json:"Status"`
	PostOffice []struct {
		Name     string `json:"Name"`
		District string `json:"District"`
	} `json:"PostOffice"`
}

// Resolver turns pincodes into city names with two cache tiers: a
// process-local map for the lifetime of the resolver and Redis for
// cross-process reuse.
type Resolver struct {
	httpClient *http.Client
	cache      *cache.Client
	baseURL    string
	log        logger.Logger
	lookups    *prometheus.CounterVec

	mu    sync.RWMutex
	local map[string]string
}

// NewResolver creates a Resolver. cacheClient may be nil, in which case
// only the local tier is used.
func NewResolver(cacheClient *cache.Client, baseURL string, log logger.Logger) *Resolver {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Resolver{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      cacheClient,
		baseURL:    baseURL,
		log:        log,
		local:      make(map[string]string),
	}
}

// SetLookupCounter attaches a counter incremented per resolution with a
// result label of cached, resolved or failed.
func (r *Resolver) SetLookupCounter(c *prometheus.CounterVec) {
	r.lookups = c
}

func (r *Resolver) count(result string) {
	if r.lookups != nil {
		r.lookups.WithLabelValues(result).Inc()
	}
}

func cityCacheKey(pincode string) string {
	return "geo:pincode:" + pincode
}

// City resolves one pincode to a city name. It never returns an error:
// any failure yields CityUnknown, which is then cached permanently.
func (r *Resolver) City(ctx context.Context, pincode string) string {
	if pincode == "" {
		return CityUnknown
	}

	r.mu.RLock()
	city, ok := r.local[pincode]
	r.mu.RUnlock()
	if ok {
		r.count("cached")
		return city
	}

	if r.cache != nil {
		cached, err := r.cache.Get(ctx, cityCacheKey(pincode))
		if err == nil && cached != "" {
			r.remember(pincode, cached)
			r.count("cached")
			return cached
		}
	}

	city = r.lookup(ctx, pincode)
	if city == CityUnknown {
		r.count("failed")
	} else {
		r.count("resolved")
	}
	r.remember(pincode, city)
	if r.cache != nil {
		if err := r.cache.Set(ctx, cityCacheKey(pincode), city, 0); err != nil {
			r.log.Warn("failed caching city", "pincode", pincode, "error", err)
		}
	}
	return city
}

func (r *Resolver) remember(pincode, city string) {
	r.mu.Lock()
	r.local[pincode] = city
	r.mu.Unlock()
}

// lookup queries the postal API. The district is preferred over the
// post office name.
func (r *Resolver) lookup(ctx context.Context, pincode string) string {
	url := fmt.Sprintf("%s/pincode/%s", r.baseURL, pincode)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return CityUnknown
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.log.Warn("pincode lookup failed", "pincode", pincode, "error", err)
		return CityUnknown
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return CityUnknown
	}

	var payload pincodeAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return CityUnknown
	}
	if len(payload) == 0 || len(payload[0].PostOffice) == 0 {
		return CityUnknown
	}

	po := payload[0].PostOffice[0]
	if po.District != "" {
		return po.District
	}
	if po.Name != "" {
		return po.Name
	}
	return CityUnknown
}

// CityFromAddress extracts a pincode from the address and resolves it.
func (r *Resolver) CityFromAddress(ctx context.Context, address string) string {
	return r.City(ctx, ExtractPincode(address))
}

// ResolveAll resolves cities for a batch of pincodes concurrently. The
// returned slice is index-aligned with the input.
func (r *Resolver) ResolveAll(ctx context.Context, pincodes []string) []string {
	cities := make([]string, len(pincodes))
	var wg sync.WaitGroup
	for i, pin := range pincodes {
		wg.Add(1)
		go func(i int, pin string) {
			defer wg.Done()
			cities[i] = r.City(ctx, pin)
		}(i, pin)
	}
	wg.Wait()
	return cities
}
