package jobs

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/propdesk/leadadmin/pkg/geo"
	"github.com/propdesk/leadadmin/pkg/logger"
	"github.com/propdesk/leadadmin/pkg/metrics"
	"github.com/propdesk/leadadmin/pkg/models"
	"github.com/propdesk/leadadmin/pkg/store"
)

func TestRefreshLeadCount(t *testing.T) {
	mem := store.NewMemory()
	for i := 0; i < 3; i++ {
		require.NoError(t, mem.Put(context.Background(), &models.Lead{
			ID: fmt.Sprintf("l%d", i), DateTime: time.Now(),
		}))
	}

	m := metrics.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cm := NewCronManager(mem, geo.NewResolver(nil, srv.URL, logger.Default()), m, logger.Default())
	cm.RefreshLeadCount(context.Background())

	require.Equal(t, 3.0, testutil.ToFloat64(m.LeadsTotal))
}

func TestWarmCityCache(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		fmt.Fprint(w, `[{"Status":"Success","PostOffice":[{"Name":"GPO","District":"Bengaluru"}]}]`)
	}))
	defer srv.Close()

	mem := store.NewMemory()
	require.NoError(t, mem.Put(context.Background(), &models.Lead{
		ID: "a", DateTime: time.Now(), Pincode: "560001",
	}))
	require.NoError(t, mem.Put(context.Background(), &models.Lead{
		ID: "b", DateTime: time.Now().Add(-time.Minute), Pincode: "no code here",
	}))

	resolver := geo.NewResolver(nil, srv.URL, logger.Default())
	cm := NewCronManager(mem, resolver, metrics.New(), logger.Default())
	cm.WarmCityCache(context.Background())

	require.Equal(t, 1, hits, "only extractable pincodes get resolved")
	require.Equal(t, "Bengaluru", resolver.City(context.Background(), "560001"))
	require.Equal(t, 1, hits, "warmed entry is served from cache")
}
