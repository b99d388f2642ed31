package geo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propdesk/leadadmin/pkg/cache"
	"github.com/propdesk/leadadmin/pkg/logger"
)

func TestExtractPincode(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    string
	}{
		{"plain pincode", "MG Road, Bengaluru 560001", "560001"},
		{"first of two", "560001 or maybe 400001", "560001"},
		{"embedded in digits", "call 9876543210", "987654"},
		{"no pincode", "MG Road, Bengaluru", ""},
		{"too short", "12345", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractPincode(tt.address))
		})
	}
}

func pincodeHandler(hits *atomic.Int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/pincode/560001":
			fmt.Fprint(w, `[{"Status":"Success","PostOffice":[{"Name":"Bangalore GPO","District":"Bengaluru"}]}]`)
		case "/pincode/110001":
			fmt.Fprint(w, `[{"Status":"Success","PostOffice":[{"Name":"Connaught Place","District":""}]}]`)
		case "/pincode/000000":
			fmt.Fprint(w, `[{"Status":"Error","PostOffice":null}]`)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}
}

func newTestResolver(t *testing.T) (*Resolver, *atomic.Int64) {
	t.Helper()
	var hits atomic.Int64
	srv := httptest.NewServer(pincodeHandler(&hits))
	t.Cleanup(srv.Close)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	c := &cache.Client{Redis: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	return NewResolver(c, srv.URL, logger.Default()), &hits
}

func TestResolver_City(t *testing.T) {
	r, _ := newTestResolver(t)

	assert.Equal(t, "Bengaluru", r.City(context.Background(), "560001"))
}

func TestResolver_FallsBackToPostOfficeName(t *testing.T) {
	r, _ := newTestResolver(t)

	assert.Equal(t, "Connaught Place", r.City(context.Background(), "110001"))
}

func TestResolver_UnknownOnEmptyResult(t *testing.T) {
	r, _ := newTestResolver(t)

	assert.Equal(t, CityUnknown, r.City(context.Background(), "000000"))
}

func TestResolver_CachesFailuresPermanently(t *testing.T) {
	r, hits := newTestResolver(t)
	ctx := context.Background()

	assert.Equal(t, CityUnknown, r.City(ctx, "999999"))
	assert.Equal(t, CityUnknown, r.City(ctx, "999999"))
	assert.Equal(t, int64(1), hits.Load(), "failed lookup must not be retried")
}

func TestResolver_MemoizesAcrossCalls(t *testing.T) {
	r, hits := newTestResolver(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		r.City(ctx, "560001")
	}
	assert.Equal(t, int64(1), hits.Load())
}

func TestResolver_EmptyPincode(t *testing.T) {
	r, hits := newTestResolver(t)

	assert.Equal(t, CityUnknown, r.City(context.Background(), ""))
	assert.Zero(t, hits.Load())
}

func TestResolver_ResolveAll(t *testing.T) {
	r, _ := newTestResolver(t)

	cities := r.ResolveAll(context.Background(), []string{"560001", "", "110001", "000000"})
	assert.Equal(t, []string{"Bengaluru", CityUnknown, "Connaught Place", CityUnknown}, cities)
}

func TestResolver_CityFromAddress(t *testing.T) {
	r, _ := newTestResolver(t)

	assert.Equal(t, "Bengaluru", r.CityFromAddress(context.Background(), "Flat 2, MG Road 560001"))
	assert.Equal(t, CityUnknown, r.CityFromAddress(context.Background(), "no pincode here"))
}
