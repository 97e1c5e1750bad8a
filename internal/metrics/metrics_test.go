package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ObserveResolution(t *testing.T) {
	m := New()

	m.ObserveResolution(OutcomeOK, 3, 2*time.Millisecond)
	m.ObserveResolution(OutcomeOK, 1, time.Millisecond)
	m.ObserveResolution("InvalidPayeeDependency", 0, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.resolutions.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resolutions.WithLabelValues("InvalidPayeeDependency")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.transfers))
}

func TestMetrics_ObserveRPC(t *testing.T) {
	m := New()

	m.ObserveRPC("/payswarm.v1.TransferService/Quote", "OK", time.Millisecond)
	m.ObserveRPC("/payswarm.v1.TransferService/Quote", "InvalidArgument", time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.rpcRequests.WithLabelValues("/payswarm.v1.TransferService/Quote", "OK")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.rpcRequests))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveRPC("/payswarm.v1.TransferService/Quote", "OK", time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "payswarm_grpc_requests_total")
	assert.Contains(t, string(body), "go_goroutines")
}
