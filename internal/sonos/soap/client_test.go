package soap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func init() {
	retryDelays = []time.Duration{time.Millisecond, time.Millisecond}
}

// testClient builds a Client pointed at an httptest server: the server's
// host is used as the device "IP" and its port overrides the hardcoded
// Sonos control port, so ExecuteAction's built URL lands on the test server.
func testClient(t *testing.T, serverURL string) (*Client, string) {
	t.Helper()
	parsed, err := url.Parse(serverURL)
	require.NoError(t, err)
	port, err := strconv.Atoi(parsed.Port())
	require.NoError(t, err)

	client := NewClient(time.Second)
	client.devicePort = port
	return client, parsed.Hostname()
}

func TestExecuteAction_RetriesOn5xx(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&attempts, 1)
		if n < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`<ok/>`))
	}))
	defer server.Close()

	client, ip := testClient(t, server.URL)

	payload, err := client.ExecuteAction(context.Background(), ip, ServiceAVTransport, "Play", map[string]string{"InstanceID": "0"})
	require.NoError(t, err)
	require.Equal(t, `<ok/>`, string(payload))
	require.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestExecuteAction_DoesNotRetryOn4xx(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`<s:Envelope><s:Body><s:Fault><faultcode>s:Client</faultcode><faultstring>UPnPError</faultstring><detail><UPnPError><errorCode>701</errorCode></UPnPError></detail></s:Fault></s:Body></s:Envelope>`))
	}))
	defer server.Close()

	client, ip := testClient(t, server.URL)

	_, err := client.ExecuteAction(context.Background(), ip, ServiceAVTransport, "Play", map[string]string{"InstanceID": "0"})
	require.Error(t, err)
	var rejected *SonosRejectedError
	require.ErrorAs(t, err, &rejected)
	require.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestExecuteAction_ExhaustsRetriesOnPersistent5xx(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, ip := testClient(t, server.URL)

	_, err := client.ExecuteAction(context.Background(), ip, ServiceAVTransport, "Play", map[string]string{"InstanceID": "0"})
	require.Error(t, err)
	var serverErr *SonosServerError
	require.ErrorAs(t, err, &serverErr)
	require.Equal(t, int32(3), atomic.LoadInt32(&attempts)) // 1 initial + 2 retries
}

func TestExecuteAction_SerializesPerSpeaker(t *testing.T) {
	var concurrent int32
	var maxConcurrent int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&concurrent, 1)
		if n > atomic.LoadInt32(&maxConcurrent) {
			atomic.StoreInt32(&maxConcurrent, n)
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&concurrent, -1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, ip := testClient(t, server.URL)

	done := make(chan struct{}, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, _ = client.ExecuteAction(context.Background(), ip, ServiceAVTransport, "Play", map[string]string{"InstanceID": "0"})
			done <- struct{}{}
		}()
	}
	<-done
	<-done

	require.Equal(t, int32(1), atomic.LoadInt32(&maxConcurrent))
}
