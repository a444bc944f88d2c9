package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegistryCounters(t *testing.T) {
	reg := NewRegistry()
	reg.IncAction("mint", OutcomeSuccess)
	reg.IncAction("mint", OutcomeSuccess)
	reg.IncAction("buy", OutcomeDeclined)
	reg.IncRemoteError("ownerOf")
	reg.SetBalance(0.25)
	reg.ObserveConfirmation("mint", 3*time.Second)

	if got := testutil.ToFloat64(reg.actionsTotal.WithLabelValues("mint", OutcomeSuccess)); got != 2 {
		t.Fatalf("mint success = %v", got)
	}
	if got := testutil.ToFloat64(reg.actionsTotal.WithLabelValues("buy", OutcomeDeclined)); got != 1 {
		t.Fatalf("buy declined = %v", got)
	}
	if got := testutil.ToFloat64(reg.remoteErrors.WithLabelValues("ownerOf")); got != 1 {
		t.Fatalf("remote errors = %v", got)
	}
	if got := testutil.ToFloat64(reg.walletBalance); got != 0.25 {
		t.Fatalf("balance = %v", got)
	}
	if n := testutil.CollectAndCount(reg.confirmationTime); n != 1 {
		t.Fatalf("confirmation series = %d", n)
	}
}

func TestServerEndpoints(t *testing.T) {
	reg := NewRegistry()
	reg.IncAction("transfer", OutcomeFailed)

	s := NewServer("127.0.0.1:0", reg, func(context.Context) error { return nil }, nil, nil)
	ts := httptest.NewServer(s.httpServer.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	buf := new(strings.Builder)
	_, _ = io.Copy(buf, resp.Body)
	resp.Body.Close()
	if !strings.Contains(buf.String(), `nftcli_actions_total{action="transfer",outcome="failed"} 1`) {
		t.Fatalf("metrics body missing counter:\n%s", buf.String())
	}

	resp, err = http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestHealthDegraded(t *testing.T) {
	s := NewServer(":0", NewRegistry(), nil, func(context.Context) error { return errors.New("pool closed") }, nil)

	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Status  string `json:"status"`
		Journal struct {
			Error string `json:"error"`
		} `json:"journal"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "degraded" || body.Journal.Error != "pool closed" {
		t.Fatalf("unexpected body %+v", body)
	}
}
