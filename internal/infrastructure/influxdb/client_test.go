package influxdb

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gamecircle-core/internal/infrastructure/config"
)

// fakeInflux answers /ping and records line-protocol bodies sent to /api/v2/write.
type fakeInflux struct {
	mu        sync.Mutex
	writes    []string
	writeCode int
}

func (f *fakeInflux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/ping":
		w.WriteHeader(http.StatusNoContent)
	case "/api/v2/write":
		body, _ := io.ReadAll(r.Body) //nolint:errcheck // test server
		f.mu.Lock()
		f.writes = append(f.writes, string(body))
		code := f.writeCode
		f.mu.Unlock()
		if code == 0 {
			code = http.StatusNoContent
		}
		if code != http.StatusNoContent {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(code)
			_, _ = io.WriteString(w, `{"code":"invalid","message":"bad point"}`) //nolint:errcheck // test server
			return
		}
		w.WriteHeader(code)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeInflux) bodies() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strings.Join(f.writes, "\n")
}

func testConfig(url string) config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           url,
		Token:         "gamecircle-test-token",
		Org:           "gamecircle",
		Bucket:        "activity",
		BatchSize:     10,
		FlushInterval: 1,
	}
}

func connectFake(t *testing.T, fake *fakeInflux) *Client {
	t.Helper()

	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := Connect(context.Background(), testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() }) //nolint:errcheck // Test cleanup
	return client
}

func TestConnect(t *testing.T) {
	client := connectFake(t, &fakeInflux{})

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Enabled = false

	if _, err := Connect(context.Background(), cfg); !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := Connect(ctx, testConfig(url)); !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestWriteActivity(t *testing.T) {
	fake := &fakeInflux{}
	client := connectFake(t, fake)

	client.WriteActivity("game.ownership_changed", "added", time.Unix(1772366400, 0))
	client.WriteActivity("user.created", "", time.Unix(1772366401, 0))
	client.Flush()

	body := fake.bodies()
	for _, want := range []string{
		"activity,action=added,event=game.ownership_changed count=1i 1772366400000000000",
		"activity,event=user.created count=1i 1772366401000000000",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("written body missing %q\ngot:\n%s", want, body)
		}
	}
}

func TestWritePoint(t *testing.T) {
	fake := &fakeInflux{}
	client := connectFake(t, fake)

	client.WritePoint("api_stats", map[string]string{"instance": "core-1"}, map[string]any{"clients": 3})
	client.Flush()

	if body := fake.bodies(); !strings.Contains(body, "api_stats,instance=core-1 clients=3i") {
		t.Errorf("written body = %q", body)
	}
}

func TestWriteErrorCallback(t *testing.T) {
	fake := &fakeInflux{writeCode: http.StatusBadRequest}
	client := connectFake(t, fake)

	errCh := make(chan error, 1)
	client.SetOnError(func(err error) {
		select {
		case errCh <- err:
		default:
		}
	})

	client.WriteActivity("game.created", "", time.Now())
	client.Flush()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrWriteFailed) {
			t.Errorf("callback error = %v, want ErrWriteFailed", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for write error callback")
	}
}

func TestClose(t *testing.T) {
	client := connectFake(t, &fakeInflux{})

	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() after Close error = %v, want ErrNotConnected", err)
	}

	// Writes and flushes after close are dropped silently.
	client.WriteActivity("game.created", "", time.Now())
	client.Flush()

	if err := client.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestClose_Nil(t *testing.T) {
	var client *Client
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}
	if client.IsConnected() {
		t.Error("nil client should not report connected")
	}
}
