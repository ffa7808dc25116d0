package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/safety-monitor/internal/domain/safety"
	"github.com/oshokin/safety-monitor/internal/version"
)

func TestHTTPSender(t *testing.T) {
	t.Parallel()

	var received safety.Alert

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != AlertPath || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusNotFound)

			return
		}

		if r.Header.Get("Authorization") != "Bearer secret" || r.Header.Get("User-Agent") != version.UserAgent() {
			w.WriteHeader(http.StatusUnauthorized)

			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil || json.Unmarshal(body, &received) != nil {
			w.WriteHeader(http.StatusBadRequest)

			return
		}

		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(server.Close)

	sender := NewHTTPSender(HTTPConfig{BaseURL: server.URL, Token: "secret"})
	require.Equal(t, "http", sender.Name())
	require.NoError(t, sender.Send(context.Background(), testAlert()))
	require.Equal(t, *testAlert(), received)

	unauthorized := NewHTTPSender(HTTPConfig{BaseURL: server.URL})
	require.ErrorIs(t, unauthorized.Send(context.Background(), testAlert()), ErrUnexpectedStatus)
}

func TestHTTPSender_ServerDown(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	err := NewHTTPSender(HTTPConfig{BaseURL: url}).Send(context.Background(), testAlert())
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrUnexpectedStatus)
}

func TestRedisSender(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
	})

	sender := NewRedisSender(client, RedisConfig{MaxLen: 100})
	require.Equal(t, "redis", sender.Name())

	ctx := context.Background()
	require.NoError(t, sender.Send(ctx, testAlert()))

	messages, err := client.XRange(ctx, DefaultStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, messages, 1)

	values := messages[0].Values
	require.Equal(t, "evt-1", values["event_id"])
	require.Equal(t, "PANIC", values["event_code"])
	require.Equal(t, "HIGH", values["severity"])

	var decoded safety.Alert
	require.NoError(t, json.Unmarshal([]byte(values["data"].(string)), &decoded))
	require.Equal(t, *testAlert(), decoded)
}

func TestRedisSender_Unavailable(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})

	t.Cleanup(func() {
		_ = client.Close()
	})

	mr.Close()

	err := NewRedisSender(client, RedisConfig{Stream: "custom"}).Send(context.Background(), testAlert())
	require.Error(t, err)
	require.Contains(t, err.Error(), "custom")
}

type fakeAlertClient struct {
	alerts []*safety.Alert
	err    error
}

func (f *fakeAlertClient) Dispatch(_ context.Context, alert *safety.Alert) error {
	f.alerts = append(f.alerts, alert)

	return f.err
}

func TestGRPCSender(t *testing.T) {
	t.Parallel()

	client := new(fakeAlertClient)
	sender := NewGRPCSender(client)

	require.Equal(t, "grpc", sender.Name())
	require.NoError(t, sender.Send(context.Background(), testAlert()))
	require.Len(t, client.alerts, 1)

	client.err = errors.New("unavailable")
	require.Error(t, sender.Send(context.Background(), testAlert()))
}
