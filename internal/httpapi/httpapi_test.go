package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/MultifactorLab/MultiDirectory/internal/mfa"
)

func signedCallback(t *testing.T, upn, key, secret string) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:  upn,
		Audience: jwt.ClaimStrings{key},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestHandleCreateResolvesPendingChallenge(t *testing.T) {
	svc := mfa.NewService("http://provider.invalid", "key", "secret", 5)
	srv := New(svc, nil, "", zerolog.Nop())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := svc.Queue.Await(context.Background(), "jane@example.org")
		require.NoError(t, err)
	}()
	time.Sleep(10 * time.Millisecond) // let Await register before the callback lands

	accessToken := signedCallback(t, "jane@example.org", "key", "secret")
	resp, err := http.PostForm(ts.URL+"/multifactor/create", url.Values{"accessToken": {accessToken}})
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Await never observed the callback")
	}
}

func TestHandleCreateRejectsMissingField(t *testing.T) {
	svc := mfa.NewService("http://provider.invalid", "key", "secret", 5)
	srv := New(svc, nil, "", zerolog.Nop())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.PostForm(ts.URL+"/multifactor/create", url.Values{})
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleCreateRejectsBadToken(t *testing.T) {
	svc := mfa.NewService("http://provider.invalid", "key", "secret", 5)
	srv := New(svc, nil, "", zerolog.Nop())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.PostForm(ts.URL+"/multifactor/create", url.Values{"accessToken": {"garbage"}})
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleConnectFullFlow(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/requests", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"model": map[string]string{"url": "https://provider.invalid/challenge/abc"},
		})
	}))
	defer provider.Close()

	svc := mfa.NewService(provider.URL, "key", "secret", 5)
	authenticate := func(ctx context.Context, username, password string) (int64, error) {
		if username == "jane@example.org" && password == "hunter2" {
			return 42, nil
		}
		return 0, context.Canceled
	}
	srv := New(svc, authenticate, "https://directory.invalid/multifactor/create", zerolog.Nop())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/multifactor/connect"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var connected wsFrame
	require.NoError(t, conn.ReadJSON(&connected))
	require.Equal(t, "connected", connected.Status)

	require.NoError(t, conn.WriteJSON(wsCredentials{Username: "jane@example.org", Password: "hunter2"}))

	var pending wsFrame
	require.NoError(t, conn.ReadJSON(&pending))
	require.Equal(t, "pending", pending.Status)
	require.Equal(t, "https://provider.invalid/challenge/abc", pending.Message)

	accessToken := signedCallback(t, "jane@example.org", "key", "secret")
	resolved := svc.Resolve("jane@example.org", accessToken)
	require.True(t, resolved)

	var success wsFrame
	require.NoError(t, conn.ReadJSON(&success))
	require.Equal(t, "success", success.Status)
	require.Equal(t, accessToken, success.Message)
}

func TestHandleConnectInvalidPayloadCloses(t *testing.T) {
	svc := mfa.NewService("http://provider.invalid", "key", "secret", 5)
	srv := New(svc, nil, "", zerolog.Nop())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/multifactor/connect"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var connected wsFrame
	require.NoError(t, conn.ReadJSON(&connected))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	_, _, err = conn.ReadMessage()
	closeErr, ok := err.(*websocket.CloseError)
	require.True(t, ok)
	require.Equal(t, websocket.CloseInvalidFramePayloadData, closeErr.Code)
}

func TestHandleConnectAuthFailureCloses(t *testing.T) {
	svc := mfa.NewService("http://provider.invalid", "key", "secret", 5)
	authenticate := func(ctx context.Context, username, password string) (int64, error) {
		return 0, context.Canceled
	}
	srv := New(svc, authenticate, "https://directory.invalid/multifactor/create", zerolog.Nop())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/multifactor/connect"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var connected wsFrame
	require.NoError(t, conn.ReadJSON(&connected))
	require.NoError(t, conn.WriteJSON(wsCredentials{Username: "jane@example.org", Password: "wrong"}))

	_, _, err = conn.ReadMessage()
	closeErr, ok := err.(*websocket.CloseError)
	require.True(t, ok)
	require.Equal(t, websocket.CloseProtocolError, closeErr.Code)
}
