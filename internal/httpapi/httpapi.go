// Package httpapi implements the MFA provider's HTTP side-channel:
// /multifactor/create is the provider's callback endpoint, and
// /multifactor/connect drives an interactive challenge end-to-end over a
// WebSocket for callers that cannot receive a provider redirect directly.
// /multifactor/create resolves the internal/mfa.Queue entry that a blocked
// Bind (or a /multifactor/connect session) is waiting on;
// /multifactor/connect registers and awaits its own entry in that Queue.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/MultifactorLab/MultiDirectory/internal/mfa"
)

// Authenticator verifies a username/password pair against the directory
// and returns the authenticated entry's Directory ID, used as the MFA
// challenge's "uid" claim.
type Authenticator func(ctx context.Context, username, password string) (int64, error)

// Server exposes the MFA callback surface as a stdlib net/http server.
// gorilla/websocket upgrades an *http.Request directly, and session's own
// listener is already plain net-based, so there is no router-level
// dependency beyond net/http.ServeMux here (see SPEC_FULL.md for why a
// fasthttp-based router was left unwired).
type Server struct {
	MFA          *mfa.Service
	Authenticate Authenticator
	CallbackURL  string // base URL the provider redirects/POSTs back to
	Logger       zerolog.Logger

	upgrader websocket.Upgrader
}

// New builds a Server ready to be mounted via Handler.
func New(svc *mfa.Service, authenticate Authenticator, callbackURL string, logger zerolog.Logger) *Server {
	return &Server{
		MFA:          svc,
		Authenticate: authenticate,
		CallbackURL:  callbackURL,
		Logger:       logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The provider and the directory's admin UI are the only
			// expected callers, both configured out-of-band; CheckOrigin
			// is relaxed to accept either.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the mux routing both endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/multifactor/create", s.handleCreate)
	mux.HandleFunc("/multifactor/connect", s.handleConnect)
	return mux
}

// handleCreate is the provider's callback endpoint. The posted accessToken
// is itself the callback JWT; its subject claim names the UPN whose
// Challenge is waiting in the queue, so there is no separate upn field to
// trust.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	accessToken := r.FormValue("accessToken")
	if accessToken == "" {
		http.Error(w, "accessToken is required", http.StatusBadRequest)
		return
	}

	upn, err := mfa.ValidateCallback(accessToken, s.MFA.Key, s.MFA.Secret)
	if err != nil {
		http.Error(w, "invalid access token", http.StatusBadRequest)
		return
	}

	resolved := s.MFA.Resolve(upn, accessToken)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"resolved": resolved})
}

type wsFrame struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type wsCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleConnect drives the interactive challenge state machine: announce
// readiness, collect credentials, open the provider challenge, relay its
// URL, then block for the callback and report the outcome. Any deviation
// from that sequence closes the socket with the code the caller can act on.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("mfa websocket upgrade failed")
		return
	}
	defer conn.Close()

	if err := conn.WriteJSON(wsFrame{Status: "connected"}); err != nil {
		return
	}

	var creds wsCredentials
	if err := conn.ReadJSON(&creds); err != nil {
		closeWith(conn, websocket.CloseInvalidFramePayloadData, "invalid payload")
		return
	}
	if creds.Username == "" || creds.Password == "" {
		closeWith(conn, websocket.CloseInvalidFramePayloadData, "username and password are required")
		return
	}

	ctx := r.Context()
	directoryID, err := s.Authenticate(ctx, creds.Username, creds.Password)
	if err != nil {
		closeWith(conn, websocket.CloseProtocolError, "authentication failed")
		return
	}

	url, err := s.MFA.Client.CreateChallenge(ctx, creds.Username, s.CallbackURL, directoryID)
	if err != nil {
		closeWith(conn, websocket.CloseProtocolError, "challenge creation failed")
		return
	}
	if err := conn.WriteJSON(wsFrame{Status: "pending", Message: url}); err != nil {
		return
	}

	token, err := s.MFA.Queue.Await(ctx, creds.Username)
	if err != nil {
		closeWith(conn, websocket.CloseTryAgainLater, "challenge timed out")
		return
	}
	subject, err := mfa.ValidateCallback(token, s.MFA.Key, s.MFA.Secret)
	if err != nil || subject != creds.Username {
		closeWith(conn, websocket.CloseProtocolError, "callback did not match")
		return
	}

	if err := conn.WriteJSON(wsFrame{Status: "success", Message: token}); err != nil {
		return
	}
	closeWith(conn, websocket.CloseNormalClosure, "")
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
}
