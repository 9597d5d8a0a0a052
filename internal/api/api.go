// Package api exposes the custody service over HTTP: JSON request/response
// bodies, header-borne credentials, and the internal error taxonomy mapped
// onto status codes.
package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/luxfi/kms/internal/custody"
)

const (
	headerMasterKey = "x-master-key"
	headerSecretKey = "x-secret-key"
)

// Server wires the custody service into a chi router.
type Server struct {
	custody *custody.Service
	log     *zap.Logger
}

// NewRouter builds the complete HTTP handler: CORS, request logging, and
// every route the service exposes. corsOrigin, if non-empty, is allowed in
// addition to any http://localhost origin, which is always allowed
// regardless of configuration.
func NewRouter(svc *custody.Service, log *zap.Logger, corsOrigin string) http.Handler {
	s := &Server{custody: svc, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc: func(r *http.Request, origin string) bool {
			if strings.HasPrefix(origin, "http://localhost") {
				return true
			}
			return corsOrigin != "" && origin == corsOrigin
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization", headerMasterKey, headerSecretKey},
		MaxAge:           3600,
		AllowCredentials: false,
	}))

	r.Get("/", s.handleHealthcheck)

	r.Route("/api", func(r chi.Router) {
		r.Post("/users", s.handleCreateUser)
		r.Post("/keys/generate", s.handleGenerate)
		r.Post("/keys/grant", s.handleGrant)
		r.Post("/keys/revoke", s.handleRevoke)
		r.Post("/sign_message", s.handleSignMessage)
		r.Get("/logs/{id}", s.handleGetLogs)
	})

	return r
}

// requestLogger builds a request-scoped child logger carrying request_id
// and attaches it to the request's context, so every custody operation the
// handler triggers logs against it instead of the Service's bare logger.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqLog := s.log.With(zap.String("request_id", middleware.GetReqID(r.Context())))
		reqLog.Debug("handling request", zap.String("method", r.Method), zap.String("path", r.URL.Path))
		next.ServeHTTP(w, r.WithContext(custody.ContextWithLogger(r.Context(), reqLog)))
	})
}

func (s *Server) handleHealthcheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type createUserResponse struct {
	Secret string `json:"secret"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	secret, err := s.custody.CreateUser(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, createUserResponse{Secret: secret})
}

type keysGenerateResponse struct {
	Key string    `json:"key"`
	ID  uuid.UUID `json:"id"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	masterKey := r.Header.Get(headerMasterKey)
	if masterKey == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	result, err := s.custody.Generate(r.Context(), masterKey)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, keysGenerateResponse{Key: result.Key, ID: result.ShareID})
}

func (s *Server) handleGrant(w http.ResponseWriter, r *http.Request) {
	masterKey := r.Header.Get(headerMasterKey)
	secretKey := r.Header.Get(headerSecretKey)
	if masterKey == "" || secretKey == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	result, err := s.custody.Grant(r.Context(), masterKey, secretKey)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, keysGenerateResponse{Key: result.Key, ID: result.ShareID})
}

type revokeRequest struct {
	ID uuid.UUID `json:"id"`
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	masterKey := r.Header.Get(headerMasterKey)
	if masterKey == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var body revokeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := s.custody.Revoke(r.Context(), masterKey, body.ID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type signMessageRequest struct {
	Message string `json:"message"`
}

type signMessageResponse struct {
	Signature string `json:"signature"`
}

func (s *Server) handleSignMessage(w http.ResponseWriter, r *http.Request) {
	secretKey := r.Header.Get(headerSecretKey)
	if secretKey == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid secret key"})
		return
	}

	var body signMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	signature, err := s.custody.SignMessage(r.Context(), secretKey, body.Message)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, signMessageResponse{Signature: signature})
}

func (s *Server) handleGetLogs(w http.ResponseWriter, r *http.Request) {
	masterKey := r.Header.Get(headerMasterKey)
	if masterKey == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	keyID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	logs, err := s.custody.Logs(r.Context(), masterKey, keyID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps a custody.Error's Kind onto the HTTP contract in
// spec.md §6/§7: user-credential misses and ownership violations are 401,
// share/key id misses are 404, a revoked share is 400, and every other
// internal failure (storage, corrupted stored values, plain database
// errors) is 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	ce, ok := custody.As(err)
	if !ok {
		s.log.Error("unclassified custody error", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	switch ce.Kind {
	case custody.KindUnauthorized:
		w.WriteHeader(http.StatusUnauthorized)
	case custody.KindNotFound:
		w.WriteHeader(http.StatusNotFound)
	case custody.KindRevoked:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Key revoked"})
	case custody.KindDecodeError:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid secret key"})
	default:
		s.log.Error("custody operation failed", zap.String("kind", string(ce.Kind)), zap.Error(ce.Err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}
