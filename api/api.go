// Package api serves login, data migration and health endpoints.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/erikbos/moontv-server/backup"
	"github.com/erikbos/moontv-server/database"
)

const defaultTokenTTL = 24 * time.Hour

type Options struct {
	Db     *database.Manager
	Backup *backup.Service
	// JWTSecret signs login tokens
	JWTSecret string
	// TokenTTL is the lifetime of login tokens, defaults to 24 hours
	TokenTTL time.Duration
	// MaxUploadSize is the largest accepted backup upload in bytes
	MaxUploadSize int64
	Logger        *zap.Logger
}

type API struct {
	db            *database.Manager
	backup        *backup.Service
	secret        []byte
	tokenTTL      time.Duration
	maxUploadSize int64
	logger        *zap.Logger
}

func New(o *Options) *API {
	a := &API{
		db:            o.Db,
		backup:        o.Backup,
		secret:        []byte(o.JWTSecret),
		tokenTTL:      o.TokenTTL,
		maxUploadSize: o.MaxUploadSize,
		logger:        o.Logger,
	}
	if a.tokenTTL == 0 {
		a.tokenTTL = defaultTokenTTL
	}
	if a.maxUploadSize == 0 {
		a.maxUploadSize = 256 << 20
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	return a
}

func (a *API) RegisterHandlers(r *mux.Router) {
	compress := func(handler http.HandlerFunc) http.Handler {
		return handlers.CompressHandler(handler)
	}

	r.Handle("/health", http.HandlerFunc(a.healthHandler)).Methods("GET")
	r.Handle("/api/login", compress(a.loginHandler)).Methods("POST")

	r.Handle("/api/admin/data_migration/export", compress(a.exportHandler)).Methods("POST")
	r.Handle("/api/admin/data_migration/import", compress(a.importHandler)).Methods("POST")
	r.Handle("/api/admin/data/clear", http.HandlerFunc(a.clearHandler)).Methods("POST")
}

// GET /health
func (a *API) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := struct {
		Status  string `json:"status"`
		Storage string `json:"storage"`
	}{
		Status:  "ok",
		Storage: string(a.db.Kind()),
	}
	if err := a.db.Ping(r.Context()); err != nil {
		response.Status = "unavailable"
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	serveJSON(response, w)
}

func serveJSON(obj any, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(obj)
}
