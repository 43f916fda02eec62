// internal/app/features/health/handler.go
package health

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/membersonly/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Pinger is satisfied by *mongo.Client.
type Pinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

// SecretCounter reports how many join secrets are stored.
type SecretCounter interface {
	Count(ctx context.Context) (int64, error)
}

// Handler holds dependencies needed for health checks.
type Handler struct {
	DB      Pinger
	Secrets SecretCounter
	Log     *zap.Logger
}

// NewHandler constructs a health Handler. secrets may be nil.
func NewHandler(db Pinger, secrets SecretCounter, logger *zap.Logger) *Handler {
	return &Handler{
		DB:      db,
		Secrets: secrets,
		Log:     logger,
	}
}

// healthResponse is the JSON structure for the health check response.
type healthResponse struct {
	Status     string `json:"status"`
	Database   string `json:"database"`
	JoinSecret string `json:"join_secret,omitempty"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "join_secret":"configured" }
//
// On DB failure: 503 and
//
//	{ "status":"error", "message":"Database unavailable", "error":"…"}
//
// A missing join secret is reported but does not fail the check.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	resp := healthResponse{
		Status:   "ok",
		Database: "connected",
	}

	if err := h.DB.Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Message = "Database unavailable"
		resp.Error = err.Error()
		_ = json.NewEncoder(w).Encode(resp)
		return
	}

	if h.Secrets != nil {
		n, err := h.Secrets.Count(ctx)
		switch {
		case err != nil:
			h.Log.Warn("health-check: count secrets failed", zap.Error(err))
			resp.JoinSecret = "unknown"
		case n == 1:
			resp.JoinSecret = "configured"
		case n == 0:
			resp.JoinSecret = "missing"
		default:
			resp.JoinSecret = "ambiguous"
		}
	}

	_ = json.NewEncoder(w).Encode(resp)
}
