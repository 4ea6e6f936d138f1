package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ledgerpos/backend/internal/domain"
	"ledgerpos/backend/internal/engine"
	"ledgerpos/backend/internal/observability"
	"ledgerpos/backend/internal/service"
	"ledgerpos/backend/internal/snapshot"
	"ledgerpos/backend/internal/store"
	"ledgerpos/backend/internal/uow"
)

// ActorHeader names the operator recorded in audit logs for a request.
const (
	ActorHeader     = "X-Actor"
	ActorRoleHeader = "X-Actor-Role"
)

type API struct {
	service       *service.Service
	logger        *zap.Logger
	metrics       *observability.Metrics
	allowedOrigin string
}

func New(svc *service.Service, logger *zap.Logger, metrics *observability.Metrics, allowedOrigin string) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{
		service:       svc,
		logger:        logger,
		metrics:       metrics,
		allowedOrigin: allowedOrigin,
	}
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.RequestLogger(a.logger))
	r.Use(middleware.Recoverer)
	r.Use(a.withHeaders)
	r.Use(withActor)

	r.Get("/healthz", a.handleHealth)
	r.Handle("/metrics", a.metricsHandler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/summary", a.handleSummary)
		r.Get("/audit-logs", a.handleAuditLogs)

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", a.handleListTransactions)
			r.Post("/sales", a.handleTransactionWrite(a.service.CompleteSale))
			r.Post("/drafts", a.handleTransactionWrite(a.service.SaveDraft))
			r.Post("/customer-payments", a.handleTransactionWrite(a.service.RecordCustomerPayment))
			r.Post("/vendor-payments", a.handleTransactionWrite(a.service.RecordVendorPayment))
			r.Post("/expenses", a.handleTransactionWrite(a.service.RecordExpense))
			r.Post("/transfers", a.handleTransactionWrite(a.service.RecordTransfer))
			r.Get("/{id}", a.handleGetTransaction)
			r.Put("/{id}", a.handleUpdateTransaction)
			r.Delete("/{id}", a.handleDeleteTransaction)
			r.Post("/{id}/complete", a.handleCompleteDraft)
		})

		r.Route("/purchase-orders", func(r chi.Router) {
			r.Get("/", a.handleListPurchaseOrders)
			r.Post("/", a.handleSavePurchaseOrder)
			r.Post("/{id}/submit", a.handleSubmitPurchaseOrder)
			r.Post("/{id}/receive", a.handleReceivePurchaseOrder)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", a.handleListProducts)
			r.Post("/", a.handleSaveProduct)
			r.Get("/{id}", a.handleGetProduct)
			r.Put("/{id}/category", a.handleAssignCategory)
		})

		r.Get("/categories", a.handleListCategories)
		r.Post("/categories", a.handleSaveCategory)
		r.Get("/customers", a.handleListCustomers)
		r.Post("/customers", a.handleSaveCustomer)
		r.Get("/vendors", a.handleListVendors)
		r.Post("/vendors", a.handleSaveVendor)
		r.Get("/accounts", a.handleListAccounts)
		r.Post("/accounts", a.handleSaveAccount)
		r.Post("/accounts/{id}/close", a.handleCloseAccount)
	})

	return r
}

func (a *API) metricsHandler() http.Handler {
	if a.metrics == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(a.metrics.Registry, promhttp.HandlerOpts{})
}

func (a *API) withHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+ActorHeader+", "+ActorRoleHeader)
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func withActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username := strings.TrimSpace(r.Header.Get(ActorHeader))
		if username == "" {
			next.ServeHTTP(w, r)
			return
		}
		actor := domain.Actor{Username: username, Role: strings.TrimSpace(r.Header.Get(ActorRoleHeader))}
		next.ServeHTTP(w, r.WithContext(service.WithActor(r.Context(), actor)))
	})
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.service.Summary(r.Context()))
}

func (a *API) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 100, 500)
	logs, err := a.service.ListAuditLogs(r.Context(), limit)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"auditLogs": logs})
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var partial *uow.PartialFailureError
	switch {
	case errors.As(err, &partial):
		return http.StatusBadGateway
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalidTransaction), errors.Is(err, store.ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, snapshot.ErrStale):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)

	var partial *uow.PartialFailureError
	if errors.As(err, &partial) {
		msg := "operation partially applied"
		if !partial.Partial() {
			msg = "operation failed, nothing applied"
		}
		a.logger.Error(msg,
			zap.String("operation", partial.Result.Operation),
			zap.Error(err))
		writeJSON(w, status, map[string]any{
			"error":  msg,
			"result": partial.Result,
		})
		return
	}
	if status >= 500 {
		a.logger.Error("internal error", zap.Int("status", status), zap.Error(err))
	}
	writeError(w, status, err)
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx bodies stay generic; the cause is logged by the caller.
	msg := err.Error()
	if status >= 500 {
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
