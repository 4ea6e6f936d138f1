package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"ledgerpos/backend/internal/domain"
	"ledgerpos/backend/internal/service"
)

type transactionWriter func(context.Context, domain.Transaction) (service.Outcome[domain.Transaction], error)

func (a *API) handleTransactionWrite(write transactionWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var tx domain.Transaction
		if err := decodeJSON(r, &tx); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		out, err := write(r.Context(), tx)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (a *API) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := service.TransactionFilter{
		Type:       domain.TransactionType(strings.ToUpper(q.Get("type"))),
		Status:     domain.TransactionStatus(strings.ToUpper(q.Get("status"))),
		CustomerID: q.Get("customerId"),
		VendorID:   q.Get("vendorId"),
		BranchID:   q.Get("branchId"),
		Limit:      parsePositiveLimit(q.Get("limit"), 100, 1000),
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": a.service.ListTransactions(r.Context(), filter),
	})
}

func (a *API) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := a.service.GetTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (a *API) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var tx domain.Transaction
	if err := decodeJSON(r, &tx); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	// The path names the record; a body id is ignored.
	tx.ID = chi.URLParam(r, "id")

	out, err := a.service.UpdateTransaction(r.Context(), tx)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	out, err := a.service.DeleteTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) handleCompleteDraft(w http.ResponseWriter, r *http.Request) {
	out, err := a.service.CompleteDraft(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) handleListPurchaseOrders(w http.ResponseWriter, r *http.Request) {
	status := domain.PurchaseOrderStatus(strings.ToUpper(r.URL.Query().Get("status")))
	writeJSON(w, http.StatusOK, map[string]any{
		"purchaseOrders": a.service.ListPurchaseOrders(r.Context(), status),
	})
}

func (a *API) handleSavePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	var po domain.PurchaseOrder
	if err := decodeJSON(r, &po); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	out, err := a.service.SavePurchaseOrder(r.Context(), po)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) handleSubmitPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	out, err := a.service.SubmitPurchaseOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) handleReceivePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	out, err := a.service.ReceivePurchaseOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) handleCloseAccount(w http.ResponseWriter, r *http.Request) {
	out, err := a.service.CloseAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
