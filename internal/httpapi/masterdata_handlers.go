package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ledgerpos/backend/internal/service"
)

// saveHandler decodes a record of type T and passes it to save.
func saveHandler[T any](a *API, save func(context.Context, T) (service.Outcome[T], error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var record T
		if err := decodeJSON(r, &record); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		out, err := save(r.Context(), record)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (a *API) handleSaveProduct(w http.ResponseWriter, r *http.Request) {
	saveHandler(a, a.service.SaveProduct)(w, r)
}

func (a *API) handleSaveCategory(w http.ResponseWriter, r *http.Request) {
	saveHandler(a, a.service.SaveCategory)(w, r)
}

func (a *API) handleSaveCustomer(w http.ResponseWriter, r *http.Request) {
	saveHandler(a, a.service.SaveCustomer)(w, r)
}

func (a *API) handleSaveVendor(w http.ResponseWriter, r *http.Request) {
	saveHandler(a, a.service.SaveVendor)(w, r)
}

func (a *API) handleSaveAccount(w http.ResponseWriter, r *http.Request) {
	saveHandler(a, a.service.SaveAccount)(w, r)
}

func (a *API) handleAssignCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CategoryID string `json:"categoryId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	out, err := a.service.AssignCategory(r.Context(), chi.URLParam(r, "id"), req.CategoryID)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := a.service.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (a *API) handleListProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"products": a.service.ListProducts(r.Context())})
}

func (a *API) handleListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"categories": a.service.ListCategories(r.Context())})
}

func (a *API) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"customers": a.service.ListCustomers(r.Context())})
}

func (a *API) handleListVendors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"vendors": a.service.ListVendors(r.Context())})
}

func (a *API) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"accounts": a.service.ListAccounts(r.Context())})
}
