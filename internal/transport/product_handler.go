package transport

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"stockboard/internal/domain"
	"stockboard/internal/middleware"
	"stockboard/internal/report"
	"stockboard/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// DecrementRequest is the stock adjustment payload.
type DecrementRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// ProductHandler serves the catalog, stock and low-stock routes.
type ProductHandler struct {
	catalog service.CatalogService
	stock   service.StockService
	logger  *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(catalog service.CatalogService, stock service.StockService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		stock:   stock,
		logger:  logger,
	}
}

// RegisterRoutes mounts the product routes. Writes go through limit.
func (h *ProductHandler) RegisterRoutes(r chi.Router, limit func(http.Handler) http.Handler) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(limit)
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
			r.Post("/{id}/decrement", h.Decrement)
		})
	})

	r.Get("/api/categories", h.Categories)

	r.Route("/api/alerts", func(r chi.Router) {
		r.Get("/low-stock", h.LowStock)
		r.Get("/low-stock.xlsx", h.LowStockWorkbook)
	})
}

// List returns the whole catalog in store order.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.List(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, "Failed to list products", err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newProductResponses(products))
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithServiceError(w, h.logger, "Failed to get product", err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newProductResponse(product))
}

// Create saves a new product from the editor form.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.decodeForm(w, r)
	if !ok {
		return
	}
	defer sub.Close()

	product, err := h.catalog.Create(r.Context(), sub.form, sub.uploads)
	if err != nil {
		respondWithServiceError(w, h.logger, "Failed to create product", err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, newProductResponse(product))
}

// Update overwrites the form fields of an existing product.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.decodeForm(w, r)
	if !ok {
		return
	}
	defer sub.Close()

	product, err := h.catalog.Update(r.Context(), chi.URLParam(r, "id"), sub.form, sub.uploads)
	if err != nil {
		respondWithServiceError(w, h.logger, "Failed to update product", err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newProductResponse(product))
}

// Delete removes a product. Deleting a missing product succeeds.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondWithServiceError(w, h.logger, "Failed to delete product", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Decrement takes quantity units out of stock and returns the product.
func (h *ProductHandler) Decrement(w http.ResponseWriter, r *http.Request) {
	var req DecrementRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		respondWithDecodeError(w, h.logger, err)
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.stock.DecrementStock(r.Context(), id, *req.Quantity); err != nil {
		respondWithServiceError(w, h.logger, "Failed to decrement stock", err)
		return
	}

	product, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, h.logger, "Failed to reload product", err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newProductResponse(product))
}

// Categories lists the selectable categories in display order.
func (h *ProductHandler) Categories(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithJSON(w, http.StatusOK, domain.CategoryOptions())
}

// LowStock returns the flagged products grouped by category.
func (h *ProductHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	groups, err := h.catalog.LowStock(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, "Failed to build low-stock report", err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newLowStockResponse(groups))
}

// LowStockWorkbook returns the low-stock report as a spreadsheet download.
func (h *ProductHandler) LowStockWorkbook(w http.ResponseWriter, r *http.Request) {
	groups, err := h.catalog.LowStock(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, "Failed to build low-stock report", err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteLowStock(&buf, groups); err != nil {
		respondWithServiceError(w, h.logger, "Failed to render low-stock workbook", err)
		return
	}

	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="low-stock.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *ProductHandler) decodeForm(w http.ResponseWriter, r *http.Request) (*productSubmission, bool) {
	sub, err := decodeProductForm(w, r)
	if err == nil {
		return sub, true
	}

	h.logger.Debug("Product form rejected", zap.Error(err))
	if errors.Is(err, errMalformedForm) {
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
	return nil, false
}
