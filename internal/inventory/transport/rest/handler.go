// Package rest provides HTTP handlers for inventory operations.
package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	inverrors "github.com/abgdnv/inventory/internal/inventory/errors"
	"github.com/abgdnv/inventory/internal/inventory/service"
	"github.com/abgdnv/inventory/internal/platform/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	service  service.InventoryService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a new Handler with the provided service.
func NewHandler(service service.InventoryService, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes for the inventory.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.FindAll)
			r.Post("/", h.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.FindByID)
				r.Patch("/", h.Update)
				r.Delete("/", h.DeleteByID)
				r.Put("/quantity", h.SetQuantity)
				r.Post("/quantity/adjust", h.AdjustQuantity)
			})
		})

		r.Get("/barcodes/{barcode}", h.FindByBarcode)
		r.Get("/sample-barcode", h.SampleBarcode)
		r.Post("/scans", h.Scan)

		r.Route("/view", func(r chi.Router) {
			r.Get("/", h.View)
			r.Put("/search", h.SetSearchQuery)
			r.Put("/sort", h.SetSort)
			r.Post("/sort/{field}/toggle", h.ToggleSort)
		})

		r.Post("/samples", h.SeedSamples)
	})

	r.Get("/healthz", h.HealthCheck)
}

// FindAll retrieves all products in list order.
func (h *Handler) FindAll(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.FindAll(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Error retrieving product list", "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, "Failed to fetch products")
		return
	}
	h.logger.DebugContext(r.Context(), "Successfully retrieved product list", "count", len(list))
	web.RespondJSON(w, h.logger, http.StatusOK, list)
}

// FindByID retrieves a product by its ID.
func (h *Handler) FindByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	found, err := h.service.FindByID(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, err, fmt.Sprintf("Product with ID %s not found", id))
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, found)
}

// Create handles the creation of a new product.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var dto service.ProductCreateDto
	if !h.decodeValid(w, r, &dto) {
		return
	}
	created, err := h.service.Create(r.Context(), dto)
	if err != nil {
		h.respondServiceError(w, r, err, "")
		return
	}
	h.logger.InfoContext(r.Context(), "Product created successfully", "ID", created.ID, "Name", created.Name)
	web.RespondJSON(w, h.logger, http.StatusCreated, created)
}

// Update applies a partial update to a product.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var dto service.ProductUpdateDto
	if !h.decodeValid(w, r, &dto) {
		return
	}
	updated, err := h.service.Update(r.Context(), id, dto)
	if err != nil {
		h.respondServiceError(w, r, err, fmt.Sprintf("Product with ID %s not found", id))
		return
	}
	h.logger.InfoContext(r.Context(), "Product updated successfully", "ID", updated.ID, "Name", updated.Name)
	web.RespondJSON(w, h.logger, http.StatusOK, updated)
}

// SetQuantity replaces the quantity of a product.
func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var dto service.QuantityDto
	if !h.decodeValid(w, r, &dto) {
		return
	}
	updated, err := h.service.SetQuantity(r.Context(), id, *dto.Quantity)
	if err != nil {
		h.respondServiceError(w, r, err, fmt.Sprintf("Product with ID %s not found", id))
		return
	}
	h.logger.InfoContext(r.Context(), "Quantity updated", "ID", updated.ID, "Quantity", updated.Quantity)
	web.RespondJSON(w, h.logger, http.StatusOK, updated)
}

// AdjustQuantity adds a delta to the quantity of a product.
func (h *Handler) AdjustQuantity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var dto service.AdjustDto
	if !h.decodeValid(w, r, &dto) {
		return
	}
	updated, err := h.service.AdjustQuantity(r.Context(), id, dto.Delta)
	if err != nil {
		h.respondServiceError(w, r, err, fmt.Sprintf("Product with ID %s not found", id))
		return
	}
	h.logger.InfoContext(r.Context(), "Quantity adjusted", "ID", updated.ID, "Delta", dto.Delta, "Quantity", updated.Quantity)
	web.RespondJSON(w, h.logger, http.StatusOK, updated)
}

// DeleteByID deletes a product by its ID.
func (h *Handler) DeleteByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.DeleteByID(r.Context(), id); err != nil {
		h.respondServiceError(w, r, err, fmt.Sprintf("Product with ID %s not found", id))
		return
	}
	h.logger.InfoContext(r.Context(), "Product deleted successfully", "ID", id)
	w.WriteHeader(http.StatusNoContent)
}

// FindByBarcode retrieves the product carrying a barcode.
func (h *Handler) FindByBarcode(w http.ResponseWriter, r *http.Request) {
	barcode := chi.URLParam(r, "barcode")
	found, err := h.service.FindByBarcode(r.Context(), barcode)
	if err != nil {
		h.respondServiceError(w, r, err, fmt.Sprintf("Product with barcode %s not found", barcode))
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, found)
}

// SampleBarcode returns a generated barcode for manual entry.
func (h *Handler) SampleBarcode(w http.ResponseWriter, r *http.Request) {
	web.RespondJSON(w, h.logger, http.StatusOK, map[string]string{"barcode": h.service.SampleBarcode(r.Context())})
}

// Scan resolves a scanned barcode.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	var dto service.ScanDto
	if !h.decodeValid(w, r, &dto) {
		return
	}
	result, err := h.service.Scan(r.Context(), dto)
	if err != nil {
		h.respondServiceError(w, r, err, "")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, result)
}

// View returns the filtered and sorted list.
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.View(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err, "")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, state)
}

// SetSearchQuery sets the view filter.
func (h *Handler) SetSearchQuery(w http.ResponseWriter, r *http.Request) {
	var dto service.SearchDto
	if !h.decodeValid(w, r, &dto) {
		return
	}
	state, err := h.service.SetSearchQuery(r.Context(), dto.Query)
	if err != nil {
		h.respondServiceError(w, r, err, "")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, state)
}

// SetSort sets the view ordering.
func (h *Handler) SetSort(w http.ResponseWriter, r *http.Request) {
	var dto service.SortDto
	if !h.decodeValid(w, r, &dto) {
		return
	}
	state, err := h.service.SetSort(r.Context(), dto)
	if err != nil {
		h.respondServiceError(w, r, err, "")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, state)
}

// ToggleSort flips or switches the view ordering.
func (h *Handler) ToggleSort(w http.ResponseWriter, r *http.Request) {
	field := chi.URLParam(r, "field")
	if err := h.validate.Var(field, "oneof=name quantity updatedAt"); err != nil {
		web.RespondJSON(w, h.logger, http.StatusBadRequest,
			map[string]any{"validation_errors": map[string]string{"field": "failed on rule: oneof"}})
		return
	}
	state, err := h.service.ToggleSort(r.Context(), field)
	if err != nil {
		h.respondServiceError(w, r, err, "")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, state)
}

// SeedSamples adds the sample products to an empty inventory.
func (h *Handler) SeedSamples(w http.ResponseWriter, r *http.Request) {
	added, err := h.service.SeedSamples(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err, "")
		return
	}
	status := http.StatusCreated
	if len(added) == 0 {
		status = http.StatusOK
	}
	web.RespondJSON(w, h.logger, status, added)
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// decodeValid decodes the JSON body into dst and validates it.
// On failure the response has already been written and false is returned.
func (h *Handler) decodeValid(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.WarnContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			errorResponse := make(map[string]string)
			for _, fieldErr := range validationErrors {
				errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
			}
			h.logger.WarnContext(r.Context(), "Validation errors occurred", "errors", errorResponse)
			web.RespondJSON(w, h.logger, http.StatusBadRequest, map[string]any{"validation_errors": errorResponse})
			return false
		}
		h.logger.ErrorContext(r.Context(), "Error validating request body", "error", err)
		web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// respondServiceError maps service errors to HTTP statuses.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error, notFoundMsg string) {
	switch {
	case errors.Is(err, inverrors.ErrProductNotFound):
		h.logger.WarnContext(r.Context(), "Product not found", "error", err)
		if notFoundMsg == "" {
			notFoundMsg = "Product not found"
		}
		web.RespondError(w, h.logger, http.StatusNotFound, notFoundMsg)
	case errors.Is(err, inverrors.ErrInvalidProduct):
		h.logger.WarnContext(r.Context(), "Invalid product", "error", err)
		web.RespondError(w, h.logger, http.StatusBadRequest, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "Request failed", "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, "Internal server error")
	}
}
