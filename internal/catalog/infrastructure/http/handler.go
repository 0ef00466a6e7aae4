package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/mve-platform/commerce-backend/internal/catalog/application"
	"github.com/mve-platform/commerce-backend/internal/catalog/domain"
	"github.com/mve-platform/commerce-backend/internal/errs"
	"github.com/mve-platform/commerce-backend/internal/httpx"
	"github.com/mve-platform/commerce-backend/internal/identity"
)

type Handler struct {
	log    *slog.Logger
	svc    *application.Service
	auth   func(http.Handler) http.Handler
	tracer trace.Tracer
}

func NewHandler(log *slog.Logger, svc *application.Service, auth func(http.Handler) http.Handler) *Handler {
	return &Handler{
		log:    log,
		svc:    svc,
		auth:   auth,
		tracer: otel.Tracer("catalog-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.remove)
	})
	return r
}

type productReq struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	PriceCents  *int64   `json:"price_cents"`
	Stock       *int     `json:"stock"`
	Category    string   `json:"category"`
	Images      []string `json:"images"`
}

type productResp struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	PriceCents  int64    `json:"price_cents"`
	Stock       int      `json:"stock"`
	Category    string   `json:"category"`
	VendorEmail string   `json:"vendor_email"`
	Images      []string `json:"images"`
}

func toResp(p domain.Product) productResp {
	return productResp{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		PriceCents:  p.PriceCents,
		Stock:       p.Stock,
		Category:    p.Category,
		VendorEmail: p.VendorEmail,
		Images:      p.Images,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListProducts")
	defer span.End()

	products, err := h.svc.ListProducts(ctx, r.URL.Query().Get("category"))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	out := make([]productResp, 0, len(products))
	for _, p := range products {
		out = append(out, toResp(p))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetProduct")
	defer span.End()

	p, err := h.svc.GetProduct(ctx, chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResp(p))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateProduct")
	defer span.End()

	id, ok := identity.FromContext(ctx)
	if !ok {
		httpx.WriteError(w, h.log, errs.ErrForbidden)
		return
	}

	var req productReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, h.log, errs.ErrInvalidInput)
		return
	}
	if req.PriceCents == nil || req.Stock == nil {
		httpx.WriteError(w, h.log, errs.ErrInvalidInput)
		return
	}

	p, err := h.svc.CreateProduct(ctx, id, req.Name, req.Description, req.Category, *req.PriceCents, *req.Stock, req.Images)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toResp(p))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateProduct")
	defer span.End()

	id, ok := identity.FromContext(ctx)
	if !ok {
		httpx.WriteError(w, h.log, errs.ErrForbidden)
		return
	}

	var req struct {
		Name        *string  `json:"name"`
		Description *string  `json:"description"`
		PriceCents  *int64   `json:"price_cents"`
		Stock       *int     `json:"stock"`
		Category    *string  `json:"category"`
		Images      []string `json:"images"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, h.log, errs.ErrInvalidInput)
		return
	}

	p, err := h.svc.UpdateProduct(ctx, id, chi.URLParam(r, "id"), domain.Update{
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Stock:       req.Stock,
		Category:    req.Category,
		Images:      req.Images,
	})
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResp(p))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "DeleteProduct")
	defer span.End()

	id, ok := identity.FromContext(ctx)
	if !ok {
		httpx.WriteError(w, h.log, errs.ErrForbidden)
		return
	}

	if err := h.svc.DeleteProduct(ctx, id, chi.URLParam(r, "id")); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "product deleted"})
}
