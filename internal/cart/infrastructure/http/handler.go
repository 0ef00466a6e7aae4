package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/mve-platform/commerce-backend/internal/cart/application"
	"github.com/mve-platform/commerce-backend/internal/cart/domain"
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
		tracer: otel.Tracer("cart-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(h.auth)
	r.Get("/", h.read)
	r.Post("/", h.addOrSet)
	r.Put("/", h.setQuantity)
	r.Delete("/", h.remove)
	return r
}

type itemReq struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type cartResp struct {
	UserEmail string     `json:"user_email"`
	Items     []itemResp `json:"items"`
	Dropped   int        `json:"dropped_items"`
}

type itemResp struct {
	ProductID  string   `json:"product_id"`
	Quantity   int      `json:"quantity"`
	Name       string   `json:"name"`
	PriceCents int64    `json:"price_cents"`
	Stock      int      `json:"stock"`
	Images     []string `json:"images"`
}

func toResp(v domain.View) cartResp {
	items := make([]itemResp, 0, len(v.Items))
	for _, it := range v.Items {
		items = append(items, itemResp{
			ProductID:  it.ProductID,
			Quantity:   it.Quantity,
			Name:       it.Name,
			PriceCents: it.PriceCents,
			Stock:      it.Stock,
			Images:     it.Images,
		})
	}
	return cartResp{UserEmail: v.UserEmail, Items: items, Dropped: v.Dropped}
}

func (h *Handler) read(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ReadCart")
	defer span.End()

	id, ok := identity.FromContext(ctx)
	if !ok {
		httpx.WriteError(w, h.log, errs.ErrForbidden)
		return
	}
	view, err := h.svc.ReadCart(ctx, id.Email)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResp(view))
}

func (h *Handler) addOrSet(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AddOrSetItem")
	defer span.End()
	h.mutate(ctx, w, r, h.svc.AddOrSetItem)
}

func (h *Handler) setQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SetItemQuantity")
	defer span.End()
	h.mutate(ctx, w, r, h.svc.SetItemQuantity)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "RemoveItem")
	defer span.End()

	id, ok := identity.FromContext(ctx)
	if !ok {
		httpx.WriteError(w, h.log, errs.ErrForbidden)
		return
	}
	var req itemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" {
		httpx.WriteError(w, h.log, errs.ErrInvalidInput)
		return
	}
	if err := h.svc.RemoveItem(ctx, id.Email, req.ProductID); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	h.respondWithCart(ctx, w, id.Email)
}

type mutateFn func(ctx context.Context, userEmail, productID string, quantity int) error

func (h *Handler) mutate(ctx context.Context, w http.ResponseWriter, r *http.Request, fn mutateFn) {
	id, ok := identity.FromContext(ctx)
	if !ok {
		httpx.WriteError(w, h.log, errs.ErrForbidden)
		return
	}
	var req itemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" {
		httpx.WriteError(w, h.log, errs.ErrInvalidInput)
		return
	}
	if err := fn(ctx, id.Email, req.ProductID, req.Quantity); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	h.respondWithCart(ctx, w, id.Email)
}

func (h *Handler) respondWithCart(ctx context.Context, w http.ResponseWriter, userEmail string) {
	view, err := h.svc.ReadCart(ctx, userEmail)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResp(view))
}
