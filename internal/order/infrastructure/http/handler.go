package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/mve-platform/commerce-backend/internal/errs"
	"github.com/mve-platform/commerce-backend/internal/httpx"
	"github.com/mve-platform/commerce-backend/internal/identity"
	"github.com/mve-platform/commerce-backend/internal/order/application"
	"github.com/mve-platform/commerce-backend/internal/order/domain"
)

type Handler struct {
	log    *slog.Logger
	svc    *application.Service
	auth   func(http.Handler) http.Handler
	idem   func(http.Handler) http.Handler
	tracer trace.Tracer
}

func NewHandler(log *slog.Logger, svc *application.Service, auth, idem func(http.Handler) http.Handler) *Handler {
	return &Handler{
		log:    log,
		svc:    svc,
		auth:   auth,
		idem:   idem,
		tracer: otel.Tracer("order-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(h.auth)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.With(h.idem).Post("/", h.place)
	r.Put("/{id}", h.updateStatus)
	return r
}

type placeReq struct {
	ShippingAddress string `json:"shipping_address"`
	CouponCode      string `json:"coupon_code"`
}

type statusReq struct {
	Status string `json:"status"`
}

type orderResp struct {
	ID              string         `json:"id"`
	UserEmail       string         `json:"user_email"`
	Items           []orderItemOut `json:"items"`
	TotalCents      int64          `json:"total_cents"`
	Status          string         `json:"status"`
	ShippingAddress string         `json:"shipping_address"`
	CreatedAt       time.Time      `json:"created_at"`
}

type orderItemOut struct {
	ProductID  string `json:"product_id"`
	Quantity   int    `json:"quantity"`
	PriceCents int64  `json:"price_cents"`
}

func toResp(o domain.Order) orderResp {
	items := make([]orderItemOut, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemOut{ProductID: it.ProductID, Quantity: it.Quantity, PriceCents: it.PriceCents})
	}
	return orderResp{
		ID:              o.ID,
		UserEmail:       o.UserEmail,
		Items:           items,
		TotalCents:      o.TotalCents,
		Status:          string(o.Status),
		ShippingAddress: o.ShippingAddress,
		CreatedAt:       o.CreatedAt,
	}
}

func (h *Handler) place(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "PlaceOrder")
	defer span.End()

	id, ok := identity.FromContext(ctx)
	if !ok {
		httpx.WriteError(w, h.log, errs.ErrForbidden)
		return
	}
	var req placeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, h.log, errs.ErrInvalidInput)
		return
	}
	order, err := h.svc.PlaceOrder(ctx, id, req.ShippingAddress, req.CouponCode)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toResp(order))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListOrders")
	defer span.End()

	id, ok := identity.FromContext(ctx)
	if !ok {
		httpx.WriteError(w, h.log, errs.ErrForbidden)
		return
	}
	orders, err := h.svc.ListOrders(ctx, id)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	out := make([]orderResp, 0, len(orders))
	for _, o := range orders {
		out = append(out, toResp(o))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetOrder")
	defer span.End()

	id, ok := identity.FromContext(ctx)
	if !ok {
		httpx.WriteError(w, h.log, errs.ErrForbidden)
		return
	}
	order, err := h.svc.GetOrder(ctx, id, chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResp(order))
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateOrderStatus")
	defer span.End()

	id, ok := identity.FromContext(ctx)
	if !ok {
		httpx.WriteError(w, h.log, errs.ErrForbidden)
		return
	}
	var req statusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		httpx.WriteError(w, h.log, errs.ErrInvalidInput)
		return
	}
	orderID := chi.URLParam(r, "id")
	if err := h.svc.UpdateStatus(ctx, id, orderID, domain.Status(req.Status)); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	order, err := h.svc.GetOrder(ctx, id, orderID)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResp(order))
}
