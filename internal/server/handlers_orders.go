package server

import (
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/patient-intake/constants"
	"github.com/joseph-ayodele/patient-intake/internal/entity"
	"github.com/joseph-ayodele/patient-intake/internal/export"
	"github.com/joseph-ayodele/patient-intake/internal/repository"
)

// OrdersHandler handles order lookup and export HTTP requests.
type OrdersHandler struct {
	orders   repository.OrderRepository
	exporter *export.Service
	logger   *slog.Logger
}

// NewOrdersHandler creates a new orders handler.
func NewOrdersHandler(orders repository.OrderRepository, exporter *export.Service, logger *slog.Logger) *OrdersHandler {
	return &OrdersHandler{orders: orders, exporter: exporter, logger: logger}
}

// OrderListResponse is a page of orders.
type OrderListResponse struct {
	Orders     []*entity.Order `json:"orders"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalPages int             `json:"total_pages"`
}

// List returns a paginated order listing with optional status and type
// filters.
func (h *OrdersHandler) List(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	pageSize := c.QueryInt("page_size", 10)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > 100 {
		pageSize = 100
	}

	orders, total, err := h.orders.List(c.UserContext(), repository.ListFilter{
		Status:    c.Query("status"),
		OrderType: c.Query("order_type"),
		Limit:     pageSize,
		Offset:    (page - 1) * pageSize,
	})
	if err != nil {
		return fail(c, h.logger, err)
	}
	if orders == nil {
		orders = []*entity.Order{}
	}

	return c.JSON(OrderListResponse{
		Orders:     orders,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	})
}

// GetByID returns a single order.
func (h *OrdersHandler) GetByID(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "order id must be a UUID")
	}
	order, err := h.orders.GetByID(c.UserContext(), id)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(order)
}

// UpdateStatus moves an order through its review lifecycle.
func (h *OrdersHandler) UpdateStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "order id must be a UUID")
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "request body must be JSON with a status field")
	}

	status := constants.OrderStatus(body.Status)
	switch status {
	case constants.OrderStatusPending, constants.OrderStatusNeedsReview, constants.OrderStatusCompleted:
	default:
		return fiber.NewError(fiber.StatusBadRequest, "status must be one of pending, needs_review, completed")
	}

	if err := h.orders.UpdateStatus(c.UserContext(), id, status); err != nil {
		return fail(c, h.logger, err)
	}
	order, err := h.orders.GetByID(c.UserContext(), id)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(order)
}

// Export streams the order book for an optional date window as XLSX.
func (h *OrdersHandler) Export(c *fiber.Ctx) error {
	var fromPtr, toPtr *time.Time
	if fd := strings.TrimSpace(c.Query("from_date")); fd != "" {
		t, err := time.Parse("2006-01-02", fd)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "from_date must be YYYY-MM-DD")
		}
		fromPtr = &t
	}
	if td := strings.TrimSpace(c.Query("to_date")); td != "" {
		t, err := time.Parse("2006-01-02", td)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "to_date must be YYYY-MM-DD")
		}
		toPtr = &t
	}

	xlsx, err := h.exporter.ExportOrdersXLSX(c.UserContext(), fromPtr, toPtr)
	if err != nil {
		h.logger.Error("export.xlsx.failed", "error", err)
		return fail(c, h.logger, err)
	}

	filename := "orders_" + time.Now().UTC().Format("20060102") + ".xlsx"
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(xlsx)
}
