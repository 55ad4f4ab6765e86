package broadcast

import (
	"context"
	"errors"
	"net/http"
	"time"

	"fareast/internal/models"
	"fareast/internal/monitoring"
	"fareast/internal/orders"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// OrderStore is what the kitchen endpoints need from order storage
type OrderStore interface {
	List(ctx context.Context) ([]models.Order, error)
	UpdateStatus(ctx context.Context, orderNumber string, status models.OrderStatus, now time.Time) (models.Order, error)
}

// KitchenServer serves the kitchen display: order history, status updates
// and the push channel
type KitchenServer struct {
	router  *gin.Engine
	hub     *Hub
	store   OrderStore
	metrics *monitoring.MetricsCollector
	logger  *zap.SugaredLogger
	now     func() time.Time
}

// StatusRequest is the body of a status update
type StatusRequest struct {
	Status string `json:"status"`
}

// NewKitchenServer creates the kitchen display server
func NewKitchenServer(hub *Hub, store OrderStore, metrics *monitoring.MetricsCollector, logger *zap.SugaredLogger) *KitchenServer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if metrics == nil {
		metrics = monitoring.NewMetricsCollector()
	}

	s := &KitchenServer{
		router:  gin.New(),
		hub:     hub,
		store:   store,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
	s.router.Use(gin.Recovery(), CORS())
	s.setupRoutes()
	return s
}

func (s *KitchenServer) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/orders", s.handleListOrders)
		api.PUT("/orders/:orderNumber/status", s.handleUpdateStatus)
	}
	s.router.GET("/ws", s.handleWebSocket)

	// displays connect to whatever path they were configured with
	s.router.NoRoute(func(c *gin.Context) {
		if websocket.IsWebSocketUpgrade(c.Request) {
			s.handleWebSocket(c)
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})
}

// Router returns the Gin router
func (s *KitchenServer) Router() *gin.Engine {
	return s.router
}

// CORS allows any origin to call the kitchen endpoints and answers
// preflight requests with 204
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, PUT, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *KitchenServer) handleWebSocket(c *gin.Context) {
	s.hub.ServeWS(c.Writer, c.Request)
}

func (s *KitchenServer) handleListOrders(c *gin.Context) {
	list, err := s.store.List(c.Request.Context())
	if err != nil {
		s.logger.Errorw("Failed to fetch orders", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
		return
	}

	payloads := make([]orders.Payload, 0, len(list))
	for _, order := range list {
		payloads = append(payloads, orders.PayloadFromOrder(order))
	}
	c.JSON(http.StatusOK, payloads)
}

func (s *KitchenServer) handleUpdateStatus(c *gin.Context) {
	orderNumber := c.Param("orderNumber")

	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	status := models.OrderStatus(req.Status)
	order, err := s.store.UpdateStatus(c.Request.Context(), orderNumber, status, s.now())
	switch {
	case errors.Is(err, orders.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	case errors.Is(err, orders.ErrInvalidStatus), errors.Is(err, orders.ErrTransitionNotAllowed):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		s.logger.Errorw("Failed to update order", "order_number", orderNumber, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order"})
		return
	}

	s.metrics.RecordStatusUpdate(string(order.Status))
	s.hub.BroadcastStatus(c.Request.Context(), orderNumber, string(order.Status), order.UpdatedAt)

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"orderNumber": orderNumber,
		"status":      string(order.Status),
	})
}
