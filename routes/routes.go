package routes

import (
	"net/http"

	"marketplace-order-service/controllers"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(
	r *gin.Engine,
	paymentEvents *controllers.PaymentEventController,
	orders *controllers.OrderController,
	notifications *controllers.NotificationController,
) {
	r.POST("/payment-events", paymentEvents.HandlePaymentEvent)

	orderRoutes := r.Group("/orders")
	orderRoutes.GET("", orders.GetOrderByExternalTransactionID)
	orderRoutes.GET("/:id", orders.GetOrderByID)

	r.GET("/sellers/:id/notifications", notifications.ListForSeller)
	r.POST("/notifications/:id/read", notifications.MarkRead)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
