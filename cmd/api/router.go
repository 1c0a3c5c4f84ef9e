package main

import (
	"github.com/gin-gonic/gin"

	"github.com/flicky/premium-store/internal/config"
	"github.com/flicky/premium-store/internal/handler"
	"github.com/flicky/premium-store/internal/metrics"
	"github.com/flicky/premium-store/internal/middleware"
)

type routes struct {
	auth          *handler.AuthHandler
	products      *handler.ProductHandler
	cart          *handler.CartHandler
	orders        *handler.OrderHandler
	admin         *handler.AdminHandler
	subscriptions *handler.SubscriptionHandler
	ws            *handler.WSHandler
	health        *handler.HealthHandler
	metrics       *metrics.Metrics
}

func newRouter(cfg *config.Config, h routes) *gin.Engine {
	router := gin.Default()
	router.Use(h.metrics.Middleware())

	router.GET("/healthz", h.health.Healthz)
	router.GET("/readyz", h.health.Readyz)
	router.GET("/metrics", gin.WrapH(h.metrics.Handler()))

	authed := middleware.AuthMiddleware(cfg.JWT.Secret, false)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		auth.GET("/google/login", h.auth.GoogleLogin)
		auth.GET("/google/callback", h.auth.GoogleCallback)
		auth.GET("/me", authed, h.auth.Me)

		products := v1.Group("/products")
		products.GET("", h.products.List)
		products.GET("/:slug", h.products.GetBySlug)

		v1.GET("/payment/bank", h.orders.BankDetails)

		cart := v1.Group("/cart", authed)
		cart.GET("", h.cart.GetCart)
		cart.DELETE("", h.cart.Clear)
		cart.POST("/items", h.cart.AddItem)
		cart.PATCH("/items/:id", h.cart.UpdateItem)
		cart.DELETE("/items/:id", h.cart.DeleteItem)

		orders := v1.Group("/orders", authed)
		orders.POST("", h.orders.CreateOrder)
		orders.GET("", h.orders.ListOrders)
		orders.POST("/approve", middleware.AdminOnly(), h.admin.ApproveOrder)
		orders.GET("/:orderNumber", h.orders.GetOrder)
		orders.GET("/:orderNumber/payment-qr", h.orders.PaymentQR)

		v1.GET("/subscriptions", authed, h.subscriptions.List)
		v1.GET("/ws", middleware.AuthMiddleware(cfg.JWT.Secret, true), h.ws.Connect)

		admin := v1.Group("/admin", authed, middleware.AdminOnly())
		admin.GET("/stats", h.admin.Stats)
		admin.GET("/customers", h.admin.Customers)
		admin.GET("/orders", h.admin.ListOrders)
		admin.GET("/orders/:orderNumber", h.admin.GetOrder)
		admin.PATCH("/orders/:orderNumber/notes", h.admin.UpdateNotes)
		admin.DELETE("/orders/:orderNumber", h.admin.DeleteOrder)
		admin.GET("/products", h.products.AdminList)
		admin.POST("/products", h.products.Create)
		admin.PATCH("/products/:id", h.products.Update)
		admin.DELETE("/products/:id", h.products.Delete)
	}

	return router
}
