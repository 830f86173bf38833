package routes

import (
	"github.com/julienschmidt/httprouter"

	"pawmart/auth"
	"pawmart/cart"
	"pawmart/checkout"
	"pawmart/feedback"
	"pawmart/middleware"
	"pawmart/notify"
	"pawmart/orders"
	"pawmart/products"
	"pawmart/ratelim"
	"pawmart/stock"
)

func AddAuthRoutes(router *httprouter.Router, rl *ratelim.RateLimiter) {
	router.POST("/api/auth/register", rl.Limit(auth.Register))
	router.POST("/api/auth/login", rl.Limit(auth.Login))
}

func AddCartRoutes(router *httprouter.Router, rl *ratelim.RateLimiter, h *cart.Handlers) {
	router.POST("/api/cart/init", middleware.OptionalAuth(h.Initialize))
	router.GET("/api/cart", middleware.OptionalAuth(h.Get))
	router.POST("/api/cart/items", rl.Limit(middleware.OptionalAuth(h.AddItem)))
	router.PUT("/api/cart/items/:productid", rl.Limit(middleware.OptionalAuth(h.UpdateQuantity)))
	router.DELETE("/api/cart/items/:productid", middleware.OptionalAuth(h.RemoveItem))
	router.DELETE("/api/cart", middleware.OptionalAuth(h.Clear))
}

func AddCheckoutRoutes(router *httprouter.Router, rl *ratelim.RateLimiter, h *checkout.Handlers) {
	router.POST("/api/checkout", rl.Limit(middleware.Authenticate(h.Checkout)))
}

func AddOrderRoutes(router *httprouter.Router, rl *ratelim.RateLimiter, h *orders.Handlers) {
	router.GET("/api/orders", middleware.Authenticate(h.ListMine))
	router.GET("/api/orders/:orderid", middleware.Authenticate(h.Get))
	router.POST("/api/orders/:orderid/cancel", rl.Limit(middleware.Authenticate(h.Cancel)))
	router.GET("/api/orders/:orderid/receipt", middleware.Authenticate(h.Receipt))

	router.GET("/api/admin/orders", middleware.RequireAdmin(h.ListAll))
	router.PUT("/api/admin/orders/:orderid/status", middleware.RequireAdmin(h.Advance))
}

func AddProductRoutes(router *httprouter.Router, rl *ratelim.RateLimiter, h *products.Handlers) {
	router.GET("/api/products", h.GetProducts)
	router.GET("/api/products/:productid", h.GetProduct)
	router.GET("/api/products/:productid/updates", stock.ProductUpdates)

	router.POST("/api/admin/products", middleware.RequireAdmin(h.CreateProduct))
	router.PUT("/api/admin/products/:productid", middleware.RequireAdmin(h.EditProduct))
	router.DELETE("/api/admin/products/:productid", middleware.RequireAdmin(h.DeleteProduct))
	router.POST("/api/admin/products/:productid/stock", middleware.RequireAdmin(h.AdjustStock))
	router.POST("/api/admin/products/:productid/image", middleware.RequireAdmin(h.UploadImage))
	router.GET("/api/admin/reports/out-of-stock", middleware.RequireAdmin(h.OutOfStock))
	router.GET("/api/admin/reports/low-stock", middleware.RequireAdmin(h.LowStock))
}

func AddFeedbackRoutes(router *httprouter.Router, rl *ratelim.RateLimiter) {
	router.POST("/api/feedback", rl.Limit(middleware.OptionalAuth(feedback.Submit)))
	router.GET("/api/admin/feedback", middleware.RequireAdmin(feedback.List))
}

func AddNotificationRoutes(router *httprouter.Router, hub *notify.Hub) {
	router.GET("/api/notifications/ws", hub.Serve)
}
