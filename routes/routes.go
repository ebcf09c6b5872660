package routes

import (
	"crumble/auth"
	"crumble/cart"
	"crumble/dashboard"
	"crumble/live"
	"crumble/middleware"
	"crumble/orders"
	"crumble/products"
	"crumble/ratelim"
	"crumble/reviews"

	"github.com/julienschmidt/httprouter"
)

func AddAuthRoutes(router *httprouter.Router, rl *ratelim.RateLimiter) {
	router.POST("/api/auth/register", rl.Limit(auth.Register))
	router.POST("/api/auth/login", rl.Limit(auth.Login))
	router.POST("/api/auth/logout", middleware.Authenticate(auth.LogoutUser))
	router.POST("/api/auth/token/refresh", rl.Limit(auth.RefreshToken))
}

func AddCartRoutes(router *httprouter.Router, rl *ratelim.RateLimiter, h *cart.Handlers) {
	// Cart works anonymously; OptionalAuth lets the engine pick the tier.
	router.GET("/api/cart", middleware.OptionalAuth(h.GetCart))
	router.POST("/api/cart/items", middleware.OptionalAuth(h.AddItem))
	router.PUT("/api/cart/items/:id", middleware.OptionalAuth(h.UpdateQuantity))
	router.DELETE("/api/cart/items/:id", middleware.OptionalAuth(h.RemoveItem))
	router.DELETE("/api/cart", middleware.OptionalAuth(h.ClearCart))

	router.POST("/api/cart/coupon", middleware.OptionalAuth(h.ApplyCoupon))
	router.DELETE("/api/cart/coupon", middleware.OptionalAuth(h.RemoveCoupon))

	router.GET("/api/cart/export", middleware.OptionalAuth(h.ExportCart))
	router.POST("/api/cart/import", rl.Limit(middleware.OptionalAuth(h.ImportCart)))

	router.POST("/api/cart/events", middleware.OptionalAuth(h.LifecycleEvent))
	router.POST("/api/cart/sync", middleware.OptionalAuth(h.SyncCart))
	router.POST("/api/cart/restore", middleware.OptionalAuth(h.RestoreCart))
	router.POST("/api/cart/validate", middleware.OptionalAuth(h.ValidateCart))
}

func AddProductRoutes(router *httprouter.Router, rl *ratelim.RateLimiter) {
	router.GET("/api/products", rl.Limit(products.GetProducts))
	router.GET("/api/products/:id", rl.Limit(products.GetProduct))

	router.POST("/api/products", middleware.RequireRole("owner", products.CreateProduct))
	router.PUT("/api/products/:id", middleware.RequireRole("owner", products.UpdateProduct))
	router.DELETE("/api/products/:id", middleware.RequireRole("owner", products.DeleteProduct))
	router.POST("/api/products/:id/image", middleware.RequireRole("owner", products.UploadProductImage))
}

func AddReviewsRoutes(router *httprouter.Router, rl *ratelim.RateLimiter) {
	router.GET("/api/reviews/:productId", rl.Limit(reviews.GetReviews))
	router.POST("/api/reviews/:productId", rl.Limit(middleware.Authenticate(reviews.AddReview)))
	router.PUT("/api/reviews/:productId/:reviewId", rl.Limit(middleware.Authenticate(reviews.EditReview)))
	router.DELETE("/api/reviews/:productId/:reviewId", rl.Limit(middleware.Authenticate(reviews.DeleteReview)))
}

func AddOrderRoutes(router *httprouter.Router, rl *ratelim.RateLimiter, h *orders.Handlers) {
	router.POST("/api/checkout", rl.Limit(middleware.Authenticate(h.Checkout)))
	router.GET("/api/orders", middleware.Authenticate(h.ListMyOrders))
	router.GET("/api/orders/:orderId", middleware.Authenticate(h.GetOrder))
	router.POST("/api/orders/:orderId/cancel", middleware.Authenticate(h.CancelOrder))
	router.GET("/api/orders/:orderId/qr", middleware.Authenticate(h.PickupQR))
	router.GET("/api/orders/:orderId/invoice", middleware.Authenticate(h.Invoice))

	router.GET("/api/shop/orders", middleware.RequireRole("owner", h.ListAllOrders))
	router.PUT("/api/shop/orders/:orderId/status", middleware.RequireRole("owner", h.UpdateStatus))
}

func AddDashboardRoutes(router *httprouter.Router) {
	router.GET("/api/shop/dashboard", middleware.RequireRole("owner", dashboard.Overview))
}

func AddLiveRoutes(router *httprouter.Router, hub *live.Hub) {
	router.GET("/ws/orders/:orderId", live.OrderFeedHandler(hub))
}
