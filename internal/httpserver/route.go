package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	authmw "github.com/Skotchmaster/handmade_shop/internal/middleware/auth"
)

type Deps struct {
	Auth      *AuthHTTP
	Catalog   *CatalogHTTP
	Cart      *CartHTTP
	Favorites *FavoriteHTTP
	Orders    *OrderHTTP
	Imports   *ImportHTTP
	Reports   *ReportHTTP
	Users     *UserHTTP
	Settings  *SettingsHTTP

	AuthMW *authmw.AutoRefreshMiddleware
	// Ready backs /health/ready; nil reports ready.
	Ready func(ctx context.Context) error
	// AuthRateLimit is requests per second per IP on /api/auth; 0 disables it.
	AuthRateLimit int
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return c.JSON(http.StatusServiceUnavailable, ErrorBody{Kind: "unavailable", Message: "database unavailable"})
			}
		}
		return c.NoContent(http.StatusOK)
	})

	requireAuth := d.AuthMW.RequireAuth
	api := e.Group("/api")

	var authLimits []echo.MiddlewareFunc
	if d.AuthRateLimit > 0 {
		authLimits = append(authLimits, middleware.RateLimiter(
			middleware.NewRateLimiterMemoryStore(rate.Limit(d.AuthRateLimit)),
		))
	}
	auth := api.Group("/auth", authLimits...)
	auth.POST("/register", d.Auth.Register)
	auth.POST("/login", d.Auth.Login)
	auth.POST("/refresh", d.Auth.Refresh)
	auth.POST("/logout", d.Auth.Logout)
	auth.GET("/verify-email", d.Auth.VerifyEmail)
	auth.POST("/verify-email", d.Auth.VerifyEmail)
	auth.POST("/resend-verification", d.Auth.ResendVerification)
	auth.POST("/forgot-password", d.Auth.ForgotPassword)
	auth.POST("/reset-password", d.Auth.ResetPassword)
	auth.GET("/me", d.Auth.Me, requireAuth)
	auth.PATCH("/me", d.Auth.UpdateProfile, requireAuth)
	auth.POST("/change-password", d.Auth.ChangePassword, requireAuth)

	products := api.Group("/products")
	products.GET("", d.Catalog.ListProducts)
	products.GET("/search", d.Catalog.SearchProducts)
	products.GET("/by-category", d.Catalog.ProductsByCategory)
	products.GET("/slug/:slug", d.Catalog.GetProductBySlug)
	products.GET("/:id", d.Catalog.GetProduct)
	products.GET("/:id/related", d.Catalog.RelatedProducts)
	products.POST("/reviewed", d.Catalog.ReviewedFlags, requireAuth)
	products.GET("/:id/feedback/me", d.Catalog.MyFeedback, requireAuth)
	products.GET("/:id/feedback/eligibility", d.Catalog.CanReview, requireAuth)
	products.POST("/:id/feedback", d.Catalog.AddFeedback, requireAuth)
	products.PUT("/:id/feedback", d.Catalog.UpdateFeedback, requireAuth)

	api.GET("/categories", d.Catalog.ListCategories)
	api.GET("/settings", d.Settings.Get)

	cart := api.Group("/cart", requireAuth)
	cart.GET("", d.Cart.GetCart)
	cart.DELETE("", d.Cart.Clear)
	cart.POST("/items", d.Cart.AddItem)
	cart.PATCH("/items/:productId", d.Cart.UpdateItem)
	cart.DELETE("/items/:productId", d.Cart.RemoveItem)
	cart.POST("/checkout", d.Cart.Checkout)
	cart.POST("/checkout/:productId", d.Cart.CheckoutItem)

	favs := api.Group("/favorites", requireAuth)
	favs.GET("", d.Favorites.List)
	favs.GET("/:productId", d.Favorites.Check)
	favs.POST("/:productId", d.Favorites.Add)
	favs.DELETE("/:productId", d.Favorites.Remove)
	favs.POST("/:productId/toggle", d.Favorites.Toggle)

	orders := api.Group("/orders", requireAuth)
	orders.POST("", d.Orders.CreateOrder)
	orders.GET("", d.Orders.MyOrders)
	orders.GET("/:id", d.Orders.GetOrder)
	orders.POST("/:id/cancel", d.Orders.CancelOrder)

	admin := api.Group("/admin", d.AuthMW.RequireAdmin)

	admin.POST("/products", d.Catalog.CreateProduct)
	admin.PATCH("/products/:id", d.Catalog.UpdateProduct)
	admin.DELETE("/products/:id", d.Catalog.DeleteProduct)
	admin.GET("/products/export", d.Catalog.ExportStock)

	admin.GET("/categories", d.Catalog.ListAllCategories)
	admin.POST("/categories", d.Catalog.CreateCategory)
	admin.PATCH("/categories/:id", d.Catalog.UpdateCategory)

	admin.GET("/orders", d.Orders.ListOrders)
	admin.GET("/orders/:id", d.Orders.GetOrder)
	admin.PATCH("/orders/:id/status", d.Orders.UpdateStatus)
	admin.POST("/orders/:id/payments/cod", d.Orders.RecordCODPayment)
	admin.POST("/orders/:id/mark-paid", d.Orders.MarkPaid)

	admin.GET("/payments", d.Reports.ListPayments)
	admin.GET("/payments/stats", d.Reports.PaymentStats)
	admin.GET("/reports/orders", d.Reports.OrderStats)
	admin.GET("/reports/revenue/daily", d.Reports.DailyRevenue)
	admin.GET("/reports/revenue/monthly", d.Reports.MonthlyRevenue)

	admin.GET("/imports", d.Imports.ListImports)
	admin.POST("/imports", d.Imports.CreateImport)
	admin.GET("/imports/template", d.Imports.Template)
	admin.POST("/imports/bulk", d.Imports.BulkImport)
	admin.GET("/imports/:id", d.Imports.GetImport)
	admin.PATCH("/imports/:id", d.Imports.UpdateImport)
	admin.DELETE("/imports/:id", d.Imports.DeleteImport)

	admin.GET("/users", d.Users.ListCustomers)
	admin.GET("/users/:id", d.Users.Get)
	admin.PATCH("/users/:id/role", d.Users.ChangeRole)
	admin.PATCH("/users/:id/active", d.Users.SetActive)
	admin.DELETE("/users/:id", d.Users.Delete)

	admin.GET("/settings", d.Settings.Get)
	admin.PUT("/settings", d.Settings.Update)
}
