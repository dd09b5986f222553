// Package router assembles the echo instance: global middleware, the error
// handler and every route.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/deppfellow/go-invoices/internal/handler"
	"github.com/deppfellow/go-invoices/internal/middleware"
	"github.com/deppfellow/go-invoices/internal/server"
)

func NewRouter(s *server.Server, h *handler.Handlers) *echo.Echo {
	mw := middleware.NewMiddlewares(s)

	r := echo.New()
	r.HideBanner = true
	r.HidePort = true
	r.HTTPErrorHandler = mw.Global.GlobalErrorHandler

	r.Use(
		mw.Global.Recover(),
		middleware.RequestID(),
		mw.Tracing.NewRelicMiddleware(),
		mw.Tracing.EnhanceTracing(),
		mw.ContextEnhancer.EnhanceContext(),
		mw.Global.RequestLogger(),
		mw.Global.CORS(),
		mw.Global.Secure(),
	)

	registerSystemRoutes(r, h)

	dashboard := r.Group("/dashboard", mw.Auth.RequireAuth)
	registerInvoiceRoutes(dashboard, h.Invoice, mw.RateLimit.Limit())

	return r
}

// registerInvoiceRoutes mounts the invoice list and its form actions. Forms
// post to the same paths browsers without method override use, so updates
// and deletes are also reachable with POST.
func registerInvoiceRoutes(g *echo.Group, h *handler.InvoiceHandler, limit echo.MiddlewareFunc) {
	routes := h.Routes()
	invoices := g.Group("/invoices")

	invoices.GET("", routes.List)
	invoices.GET("/export", routes.Export)
	invoices.GET("/:id", routes.Get)

	invoices.POST("", routes.Create, limit)
	invoices.PUT("/:id", routes.Update, limit)
	invoices.POST("/:id", routes.Update, limit)
	invoices.DELETE("/:id", routes.Delete, limit)
	invoices.POST("/:id/delete", routes.Delete, limit)
}
