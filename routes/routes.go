package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"storefront-backend/controllers"
	"storefront-backend/middlewares"
)

// Handlers bundles the controllers wired by Register.
type Handlers struct {
	Webhooks       *controllers.WebhookController
	Downloads      *controllers.DownloadController
	Auth           *controllers.AuthController
	SignupRequests *controllers.SignupRequestController
	Users          *controllers.UserController
	Products       *controllers.ProductController
	Entitlements   *controllers.EntitlementController
}

// Register wires all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, jwt *middlewares.JWTAuth, h Handlers, log zerolog.Logger) {
	app.Get("/healthz", controllers.Healthz(db))
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// PayPal webhooks (legacy path kept for the registered webhook URL)
	app.Post("/webhooks/paypal", h.Webhooks.PayPal)
	app.Post("/paypal", h.Webhooks.PayPal)

	// Download links from order emails
	app.Get("/downloads", middlewares.NoCache(), h.Downloads.Download)

	api := app.Group("/api", middlewares.NoCache())

	// Per-request transaction for writes; reads go straight to the pool.
	withTx := middlewares.RequestTx(db, log)

	// Public endpoints
	api.Post("/login", h.Auth.Login)
	api.Post("/logout", h.Auth.Logout)
	api.Post("/signup-requests", withTx, h.SignupRequests.CreateSignupRequest)

	// Admin endpoints (JWT auth + admin role)
	admin := api.Group("/admin", jwt.IsAuthenticatedHeader(), middlewares.RequireAdmin())

	// Idempotency guard FIRST (not tied to request TX)
	idem := middlewares.Idempotency(db, log)

	// Signup requests
	admin.Get("/signup-requests", h.SignupRequests.GetSignupRequests)
	admin.Put("/signup-requests/:id/decline", idem, withTx, h.SignupRequests.DeclineSignupRequest)

	// Users
	admin.Post("/users", idem, withTx, h.Users.CreateUser)

	// Products
	admin.Post("/products", idem, withTx, h.Products.CreateProduct)
	admin.Get("/products", h.Products.GetProducts)
	admin.Put("/products/:id", idem, withTx, h.Products.UpdateProduct)
	admin.Get("/products/:id/link", h.Products.GetProductLink)

	// Entitlements
	admin.Get("/entitlements/:download_id/:payer_id", h.Entitlements.GetEntitlement)
}
