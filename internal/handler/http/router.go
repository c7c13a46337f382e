package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/proyectos-la/digital-world/pkg/health"
	"github.com/proyectos-la/digital-world/pkg/middleware"
)

// catalogMaxAge is the Cache-Control max-age of anonymous catalog reads.
const catalogMaxAge = 60

// RouterDeps carries everything NewRouter wires into routes.
type RouterDeps struct {
	Catalog    CatalogReader
	Products   ProductManager
	Categories CategoryManager
	Brands     BrandManager
	Orders     OrderManager
	Comments   CommentManager
	Carts      CartManager

	// Media serves stored images when the storage backend has no CDN. Optional.
	Media MediaSource

	Health         *health.Handler
	ValidateToken  middleware.TokenValidator
	CORS           middleware.CORSConfig
	RateLimiter    func(http.Handler) http.Handler
	PprofCIDRs     []string
	MaxUploadBytes int64
}

// NewRouter creates a chi router with every storefront route registered.
func NewRouter(deps RouterDeps, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(deps.CORS))
	r.Use(chimw.Compress(5))
	r.Use(middleware.Tracing())
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("digital-world"))
	if deps.RateLimiter != nil {
		r.Use(deps.RateLimiter)
	}

	// Health check endpoints
	r.Get("/health/live", deps.Health.LivenessHandler())
	r.Get("/health/ready", deps.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	if len(deps.PprofCIDRs) > 0 {
		middleware.RegisterPprof(r, deps.PprofCIDRs, logger)
	}
	if deps.Media != nil {
		r.Get("/media/*", serveMedia(deps.Media))
	}

	auth := middleware.Auth(deps.ValidateToken)
	admin := middleware.RequireRole(middleware.RoleAdmin)

	products := NewProductHandler(deps.Catalog, deps.Products, deps.MaxUploadBytes, logger)
	categories := NewCategoryHandler(deps.Categories, logger)
	brands := NewBrandHandler(deps.Brands, logger)
	orders := NewOrderHandler(deps.Orders, logger)
	comments := NewCommentHandler(deps.Comments, logger)
	carts := NewCartHandler(deps.Carts, deps.Orders, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimw.Timeout(30 * time.Second))

		r.Route("/products", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.CacheControl(catalogMaxAge))
				r.Get("/", products.ListProducts)
				r.Get("/search", products.SearchProducts)
				r.Get("/{id}", products.GetProduct)
				r.Get("/{id}/related", products.RelatedProducts)
			})
			r.Group(func(r chi.Router) {
				r.Use(auth, admin)
				r.Post("/", products.CreateProduct)
				r.Patch("/{id}", products.UpdateProduct)
				r.Delete("/{id}", products.DeleteProduct)
				r.Post("/{id}/images", products.AddImage)
				r.Delete("/images/{imageID}", products.DeleteImage)
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.CacheControl(catalogMaxAge))
				r.Get("/", categories.ListCategories)
				r.Get("/on-sale", categories.ListOnSale)
				r.Get("/recent", categories.ListRecent)
				r.Get("/{id}", categories.GetCategory)
			})
			r.Group(func(r chi.Router) {
				r.Use(auth, admin)
				r.Post("/", categories.CreateCategory)
				r.Patch("/{id}", categories.UpdateCategory)
				r.Delete("/{id}", categories.DeleteCategory)
			})
		})

		r.Route("/brands", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.CacheControl(catalogMaxAge))
				r.Get("/", brands.ListBrands)
				r.Get("/{id}", brands.GetBrand)
			})
			r.Group(func(r chi.Router) {
				r.Use(auth, admin)
				r.Post("/", brands.CreateBrand)
				r.Patch("/{id}", brands.UpdateBrand)
				r.Delete("/{id}", brands.DeleteBrand)
			})
		})

		r.Route("/comments", func(r chi.Router) {
			r.With(middleware.OptionalAuth(deps.ValidateToken)).Get("/", comments.ListComments)
			r.Group(func(r chi.Router) {
				r.Use(auth)
				r.Post("/", comments.CreateComment)
				r.Patch("/{id}", comments.UpdateComment)
				r.Delete("/{id}", comments.DeleteComment)
			})
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(auth)
			r.Get("/", carts.GetCart)
			r.Delete("/", carts.ClearCart)
			r.Post("/items", carts.AddItem)
			r.Patch("/items/{productID}", carts.UpdateItem)
			r.Delete("/items/{productID}", carts.RemoveItem)
			r.Post("/checkout", carts.Checkout)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(auth)
			r.Post("/", orders.CreateOrder)
			r.Get("/", orders.ListOrders)
			r.Get("/{id}", orders.GetOrder)
			r.With(admin).Patch("/{id}/status", orders.UpdateOrderStatus)
		})
	})

	return r
}
