// Package gateway exposes the marketplace over HTTP.
package gateway

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/example/marketplace/pkg/cart"
	"github.com/example/marketplace/pkg/catalog"
	"github.com/example/marketplace/pkg/config"
	"github.com/example/marketplace/pkg/order"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// Services bundles everything the handlers call.
type Services struct {
	Users      *catalog.UserService
	Sellers    *catalog.SellerService
	Categories *catalog.CategoryService
	Regions    *catalog.RegionService
	Products   *catalog.ProductService
	Carts      *cart.Service
	Orders     *order.Service
}

type Gateway struct {
	config   *config.Config
	logger   *zap.Logger
	router   *gin.Engine
	services Services
}

func NewGateway(cfg *config.Config, logger *zap.Logger, services Services) *Gateway {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware(logger))

	return &Gateway{
		config:   cfg,
		logger:   logger,
		router:   router,
		services: services,
	}
}

func (g *Gateway) SetupRoutes() {
	// Health check
	g.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 routes
	v1 := g.router.Group("/api/v1")
	{
		users := v1.Group("/users")
		{
			users.POST("", g.createUser)
			users.GET("/:id", g.getUser)
			users.GET("", g.listUsers)
			users.PUT("/:id", g.updateUser)
			users.DELETE("/:id", g.deleteUser)
		}

		sellers := v1.Group("/sellers")
		{
			sellers.POST("", g.createSeller)
			sellers.GET("/:id", g.getSeller)
			sellers.GET("", g.listSellers)
			sellers.PUT("/:id", g.updateSeller)
			sellers.DELETE("/:id", g.deleteSeller)
		}

		categories := v1.Group("/categories")
		{
			categories.POST("", g.createCategory)
			categories.GET("/:id", g.getCategory)
			categories.GET("", g.listCategories)
			categories.PUT("/:id", g.updateCategory)
			categories.DELETE("/:id", g.deleteCategory)
		}

		regions := v1.Group("/regions")
		{
			regions.POST("", g.createRegion)
			regions.GET("/:id", g.getRegion)
			regions.GET("", g.listRegions)
			regions.PUT("/:id", g.updateRegion)
			regions.DELETE("/:id", g.deleteRegion)
		}

		products := v1.Group("/products")
		{
			products.POST("", g.createProduct)
			products.GET("", g.listProducts)
			products.GET("/search", g.searchProducts)
			products.GET("/:id", g.getProduct)
			products.PUT("/:id", g.updateProduct)
			products.DELETE("/:id", g.deleteProduct)
			products.GET("/category/:categoryId", g.listProductsByCategory)
			products.GET("/region/:regionId", g.listProductsByRegion)
			products.PUT("/:id/stock", g.updateProductStock)
		}

		carts := v1.Group("/cart")
		{
			carts.GET("/:userId", g.getCart)
			carts.POST("/:userId/add", g.addToCart)
			carts.DELETE("/:userId/item/:itemId", g.removeCartItem)
			carts.DELETE("/:userId/clear", g.clearCart)
		}

		orders := v1.Group("/orders")
		{
			orders.POST("", g.placeOrder)
			orders.GET("/:id", g.getOrder)
			orders.GET("/user/:userId", g.getUserOrders)
			orders.PUT("/:id/status", g.updateOrderStatus)
			orders.POST("/:id/cancel", g.cancelOrder)
		}
	}

	// Swagger
	g.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

func (g *Gateway) Start() error {
	addr := fmt.Sprintf("%s:%d", g.config.Server.Host, g.config.Server.Port)
	g.logger.Info("Gateway starting", zap.String("address", addr))
	return g.router.Run(addr)
}

// Router is exposed for handler tests.
func (g *Gateway) Router() *gin.Engine {
	return g.router
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func parseID(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid %s: %q", name, raw)})
		return 0, false
	}
	return uint(id), true
}
