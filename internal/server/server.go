package server

import (
	"coin-checkout/internal/service"
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Deps struct {
	Service service.OrderService
	// KeyID is the provider's public key, echoed so clients can open checkout.
	KeyID      string
	AuthSecret string
	RateRPS    float64
	RateBurst  int
	// StoreHealth reports the idempotency store; nil means in-memory.
	StoreHealth func(ctx context.Context) map[string]string
	Logger      *zap.Logger
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:           true,
		AllowMethods:              []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:              []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:                    12 * time.Hour,
		OptionsResponseStatusCode: http.StatusOK,
	}))
	r.Use(requestLogger(d.Logger), requestMetrics())
	if d.RateRPS > 0 {
		r.Use(rateLimit(rate.NewLimiter(rate.Limit(d.RateRPS), max(d.RateBurst, 1))))
	}

	h := &handler{svc: d.Service, keyID: d.KeyID, storeHealth: d.StoreHealth, logger: d.Logger}

	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/", appAuth([]byte(d.AuthSecret), d.Logger))
	api.POST("/create-order", h.createOrder)
	api.POST("/verify-payment", h.verifyPayment)

	return r
}
