package config

import (
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/go-faster/errors"
	_ "github.com/joho/godotenv/autoload"
)

type Provider struct {
	KeyID     string `env:"RAZORPAY_KEY_ID"`
	KeySecret string `env:"RAZORPAY_KEY_SECRET"`
	BaseURL   string `env:"PROVIDER_BASE_URL" envDefault:"https://api.razorpay.com"`
}

// Configured reports whether order creation can reach the provider.
func (p Provider) Configured() bool {
	return p.KeyID != "" && p.KeySecret != ""
}

type Server struct {
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"INFO"`

	Provider Provider

	MerchantName    string        `env:"MERCHANT_NAME" envDefault:"Coin Store"`
	DefaultCurrency string        `env:"DEFAULT_CURRENCY" envDefault:"INR"`
	MaxAmount       float64       `env:"MAX_AMOUNT" envDefault:"100000"`
	CheckSettlement bool          `env:"CHECK_SETTLEMENT" envDefault:"true"`
	AppAuthSecret   string        `env:"APP_AUTH_SECRET"`
	DatabaseURL     string        `env:"DATABASE_URL"`
	OrderTTL        time.Duration `env:"ORDER_TTL" envDefault:"30m"`
	JanitorInterval time.Duration `env:"JANITOR_INTERVAL" envDefault:"5m"`
	RateRPS         float64       `env:"RATE_RPS" envDefault:"20"`
	RateBurst       int           `env:"RATE_BURST" envDefault:"40"`
	SentryDSN       string        `env:"SENTRY_DSN"`
}

type Client struct {
	LogLevel          string        `env:"LOG_LEVEL" envDefault:"INFO"`
	BackendURL        string        `env:"BACKEND_URL" envDefault:"http://localhost:8080"`
	AppID             string        `env:"APP_ID" envDefault:"coin-store-client"`
	AppAuthSecret     string        `env:"APP_AUTH_SECRET"`
	PublicKey         string        `env:"RAZORPAY_KEY_ID"`
	CheckoutScriptURL string        `env:"CHECKOUT_SCRIPT_URL" envDefault:"https://checkout.razorpay.com/v1/checkout.js"`
	ScriptLoadTimeout time.Duration `env:"SCRIPT_LOAD_TIMEOUT" envDefault:"10s"`
	MaxAmount         float64       `env:"MAX_AMOUNT" envDefault:"100000"`
	AllowSimulated    bool          `env:"ALLOW_SIMULATED" envDefault:"false"`
	MerchantName      string        `env:"MERCHANT_NAME" envDefault:"Coin Store"`
	DefaultCurrency   string        `env:"DEFAULT_CURRENCY" envDefault:"INR"`
	PageURL           string        `env:"CHECKOUT_PAGE_URL" envDefault:"about:blank"`
	Headless          bool          `env:"BROWSER_HEADLESS" envDefault:"false"`
}

func LoadServer() (Server, error) {
	var c Server
	if err := env.Parse(&c); err != nil {
		return Server{}, errors.Wrap(err, "parse server config")
	}
	if c.MaxAmount <= 0 {
		return Server{}, errors.Errorf("MAX_AMOUNT must be positive, got %v", c.MaxAmount)
	}
	return c, nil
}

func LoadClient() (Client, error) {
	var c Client
	if err := env.Parse(&c); err != nil {
		return Client{}, errors.Wrap(err, "parse client config")
	}
	if c.MaxAmount <= 0 {
		return Client{}, errors.Errorf("MAX_AMOUNT must be positive, got %v", c.MaxAmount)
	}
	return c, nil
}
