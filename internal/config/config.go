package config

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	BaseURL     string `env:"BASE_URL"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"coursepay.db"`

	JWTSecret string `env:"JWT_SECRET,notEmpty"`

	// BaseCurrency is the currency every course is priced in.
	BaseCurrency string `env:"BASE_CURRENCY" envDefault:"INR"`

	// FeePercent is the platform cut of every payment, frozen into the
	// ledger row at creation time.
	FeePercent int64 `env:"FEE_PERCENT" envDefault:"20"`

	Card    Card    `envPrefix:"CARD_"`
	Wallet  Wallet  `envPrefix:"WALLET_"`
	Catalog Catalog `envPrefix:"CATALOG_"`
}

type Card struct {
	BaseApiURL    string `env:"BASE_API_URL"`
	SecretKey     string `env:"SECRET_KEY"`
	WebhookSecret string `env:"WEBHOOK_SECRET,notEmpty"`
}

type Wallet struct {
	BaseApiURL   string `env:"BASE_API_URL"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`

	// Currency the wallet provider settles in, and the fixed rate from
	// the platform base currency into it. Applied once at initiation.
	Currency string `env:"CURRENCY" envDefault:"USD"`
	Rate     string `env:"RATE" envDefault:"0.012"`
}

type Catalog struct {
	BaseApiURL string `env:"BASE_API_URL"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}
