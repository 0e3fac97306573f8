package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
)

// Config captures runtime configuration values used by the backend service.
type Config struct {
	// ServerAddress is the host:port pair the HTTP server listens on. Defaults to ":18080".
	ServerAddress string

	// DatabaseURL is the Postgres DSN used by database/sql.
	DatabaseURL string

	// PaystackSecretKey authenticates transaction verification calls to Paystack.
	PaystackSecretKey string

	// MikroTikHost is the router's management address (hostname or IP).
	MikroTikHost string

	// MikroTikPort is the RouterOS API port. Defaults to 8728.
	MikroTikPort int

	// MikroTikUser and MikroTikPassword authenticate the API connection.
	MikroTikUser     string
	MikroTikPassword string

	// FrontendURL is the base URL customers are redirected to after checkout.
	FrontendURL string

	// WhatsAppToken and WhatsAppPhoneNumberID configure voucher delivery over
	// the WhatsApp Cloud API. Both empty means notifications are disabled.
	WhatsAppToken         string
	WhatsAppPhoneNumberID string
}

const (
	defaultServerAddress = ":18080"
	defaultMikroTikPort  = 8728

	envServerAddress     = "BACKEND_ADDR"
	envDatabaseURL       = "DATABASE_URL"
	envPaystackSecretKey = "PAYSTACK_SECRET_KEY"
	envMikroTikHost      = "MIKROTIK_HOST"
	envMikroTikPort      = "MIKROTIK_PORT"
	envMikroTikUser      = "MIKROTIK_USER"
	envMikroTikPassword  = "MIKROTIK_PASSWORD"
	envFrontendURL       = "FRONTEND_URL"
	envWhatsAppToken     = "WHATSAPP_TOKEN"
	envWhatsAppPhoneID   = "WHATSAPP_PHONE_NUMBER_ID"
)

// Load reads configuration from environment variables, applies defaults, and returns
// a Config structure. Required values return an error when missing.
func Load() (Config, error) {
	cfg := Config{
		ServerAddress:         firstNonEmpty(os.Getenv(envServerAddress), defaultServerAddress),
		DatabaseURL:           os.Getenv(envDatabaseURL),
		PaystackSecretKey:     os.Getenv(envPaystackSecretKey),
		MikroTikHost:          os.Getenv(envMikroTikHost),
		MikroTikPort:          defaultMikroTikPort,
		MikroTikUser:          os.Getenv(envMikroTikUser),
		MikroTikPassword:      os.Getenv(envMikroTikPassword),
		FrontendURL:           os.Getenv(envFrontendURL),
		WhatsAppToken:         os.Getenv(envWhatsAppToken),
		WhatsAppPhoneNumberID: os.Getenv(envWhatsAppPhoneID),
	}

	if value := os.Getenv(envMikroTikPort); value != "" {
		port, err := strconv.Atoi(value)
		if err != nil || port <= 0 || port > 65535 {
			return Config{}, fmt.Errorf("invalid %s: %q", envMikroTikPort, value)
		}
		cfg.MikroTikPort = port
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("%s is required", envDatabaseURL)
	}
	if cfg.PaystackSecretKey == "" {
		return Config{}, fmt.Errorf("%s is required", envPaystackSecretKey)
	}
	if cfg.MikroTikHost == "" {
		return Config{}, fmt.Errorf("%s is required", envMikroTikHost)
	}
	if cfg.MikroTikUser == "" {
		return Config{}, fmt.Errorf("%s is required", envMikroTikUser)
	}
	if cfg.MikroTikPassword == "" {
		return Config{}, fmt.Errorf("%s is required", envMikroTikPassword)
	}
	if cfg.FrontendURL == "" {
		return Config{}, fmt.Errorf("%s is required", envFrontendURL)
	}

	// WhatsApp credentials are an optional pair: absent means notifications
	// are skipped, but a half-configured pair is a deployment mistake.
	if (cfg.WhatsAppToken == "") != (cfg.WhatsAppPhoneNumberID == "") {
		return Config{}, fmt.Errorf("%s and %s must be set together", envWhatsAppToken, envWhatsAppPhoneID)
	}

	return cfg, nil
}

// NotificationsEnabled reports whether WhatsApp delivery is configured.
func (c Config) NotificationsEnabled() bool {
	return c.WhatsAppToken != "" && c.WhatsAppPhoneNumberID != ""
}

// MikroTikAddress returns the host:port dial target for the RouterOS API.
func (c Config) MikroTikAddress() string {
	return net.JoinHostPort(c.MikroTikHost, strconv.Itoa(c.MikroTikPort))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
