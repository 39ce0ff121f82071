package config

import (
	"os"
	"strings"
)

// BusinessProfile is the issuer block printed at the top of every invoice document.
type BusinessProfile struct {
	Name        string
	Address     string
	Phone       string
	Email       string
	LogoPath    string
	CountryCode string
}

func GetBusinessProfile() BusinessProfile {
	return BusinessProfile{
		Name:        envOr("BUSINESS_NAME", "Your Company Name"),
		Address:     envOr("BUSINESS_ADDRESS", "123 Business Street, City, Country"),
		Phone:       envOr("BUSINESS_PHONE", "+1 234 567 890"),
		Email:       envOr("BUSINESS_EMAIL", "contact@company.com"),
		LogoPath:    strings.TrimSpace(os.Getenv("BUSINESS_LOGO_PATH")),
		CountryCode: strings.ToUpper(envOr("BUSINESS_COUNTRY_CODE", "US")),
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
