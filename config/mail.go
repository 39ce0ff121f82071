package config

import (
	"os"
	"strings"
)

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func GetMailConfig() MailConfig {
	return MailConfig{
		Host:     strings.TrimSpace(os.Getenv("SMTP_HOST")),
		Port:     intFromEnv("SMTP_PORT", 587),
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     strings.TrimSpace(os.Getenv("MAIL_FROM")),
	}
}

func (c MailConfig) Configured() bool {
	return c.Host != "" && c.From != ""
}
