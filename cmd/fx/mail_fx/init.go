package mail_fx

import (
	"log"
	"os"
	"strconv"

	"github.com/growsinofficial/kyc-sub000/internal/services"
	"go.uber.org/fx"
)

var Module = fx.Provide(
	provideMailService)

func provideMailService() services.IMailService {
	port, _ := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if port == 0 {
		port = 587
	}

	cfg := services.SMTPConfig{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     port,
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     os.Getenv("SMTP_FROM"),
		FromName: os.Getenv("SMTP_FROM_NAME"),
		AppName:  os.Getenv("APP_NAME"),
	}

	instance, err := services.NewSMTPMailService(cfg)
	if err != nil {
		log.Printf("Error initializing mail service: %v", err)
	}
	return instance
}
