package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"time"
)

type IMailService interface {
	SendPaymentReceipt(to, name, planName string, amountMinor int64, currency, transactionID string) error
}

// SMTPConfig holds SMTP + branding config.
type SMTPConfig struct {
	Host     string // e.g. "smtp.gmail.com"
	Port     int    // 587 (STARTTLS)
	Username string
	Password string
	From     string // envelope from, e.g. "no-reply@yourapp.com"
	FromName string

	AppName string
}

type smtpMailService struct {
	cfg        SMTPConfig
	receiptTpl *template.Template
}

func NewSMTPMailService(cfg SMTPConfig) (IMailService, error) {
	tpl, err := template.New("receipt").Parse(receiptTemplate)
	if err != nil {
		return nil, err
	}
	return &smtpMailService{cfg: cfg, receiptTpl: tpl}, nil
}

type receiptData struct {
	Name          string
	PlanName      string
	Amount        string
	TransactionID string
	AppName       string
	Year          int
}

const receiptTemplate = `<!doctype html>
<html>
<body style="font-family:Arial,sans-serif;color:#1e293b">
  <h2>Payment received</h2>
  <p>Hi {{.Name}},</p>
  <p>We have received your payment of <strong>{{.Amount}}</strong> for the
  <strong>{{.PlanName}}</strong> plan.</p>
  <p>Transaction reference: {{.TransactionID}}</p>
  <p>Your invoice will follow in a separate email.</p>
  <p style="color:#64748b;font-size:12px">&copy; {{.Year}} {{.AppName}}</p>
</body>
</html>`

func (s *smtpMailService) SendPaymentReceipt(to, name, planName string, amountMinor int64, currency, transactionID string) error {
	data := receiptData{
		Name:          name,
		PlanName:      planName,
		Amount:        fmt.Sprintf("%s %d.%02d", currency, amountMinor/100, amountMinor%100),
		TransactionID: transactionID,
		AppName:       s.cfg.AppName,
		Year:          time.Now().Year(),
	}

	var body bytes.Buffer
	if err := s.receiptTpl.Execute(&body, data); err != nil {
		return err
	}
	return s.send(to, "Payment received", body.String())
}

func (s *smtpMailService) send(to, subject, htmlBody string) error {
	var msg bytes.Buffer
	write := func(format string, a ...any) { _, _ = msg.WriteString(fmt.Sprintf(format, a...)) }

	write("From: %s <%s>\r\n", s.cfg.FromName, s.cfg.From)
	write("To: %s\r\n", to)
	write("Subject: %s\r\n", subject)
	write("Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	write("MIME-Version: 1.0\r\n")
	write("Content-Type: text/html; charset=UTF-8\r\n")
	write("\r\n")
	write("%s\r\n", htmlBody)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	return smtp.SendMail(addr, auth, s.cfg.From, []string{to}, msg.Bytes())
}
