package services

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

type EmailService interface {
	SendConfirmationEmail(email, code string) error
	SendReceiptEmail(email, taskTitle string) error
}

type emailService struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmailService(smtpHost string, smtpPort int, smtpUser, smtpPassword, fromEmail string) EmailService {
	dialer := gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPassword)
	return &emailService{
		dialer: dialer,
		from:   fromEmail,
	}
}

func (s *emailService) SendConfirmationEmail(email, code string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "Confirm your email")

	body := fmt.Sprintf(`
		<h3>Confirm your email</h3>
		<p>Enter the following code to finish creating your account: <strong>%s</strong></p>
		<p>The code expires in 15 minutes. If you did not register, you can ignore this email.</p>
	`, code)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send confirmation email: %w", err)
	}

	return nil
}

func (s *emailService) SendReceiptEmail(email, taskTitle string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "Your evaluation report is unlocked")

	body := fmt.Sprintf(`
		<h3>Payment received</h3>
		<p>The full AI evaluation report for <strong>%s</strong> is now unlocked.</p>
		<p>Thank you for your purchase.</p>
	`, taskTitle)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send receipt email: %w", err)
	}

	return nil
}
