package email

import (
	"fmt"
	"net/smtp"
)

// Service handles email sending via SMTP
type Service struct {
	host string
	port string
	from string
}

// NewService creates a new email service
func NewService(host, port, from string) *Service {
	return &Service{
		host: host,
		port: port,
		from: from,
	}
}

// SendRequestAccepted tells the hospital its request moved into processing
func (s *Service) SendRequestAccepted(to, requestID, bankName string, items []RequestItem) error {
	shortID := requestID
	if len(requestID) > 8 {
		shortID = requestID[:8]
	}
	subject := fmt.Sprintf("Blood request %s accepted", shortID)
	body := BuildRequestAcceptedBody(requestID, bankName, items)
	return s.send(to, subject, body)
}

// SendVoucherAccepted tells the donor a blood bank has honored their voucher
func (s *Service) SendVoucherAccepted(to, code, bankName string) error {
	subject := fmt.Sprintf("Your donation voucher %s was accepted", code)
	body := BuildVoucherAcceptedBody(code, bankName)
	return s.send(to, subject, body)
}

func (s *Service) send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	return smtp.SendMail(addr, nil, s.from, []string{to}, []byte(msg))
}
