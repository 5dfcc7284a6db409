package service

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
	"yks_coach_backend/internal/config"
	"yks_coach_backend/internal/util"
	"yks_coach_backend/pkg/logger"
	"yks_coach_backend/pkg/mailqueue"

	"go.uber.org/zap"
)

type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer 通过 STARTTLS 发送纯文本邮件
type SMTPMailer struct {
	Config config.MailConfig
}

func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{Config: cfg}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	cfg := m.Config
	if cfg.Username == "" || cfg.Password == "" {
		return util.ErrMailNotConfigured
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	from := fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", cfg.FromName), cfg.Username)

	var msg strings.Builder
	msg.WriteString("From: " + from + "\r\n")
	msg.WriteString("To: " + to + "\r\n")
	msg.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	msg.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	msg.WriteString(body)

	auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)

	// net/smtp 不支持 context，放到 goroutine 里以便按 ctx 超时返回
	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, cfg.Username, []string{to}, []byte(msg.String()))
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

const mailSendTimeout = 30 * time.Second

// Notifier 发送验证码邮件；配置了 RabbitMQ 时入队，否则后台直接发送
type Notifier struct {
	Mailer    Mailer
	Publisher *mailqueue.Publisher
}

func NewNotifier(mailer Mailer, publisher *mailqueue.Publisher) *Notifier {
	return &Notifier{Mailer: mailer, Publisher: publisher}
}

func verificationMail(code string) (subject, body string) {
	return "Doğrulama Kodu", fmt.Sprintf("Kodun: %s", code)
}

// SendVerification 不阻塞请求，失败只记录日志
func (n *Notifier) SendVerification(ctx context.Context, email, code string) {
	subject, body := verificationMail(code)
	msg := mailqueue.Message{To: email, Subject: subject, Body: body, QueueAt: time.Now()}

	if n.Publisher != nil {
		err := n.Publisher.Publish(ctx, msg)
		if err == nil {
			return
		}
		logger.Log.Warn("Queue verification mail failed, sending directly", zap.String("to", email), zap.Error(err))
	}

	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), mailSendTimeout)
		defer cancel()
		if err := n.Deliver(sendCtx, msg); err != nil {
			logger.Log.Error("Send verification mail failed", zap.String("to", email), zap.Error(err))
		}
	}()
}

// Deliver 实际发送一封邮件，同时作为队列消费者的处理函数
func (n *Notifier) Deliver(ctx context.Context, msg mailqueue.Message) error {
	if err := n.Mailer.Send(ctx, msg.To, msg.Subject, msg.Body); err != nil {
		return err
	}
	logger.Log.Info("Mail sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}
