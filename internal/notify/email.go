package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/flicky/premium-store/internal/model"
)

// VerificationWindow is the promised turnaround for payment checks.
const VerificationWindow = 24 * time.Hour

type MailConfig struct {
	Host          string
	Port          int
	User          string
	Password      string
	From          string
	SiteURL       string
	Currency      string
	WhatsAppPhone string
}

type Mailer struct {
	from     string
	siteURL  string
	currency string
	whatsapp string
	send     func(msgs ...*gomail.Message) error
}

func NewMailer(cfg MailConfig) *Mailer {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	return &Mailer{
		from: cfg.From, siteURL: cfg.SiteURL, currency: cfg.Currency,
		whatsapp: cfg.WhatsAppPhone, send: dialer.DialAndSend,
	}
}

var mailTemplates = template.Must(template.New("mail").Parse(`
{{define "confirmation"}}<html><body style="font-family:sans-serif">
<h2>Thanks for your order, {{.Name}}!</h2>
<p>We received order <b>{{.OrderNumber}}</b> and your payment receipt.</p>
<table cellpadding="4">
{{range .Items}}<tr><td>{{.ProductName}}</td><td>× {{.Quantity}}</td><td>{{.Months}} mo</td><td>{{$.Currency}} {{.Subtotal.StringFixed 0}}</td></tr>
{{end}}</table>
<p><b>Total: {{.Currency}} {{.Total}}</b></p>
<p>Our team verifies bank transfers within {{.WindowHours}} hours. You will get another email once your subscriptions are active.</p>
<p><a href="{{.OrderURL}}">View your order</a></p>
{{if .WhatsAppURL}}<p>Questions? Message us on <a href="{{.WhatsAppURL}}">WhatsApp {{.WhatsAppPhone}}</a>.</p>
{{end}}</body></html>{{end}}
{{define "status"}}<html><body style="font-family:sans-serif">
<h2>Hi {{.Name}},</h2>
{{if .Approved}}<p>Your payment for order <b>{{.OrderNumber}}</b> has been verified and your subscriptions are now active.</p>
<p><a href="{{.SubscriptionsURL}}">See your subscriptions</a></p>
{{else}}<p>We could not verify the payment for order <b>{{.OrderNumber}}</b>, so it has been cancelled.</p>
<p>If you believe this is a mistake, reply to this email or contact us on {{if .WhatsAppURL}}<a href="{{.WhatsAppURL}}">WhatsApp {{.WhatsAppPhone}}</a>{{else}}WhatsApp{{end}}.</p>
{{end}}</body></html>{{end}}
`))

type mailData struct {
	Name             string
	OrderNumber      string
	Items            []model.OrderItem
	Currency         string
	Total            string
	WindowHours      int
	OrderURL         string
	SubscriptionsURL string
	WhatsAppPhone    string
	WhatsAppURL      string
	Approved         bool
}

func (m *Mailer) data(order *model.Order, customer *model.User) mailData {
	return mailData{
		Name:             customer.Name,
		OrderNumber:      order.OrderNumber,
		Items:            order.Items,
		Currency:         m.currency,
		Total:            order.TotalAmount.StringFixed(0),
		WindowHours:      int(VerificationWindow.Hours()),
		OrderURL:         m.siteURL + "/orders/" + order.OrderNumber,
		SubscriptionsURL: m.siteURL + "/subscriptions",
		WhatsAppPhone:    m.whatsapp,
		WhatsAppURL:      WhatsAppLink(m.whatsapp),
		Approved:         order.Status == model.OrderStatusCompleted,
	}
}

func (m *Mailer) render(name string, data mailData) (string, error) {
	var buf bytes.Buffer
	if err := mailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s email: %w", name, err)
	}
	return buf.String(), nil
}

func (m *Mailer) SendOrderConfirmation(ctx context.Context, order *model.Order, customer *model.User) error {
	body, err := m.render("confirmation", m.data(order, customer))
	if err != nil {
		return err
	}
	return m.deliver(ctx, order.RecipientFor(customer), fmt.Sprintf("Order %s received", order.OrderNumber), body)
}

func (m *Mailer) SendOrderStatus(ctx context.Context, order *model.Order, customer *model.User) error {
	data := m.data(order, customer)
	body, err := m.render("status", data)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Order %s cancelled", order.OrderNumber)
	if data.Approved {
		subject = fmt.Sprintf("Order %s approved", order.OrderNumber)
	}
	return m.deliver(ctx, order.RecipientFor(customer), subject, body)
}

// deliver bounds the SMTP round trip by ctx; gomail itself has no deadline.
func (m *Mailer) deliver(ctx context.Context, to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	done := make(chan error, 1)
	go func() { done <- m.send(msg) }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send email to %s: %w", to, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send email to %s: %w", to, ctx.Err())
	}
}
