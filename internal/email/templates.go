package email

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

type TemplateName string

const (
	TemplateOrderPlaced     TemplateName = "order_placed"
	TemplatePaymentReceived TemplateName = "payment_received"
	TemplateOrderCancelled  TemplateName = "order_cancelled"
	TemplateOrderShipped    TemplateName = "order_shipped"
	TemplateOrderDelivered  TemplateName = "order_delivered"
)

// OrderInfo is the data every order template renders from. Money values are
// already formatted.
type OrderInfo struct {
	OrderNumber     string
	CustomerName    string
	CustomerEmail   string
	StoreName       string
	OrderDate       string
	Status          string
	PaymentMethod   string
	PaymentStatus   string
	ShippingAddress string
	TrackingNumber  string
	TrackingURL     string
	TrackingCarrier string
	Items           []OrderItem
	Subtotal        string
	Discount        string
	Shipping        string
	Tax             string
	Total           string
}

type OrderItem struct {
	Name       string
	Quantity   int
	UnitPrice  string
	TotalPrice string
}

type emailTemplate struct {
	subject string
	heading string
	lead    string
}

var orderTemplates = map[TemplateName]emailTemplate{
	TemplateOrderPlaced: {
		subject: "Order {{.OrderNumber}} received",
		heading: "Thank you for your order",
		lead:    "We have received your order and will let you know when it ships.",
	},
	TemplatePaymentReceived: {
		subject: "Payment received for order {{.OrderNumber}}",
		heading: "Payment received",
		lead:    "Your payment was successful and your order is confirmed.",
	},
	TemplateOrderCancelled: {
		subject: "Order {{.OrderNumber}} cancelled",
		heading: "Your order was cancelled",
		lead:    "Your order has been cancelled. If you already paid, our team will contact you about the refund.",
	},
	TemplateOrderShipped: {
		subject: "Order {{.OrderNumber}} has shipped",
		heading: "Your order is on its way",
		lead:    "Good news! Your order has left our warehouse.",
	},
	TemplateOrderDelivered: {
		subject: "Order {{.OrderNumber}} delivered",
		heading: "Your order was delivered",
		lead:    "We hope you enjoy your purchase.",
	},
}

const textBody = `{{.Heading}}

{{.Lead}}

Order Number: {{.Info.OrderNumber}}
Order Date: {{.Info.OrderDate}}
Status: {{.Info.Status}}
{{- if .Info.PaymentMethod}}
Payment: {{.Info.PaymentMethod}} ({{.Info.PaymentStatus}})
{{- end}}
{{if .Info.TrackingNumber}}
Carrier: {{.Info.TrackingCarrier}}
Tracking Number: {{.Info.TrackingNumber}}
{{- if .Info.TrackingURL}}
Track your package: {{.Info.TrackingURL}}
{{- end}}
{{end}}
Items:
{{- range .Info.Items}}
- {{.Name}} x{{.Quantity}} - {{.TotalPrice}}
{{- end}}

Subtotal: {{.Info.Subtotal}}
{{- if .Info.Discount}}
Discount: -{{.Info.Discount}}
{{- end}}
Shipping: {{.Info.Shipping}}
Tax: {{.Info.Tax}}
Total: {{.Info.Total}}

Shipping to:
{{.Info.ShippingAddress}}

Thank you for shopping with {{.Info.StoreName}}.
`

const htmlBody = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>{{.Heading}}</title>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
    .header { background: #0f766e; color: white; padding: 20px; text-align: center; border-radius: 8px 8px 0 0; }
    .content { background: #f9fafb; padding: 20px; border: 1px solid #e5e7eb; }
    table { width: 100%; border-collapse: collapse; margin: 15px 0; }
    th, td { text-align: left; padding: 8px; border-bottom: 1px solid #e5e7eb; }
    .total { font-weight: bold; text-align: right; }
  </style>
</head>
<body>
  <div class="header"><h1>{{.Heading}}</h1></div>
  <div class="content">
    <p>Hi {{.Info.CustomerName}}, {{.Lead}}</p>
    <p><strong>Order Number:</strong> {{.Info.OrderNumber}}<br><strong>Status:</strong> {{.Info.Status}}</p>
    {{if .Info.TrackingNumber}}
    <p><strong>{{.Info.TrackingCarrier}}</strong> {{.Info.TrackingNumber}}{{if .Info.TrackingURL}} &middot; <a href="{{.Info.TrackingURL}}">Track your package</a>{{end}}</p>
    {{end}}
    <table>
      <thead><tr><th>Item</th><th>Qty</th><th>Price</th></tr></thead>
      <tbody>
      {{range .Info.Items}}<tr><td>{{.Name}}</td><td>{{.Quantity}}</td><td>{{.TotalPrice}}</td></tr>
      {{end}}</tbody>
    </table>
    <p class="total">Subtotal: {{.Info.Subtotal}}<br>{{if .Info.Discount}}Discount: -{{.Info.Discount}}<br>{{end}}Shipping: {{.Info.Shipping}}<br>Tax: {{.Info.Tax}}<br>Total: {{.Info.Total}}</p>
    <p><strong>Shipping to</strong><br>{{.Info.ShippingAddress}}</p>
  </div>
  <p style="text-align:center;color:#6b7280">Thank you for shopping with {{.Info.StoreName}}.</p>
</body>
</html>
`

// Renderer renders order emails from the built-in templates.
type Renderer struct {
	text *texttemplate.Template
	html *htmltemplate.Template
}

func NewRenderer() (*Renderer, error) {
	text, err := texttemplate.New("text").Parse(textBody)
	if err != nil {
		return nil, fmt.Errorf("failed to parse text template: %w", err)
	}
	html, err := htmltemplate.New("html").Parse(htmlBody)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML template: %w", err)
	}
	return &Renderer{text: text, html: html}, nil
}

type templateData struct {
	Heading string
	Lead    string
	Info    *OrderInfo
}

func (r *Renderer) Render(name TemplateName, info *OrderInfo) (*Email, error) {
	if info == nil {
		return nil, fmt.Errorf("order info is required")
	}
	definition, ok := orderTemplates[name]
	if !ok {
		return nil, fmt.Errorf("unknown email template: %s", name)
	}

	subject, err := renderSubject(definition.subject, info)
	if err != nil {
		return nil, err
	}

	data := templateData{Heading: definition.heading, Lead: definition.lead, Info: info}
	var textBuf, htmlBuf bytes.Buffer
	if err := r.text.Execute(&textBuf, data); err != nil {
		return nil, fmt.Errorf("failed to render text template: %w", err)
	}
	if err := r.html.Execute(&htmlBuf, data); err != nil {
		return nil, fmt.Errorf("failed to render HTML template: %w", err)
	}

	return &Email{
		To:      info.CustomerEmail,
		Subject: subject,
		Text:    textBuf.String(),
		HTML:    htmlBuf.String(),
	}, nil
}

func renderSubject(pattern string, info *OrderInfo) (string, error) {
	tmpl, err := texttemplate.New("subject").Parse(pattern)
	if err != nil {
		return "", fmt.Errorf("failed to parse subject: %w", err)
	}
	var buf strings.Builder
	if err := tmpl.Execute(&buf, info); err != nil {
		return "", fmt.Errorf("failed to render subject: %w", err)
	}
	return buf.String(), nil
}
