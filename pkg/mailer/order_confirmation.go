package mailer

import (
	"fmt"
	"html/template"
	"strings"
)

// OrderEmailItem is one purchased line in the confirmation email.
type OrderEmailItem struct {
	Title     string
	Quantity  int
	LineTotal float64
}

// OrderEmailData feeds the confirmation template.
type OrderEmailData struct {
	OrderNumber  string
	FirstName    string
	Items        []OrderEmailItem
	Subtotal     float64
	ShippingCost float64
	Discount     float64
	TaxAmount    float64
	Total        float64
	AddressLines []string
	SiteURL      string
}

var confirmationTmpl = template.Must(template.New("order_confirmation").Funcs(template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("$%.2f", v) },
}).Parse(`<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto;color:#333">
  <div style="background:#0D7377;padding:24px;text-align:center">
    <h1 style="color:white;margin:0;font-size:24px">Refurbd</h1>
  </div>
  <div style="padding:24px">
    <h2 style="color:#0D7377">Thank you for your order!</h2>
    <p>Hi {{.FirstName}},</p>
    <p>Your order <strong>{{.OrderNumber}}</strong> has been confirmed. We'll notify you when it ships.</p>
    <h3 style="margin-top:24px">Order Summary</h3>
    <table style="width:100%;border-collapse:collapse">
      <thead>
        <tr style="border-bottom:2px solid #0D7377">
          <th style="text-align:left;padding:8px 0">Item</th>
          <th style="text-align:center;padding:8px 0">Qty</th>
          <th style="text-align:right;padding:8px 0">Price</th>
        </tr>
      </thead>
      <tbody>
        {{range .Items}}<tr>
          <td style="padding:8px 0;border-bottom:1px solid #eee">{{.Title}}</td>
          <td style="padding:8px 0;border-bottom:1px solid #eee;text-align:center">{{.Quantity}}</td>
          <td style="padding:8px 0;border-bottom:1px solid #eee;text-align:right">{{money .LineTotal}}</td>
        </tr>{{end}}
      </tbody>
    </table>
    <div style="margin-top:16px;text-align:right">
      <p style="margin:4px 0">Subtotal: <strong>{{money .Subtotal}}</strong></p>
      <p style="margin:4px 0">Shipping: <strong>{{if eq .ShippingCost 0.0}}Free{{else}}{{money .ShippingCost}}{{end}}</strong></p>
      {{if gt .Discount 0.0}}<p style="margin:4px 0;color:#10B981">Discount: <strong>-{{money .Discount}}</strong></p>{{end}}
      <p style="margin:8px 0;font-size:18px;color:#0D7377">Total: <strong>{{money .Total}}</strong></p>
      <p style="margin:4px 0;font-size:12px;color:#999">GST included: {{money .TaxAmount}}</p>
    </div>
    <h3 style="margin-top:24px">Shipping To</h3>
    {{range .AddressLines}}<p style="margin:4px 0">{{.}}</p>{{end}}
    <p style="margin-top:24px;font-size:14px">
      Questions? Reply to this email or visit <a href="{{.SiteURL}}/contact" style="color:#0D7377">our contact page</a>.
    </p>
  </div>
  <div style="background:#f8f8f8;padding:16px;text-align:center;font-size:12px;color:#999">
    <p style="margin:0">Refurbd — Premium Refurbished Tech</p>
    <p style="margin:4px 0">12-Month Warranty | 30-Day Returns | Secure Payments</p>
  </div>
</div>`))

// BuildOrderConfirmation renders the confirmation email subject and body.
func BuildOrderConfirmation(data OrderEmailData) (subject, html string, err error) {
	var buf strings.Builder
	if err := confirmationTmpl.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("failed to render order confirmation: %w", err)
	}
	return fmt.Sprintf("Order Confirmed — %s", data.OrderNumber), buf.String(), nil
}
