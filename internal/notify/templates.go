package notify

import (
	"fmt"
	"html/template"

	"storefront-service/internal/model"
)

type confirmationData struct {
	Brand       string
	Order       *model.Order
	Credentials *model.Credentials
}

type statusData struct {
	Brand  string
	Order  *model.Order
	Status string
}

type codeData struct {
	Brand    string
	Username string
	Code     string
	Purpose  string
}

var funcs = template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("KES %.2f", v) },
	"lineTotal": func(it model.OrderItem) float64 {
		price := it.Price
		if it.OfferPrice != nil {
			price = *it.OfferPrice
		}
		return price * float64(it.Quantity)
	},
}

var confirmationTmpl = template.Must(template.New("confirmation").Funcs(funcs).Parse(`<!DOCTYPE html>
<html><body>
<h2>{{.Brand}}: thank you for your order</h2>
<p>Order <strong>#{{.Order.OrderNumber}}</strong> placed on {{.Order.CreatedAt.Format "02 Jan 2006 15:04"}}.</p>
<table>
<tr><th align="left">Item</th><th>Qty</th><th align="right">Total</th></tr>
{{range .Order.Items}}<tr><td>{{.Name}}</td><td align="center">{{.Quantity}}</td><td align="right">{{money (lineTotal .)}}</td></tr>
{{end}}</table>
<p>Subtotal: {{money .Order.Subtotal}}<br>
{{if .Order.Discount}}Discount: -{{money .Order.Discount}}<br>{{end}}
Shipping ({{.Order.ShippingMethod.Destination}}): {{money .Order.ShippingFee}}<br>
<strong>Total: {{money .Order.Total}}</strong></p>
<p>Payment method: {{.Order.PaymentMethod}} ({{.Order.PaymentStatus}})</p>
<p>Delivery to: {{with .Order.ShippingAddress}}{{.FirstName}} {{.LastName}}, {{.Address}}{{if .Apartment}}, {{.Apartment}}{{end}}, {{.City}} {{.PostalCode}}{{end}}<br>
Estimated delivery: {{.Order.ShippingMethod.DeliveryTime}}</p>
{{with .Credentials}}<p>We created an account for you.<br>
Username: <strong>{{.Username}}</strong><br>
Password: <strong>{{.Password}}</strong><br>
Please change your password after your first login.</p>{{end}}
</body></html>`))

var statusTmpl = template.Must(template.New("status").Funcs(funcs).Parse(`<!DOCTYPE html>
<html><body>
<h2>{{.Brand}}: order #{{.Order.OrderNumber}}</h2>
<p>Your order is now <strong>{{.Status}}</strong>.</p>
{{if .Order.AdminNote}}<p>Note: {{.Order.AdminNote}}</p>{{end}}
<p>Total: {{money .Order.Total}} &middot; Payment: {{.Order.PaymentStatus}}</p>
</body></html>`))

var codeTmpl = template.Must(template.New("code").Parse(`<!DOCTYPE html>
<html><body>
<p>Hi {{.Username}},</p>
<p>Use this code to {{.Purpose}} on {{.Brand}}:</p>
<h1 style="letter-spacing:4px">{{.Code}}</h1>
<p>The code expires in one hour. If you did not request it you can ignore this email.</p>
</body></html>`))
