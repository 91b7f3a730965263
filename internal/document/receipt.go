package document

import (
	"github.com/shopspring/decimal"

	"github.com/iliyamo/hospital-frontdesk/internal/model"
)

// PaymentStatusOf classifies a payment against a total.  Nothing paid is
// unpaid even when the total is zero.
func PaymentStatusOf(total, paid decimal.Decimal) PaymentStatus {
	switch {
	case !paid.IsPositive():
		return PaymentUnpaid
	case paid.GreaterThanOrEqual(total):
		return PaymentPaid
	default:
		return PaymentPartial
	}
}

// BalanceDue is total minus paid, never below zero.
func BalanceDue(total, paid decimal.Decimal) decimal.Decimal {
	b := total.Sub(paid)
	if b.IsNegative() {
		return decimal.Zero
	}
	return b
}

func (r *Renderer) fillReceipt(doc *RenderedDocument, adm *model.Admission, opts RenderOptions) {
	items := opts.LineItems
	if len(items) == 0 {
		items = []LineItem{{Description: "Admission deposit", Amount: adm.Deposit}}
	}
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Amount)
	}
	paid := decimal.Zero
	if opts.AmountPaid != nil && opts.AmountPaid.IsPositive() {
		paid = *opts.AmountPaid
	}
	balance := BalanceDue(total, paid)
	status := PaymentStatusOf(total, paid)

	doc.Title = "Receipt"
	doc.LineItems = items
	doc.Total = total
	doc.AmountPaid = &paid
	doc.BalanceDue = &balance
	doc.PaymentStatus = status

	f := doc.Fields
	f["receipt_date"] = formatDate(adm.AdmissionDate)
	f["room_number"] = adm.Snapshot.Room.RoomNumber
	f["total"] = total.StringFixed(2)
	f["amount_paid"] = paid.StringFixed(2)
	f["balance_due"] = balance.StringFixed(2)
	f["payment_status"] = string(status)
}
