package models

type PaymentMode string

const (
	PaymentCash PaymentMode = "Cash"
	PaymentUPI  PaymentMode = "UPI"
	PaymentCard PaymentMode = "Card"
)

var PaymentModes = []PaymentMode{PaymentCash, PaymentUPI, PaymentCard}

func (m PaymentMode) Valid() bool {
	for _, known := range PaymentModes {
		if m == known {
			return true
		}
	}
	return false
}

type InvoiceRequest struct {
	PatientID   string      `json:"patientId"`
	Tests       []string    `json:"tests"`
	Discount    float64     `json:"discount"`
	PaidAmount  float64     `json:"paidAmount"`
	PaymentMode PaymentMode `json:"paymentMode"`
}

// Invoice is produced by the server. InvoiceIDs is the human-readable
// identifier used for every print and download lookup.
type Invoice struct {
	ID            string      `json:"_id"`
	InvoiceIDs    string      `json:"invoiceIds"`
	PatientID     string      `json:"patientId,omitempty"`
	TotalAmount   float64     `json:"totalAmount,omitempty"`
	Discount      float64     `json:"discount,omitempty"`
	PaidAmount    float64     `json:"paidAmount,omitempty"`
	BalanceAmount float64     `json:"balanceAmount,omitempty"`
	PaymentMode   PaymentMode `json:"paymentMode,omitempty"`
	CreatedAt     string      `json:"createdAt,omitempty"`
}

type InvoicePage struct {
	Invoices []Invoice `json:"invoices"`
	Page     int       `json:"page"`
	Pages    int       `json:"pages"`
}
