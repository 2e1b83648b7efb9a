package entities

// PrescriptionType is the dispensing category of a package. Unknown codes are
// kept verbatim.
type PrescriptionType string

const (
	PrescriptionRp  PrescriptionType = "Rp"
	PrescriptionRpz PrescriptionType = "Rpz"
	PrescriptionRpw PrescriptionType = "Rpw"
	PrescriptionOTC PrescriptionType = "OTC"
	PrescriptionLz  PrescriptionType = "Lz"
)

type RefundationStatus string

const (
	RefundationRefunded RefundationStatus = "refunded"
	RefundationPartial  RefundationStatus = "partial"
	RefundationNone     RefundationStatus = "none"
)

// Package is one distribution unit of a Drug. At most one of Percentage,
// Price and PatientPayment is set, depending on which refundation rule fired.
type Package struct {
	EAN                string            `json:"ean"`
	PrescriptionType   PrescriptionType  `json:"prescriptionType"`
	RegistrationNumber string            `json:"registrationNumber"`
	Description        string            `json:"description"`
	Size               string            `json:"size"`
	RefundationStatus  RefundationStatus `json:"refundationStatus"`
	Percentage         *float64          `json:"percentage,omitempty"`
	Price              *float64          `json:"price,omitempty"`
	RefundationPrice   *float64          `json:"refundationPrice,omitempty"`
	PatientPayment     *float64          `json:"patientPayment,omitempty"`
}
