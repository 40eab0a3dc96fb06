package entity

import "strings"

// PhoneNumberLength is the length of a local mobile number, e.g. 08031234567
const PhoneNumberLength = 11

// Carrier is a mobile network operator
type Carrier string

// Carriers
const (
	CarrierUnknown Carrier = ""
	CarrierMTN     Carrier = "MTN"
	CarrierGLO     Carrier = "GLO"
	CarrierAirtel  Carrier = "AIRTEL"
	Carrier9Mobile Carrier = "9MOBILE"
)

var carrierPrefixes = map[string]Carrier{
	"0803": CarrierMTN, "0806": CarrierMTN, "0703": CarrierMTN, "0706": CarrierMTN,
	"0813": CarrierMTN, "0816": CarrierMTN, "0903": CarrierMTN,

	"0805": CarrierGLO, "0807": CarrierGLO, "0705": CarrierGLO, "0815": CarrierGLO, "0905": CarrierGLO,

	"0802": CarrierAirtel, "0808": CarrierAirtel, "0708": CarrierAirtel, "0812": CarrierAirtel, "0902": CarrierAirtel,

	"0809": Carrier9Mobile, "0817": Carrier9Mobile, "0818": Carrier9Mobile, "0909": Carrier9Mobile,
}

// DetectCarrier maps the 4-digit prefix of a phone number to its carrier.
// It returns CarrierUnknown for short or unrecognized numbers.
func DetectCarrier(phone string) Carrier {
	phone = strings.TrimSpace(phone)
	if len(phone) < 4 {
		return CarrierUnknown
	}
	return carrierPrefixes[phone[:4]]
}

// ParseCarrier accepts a carrier name in any case
func ParseCarrier(s string) (Carrier, bool) {
	c := Carrier(strings.ToUpper(strings.TrimSpace(s)))
	switch c {
	case CarrierMTN, CarrierGLO, CarrierAirtel, Carrier9Mobile:
		return c, true
	}
	return CarrierUnknown, false
}

// IsValidPhone reports whether phone is exactly 11 digits
func IsValidPhone(phone string) bool {
	return len(phone) == PhoneNumberLength && isDigits(phone)
}
