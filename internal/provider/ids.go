package provider

import "regexp"

// PayPal identifier shapes, treated as external contract: orders are 17
// uppercase-alphanumeric characters, authorization and capture ids 17-20.
var (
	orderIDPattern   = regexp.MustCompile(`^[A-Z0-9]{17}$`)
	paymentIDPattern = regexp.MustCompile(`^[A-Z0-9]{17,20}$`)
)

func ValidateOrderID(id string) error {
	if !orderIDPattern.MatchString(id) {
		return newError(KindInvalidInput, "invalid paypal order id %q", id)
	}
	return nil
}

func ValidateAuthorizationID(id string) error {
	if !paymentIDPattern.MatchString(id) {
		return newError(KindInvalidInput, "invalid paypal authorization id %q", id)
	}
	return nil
}

func ValidateCaptureID(id string) error {
	if !paymentIDPattern.MatchString(id) {
		return newError(KindInvalidInput, "invalid paypal capture id %q", id)
	}
	return nil
}
