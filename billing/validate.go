package billing

import (
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("cpfcnpj", validateCpfCnpj); err != nil {
		panic(err)
	}
	v.RegisterStructValidation(validateSubscriptionRequest, SubscriptionRequest{})
	return v
}

func validateCpfCnpj(fl validator.FieldLevel) bool {
	return ValidCpfCnpj(fl.Field().String())
}

// validateSubscriptionRequest covers the cross-field rules: card data
// is mandatory for card payments and the expiry must not be in the
// past.
func validateSubscriptionRequest(sl validator.StructLevel) {
	req := sl.Current().Interface().(SubscriptionRequest)
	if req.BillingType != BillingCreditCard {
		return
	}

	if req.CreditCard == nil {
		sl.ReportError(req.CreditCard, "CreditCard", "creditCard", "required_for_card", "")
		return
	}
	if req.HolderInfo == nil {
		sl.ReportError(req.HolderInfo, "HolderInfo", "creditCardHolderInfo", "required_for_card", "")
	}

	month, errM := strconv.Atoi(req.CreditCard.ExpiryMonth)
	year, errY := strconv.Atoi(req.CreditCard.ExpiryYear)
	if errM != nil || errY != nil || month < 1 || month > 12 {
		sl.ReportError(req.CreditCard.ExpiryMonth, "ExpiryMonth", "expiryMonth", "expiry", "")
		return
	}
	now := NowTimeFunc()
	if year < now.Year() || (year == now.Year() && time.Month(month) < now.Month()) {
		sl.ReportError(req.CreditCard.ExpiryMonth, "ExpiryMonth", "expiryMonth", "expired_card", "")
	}
}

// Validate checks a subscription request, returning *ValidationError
// listing every rejected field.
func Validate(req *SubscriptionRequest) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Namespace())
	}
	return &ValidationError{Fields: fields}
}

// ValidCpfCnpj accepts either document type, digits only or with the
// usual punctuation.
func ValidCpfCnpj(doc string) bool {
	digits := stripNonDigits(doc)
	switch len(digits) {
	case 11:
		return validCPF(digits)
	case 14:
		return validCNPJ(digits)
	default:
		return false
	}
}

func stripNonDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func allSameDigit(digits string) bool {
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			return false
		}
	}
	return true
}

// validCPF runs the mod-11 double check digit algorithm. Sequences of a
// single repeated digit pass the checksum but are not real documents.
func validCPF(digits string) bool {
	if allSameDigit(digits) {
		return false
	}

	sum := 0
	for i := 0; i < 9; i++ {
		sum += int(digits[i]-'0') * (10 - i)
	}
	check := (sum * 10) % 11
	if check == 10 {
		check = 0
	}
	if check != int(digits[9]-'0') {
		return false
	}

	sum = 0
	for i := 0; i < 10; i++ {
		sum += int(digits[i]-'0') * (11 - i)
	}
	check = (sum * 10) % 11
	if check == 10 {
		check = 0
	}
	return check == int(digits[10]-'0')
}

var (
	cnpjWeightsFirst  = []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	cnpjWeightsSecond = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

func validCNPJ(digits string) bool {
	if allSameDigit(digits) {
		return false
	}

	check := cnpjCheckDigit(digits[:12], cnpjWeightsFirst)
	if check != int(digits[12]-'0') {
		return false
	}
	check = cnpjCheckDigit(digits[:13], cnpjWeightsSecond)
	return check == int(digits[13]-'0')
}

func cnpjCheckDigit(digits string, weights []int) int {
	sum := 0
	for i, w := range weights {
		sum += int(digits[i]-'0') * w
	}
	rest := sum % 11
	if rest < 2 {
		return 0
	}
	return 11 - rest
}
