package barcode

import (
	"errors"
	"fmt"
)

var ErrInvalidBarcode = errors.New("invalid barcode")

// ValidateEAN13 checks length, digit content and the EAN-13 check digit:
// digits in odd positions weigh 1, even positions weigh 3, and the check
// digit is (10 - sum mod 10) mod 10.
func ValidateEAN13(code string) error {
	if len(code) != 13 {
		return fmt.Errorf("%w: %q is not 13 digits", ErrInvalidBarcode, code)
	}
	sum := 0
	for i := 0; i < 12; i++ {
		c := code[i]
		if c < '0' || c > '9' {
			return fmt.Errorf("%w: %q contains non-digit", ErrInvalidBarcode, code)
		}
		d := int(c - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	last := code[12]
	if last < '0' || last > '9' {
		return fmt.Errorf("%w: %q contains non-digit", ErrInvalidBarcode, code)
	}
	check := (10 - sum%10) % 10
	if int(last-'0') != check {
		return fmt.Errorf("%w: %q check digit mismatch", ErrInvalidBarcode, code)
	}
	return nil
}
