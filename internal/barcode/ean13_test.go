package barcode

import (
	"errors"
	"testing"
)

func TestValidateEAN13(t *testing.T) {
	valid := []string{
		"4006381333931",
		"8850999320113",
		"0000000000000",
	}
	for _, code := range valid {
		if err := ValidateEAN13(code); err != nil {
			t.Fatalf("ValidateEAN13(%q) = %v, want nil", code, err)
		}
	}

	invalid := []string{
		"4006381333932", // wrong check digit
		"400638133393",  // too short
		"40063813339311",
		"400638133393a",
		"",
	}
	for _, code := range invalid {
		if err := ValidateEAN13(code); !errors.Is(err, ErrInvalidBarcode) {
			t.Fatalf("ValidateEAN13(%q) = %v, want ErrInvalidBarcode", code, err)
		}
	}
}
