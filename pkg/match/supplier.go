package match

import (
	"fmt"
	"strings"
)

// NormalizeSupplierID normalizes a supplier tax identifier (CNPJ) to its
// canonical 14-digit form. Standard punctuation (dots, slash, dash, spaces)
// is stripped; any other shape is a validation error.
func NormalizeSupplierID(raw string) (string, error) {
	var digits strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == '.' || r == '/' || r == '-' || r == ' ':
			// punctuation accepted and discarded
		default:
			return "", fmt.Errorf("unexpected character %q in supplier identifier: %w", r, ErrInvalidSupplierID)
		}
	}

	normalized := digits.String()
	if len(normalized) != 14 {
		return "", fmt.Errorf("supplier identifier has %d digits: %w", len(normalized), ErrInvalidSupplierID)
	}

	return normalized, nil
}

// FormatSupplierID renders a canonical 14-digit identifier in the usual
// punctuated form (NN.NNN.NNN/NNNN-NN). Inputs that are not 14 digits are
// returned unchanged.
func FormatSupplierID(id string) string {
	if len(id) != 14 {
		return id
	}
	return fmt.Sprintf("%s.%s.%s/%s-%s", id[0:2], id[2:5], id[5:8], id[8:12], id[12:14])
}
