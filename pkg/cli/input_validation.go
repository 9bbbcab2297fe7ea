// Package cli validates command-line arguments before they reach the
// dispatcher, rejecting shell metacharacters, path traversal, and
// SQL-keyword payloads that have no legitimate place in an order id,
// account name, or config path.
package cli

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tommy-ca/gridtrader/internal/apperrors"
)

var sqlKeyword = regexp.MustCompile(`['"]\s*;\s*|\b(DROP|DELETE|UPDATE|INSERT)\b`)

// ValidateInput rejects input containing shell command chaining,
// path traversal, or SQL-injection-shaped payloads. Empty input and
// ordinary whitespace-separated arguments pass.
func ValidateInput(input string) error {
	if strings.Contains(input, ";") || strings.Contains(input, "&&") || strings.Contains(input, "||") {
		return fmt.Errorf("cli: %q: %w", input, apperrors.ErrInvalidArgument)
	}
	if strings.Contains(input, "../") || strings.Contains(input, "..\\") {
		return fmt.Errorf("cli: %q: %w", input, apperrors.ErrInvalidArgument)
	}
	if sqlKeyword.MatchString(strings.ToUpper(input)) {
		return fmt.Errorf("cli: %q: %w", input, apperrors.ErrInvalidArgument)
	}
	return nil
}
