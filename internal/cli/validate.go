package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fpang/postrender/internal/auth"
	"github.com/fpang/postrender/internal/operation"
)

// ValidationHint turns an API key check failure into a short operator hint.
func ValidationHint(err error) string {
	var validationErr *auth.ValidationError
	if !errors.As(err, &validationErr) {
		return "Unexpected error during API key validation"
	}
	switch validationErr.Kind {
	case auth.KindInvalidKey:
		return "Invalid API key. Set GEMINI_API_KEY or run scripts/setup-gpg-credentials.sh"
	case auth.KindNetwork:
		return "Network error. Please check your internet connection"
	case auth.KindQuota:
		return "API quota exceeded. Please try again later or check your usage limits"
	default:
		return "API key validation failed"
	}
}

// allOperations is the order "all" expands to: geometry first, grading last.
var allOperations = []string{
	operation.NameStabilize,
	operation.NameDenoise,
	operation.NameArtifactRemoval,
	operation.NameColorCorrect,
}

// ParseOperations splits a comma-separated operation list. Blank entries
// are dropped and "all" expands to allOperations. Names are not checked
// here; the engine reports unknown ones.
func ParseOperations(list string) ([]string, error) {
	var ops []string
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		switch name {
		case "":
			continue
		case "all":
			ops = append(ops, allOperations...)
		default:
			ops = append(ops, name)
		}
	}
	if len(ops) == 0 {
		return nil, fmt.Errorf("no operations in %q", list)
	}
	return ops, nil
}
