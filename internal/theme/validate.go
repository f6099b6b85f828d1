package theme

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	domainerrors "themeboard/internal/errors"
)

// MaxContentLength is the longest theme text accepted, in characters.
const MaxContentLength = 50

var contentRules = fmt.Sprintf("required,max=%d", MaxContentLength)

func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// normalizeContent trims raw and checks it is between 1 and
// MaxContentLength characters.
func (s *Service) normalizeContent(raw string) (string, error) {
	content := strings.TrimSpace(raw)
	if err := s.validate.Var(content, contentRules); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
			return "", domainerrors.Validation("Theme content is invalid")
		}
		switch fieldErrs[0].Tag() {
		case "required":
			return "", domainerrors.Validation("Theme cannot be empty")
		case "max":
			return "", domainerrors.Validation(fmt.Sprintf("Theme must be %d characters or less", MaxContentLength))
		default:
			return "", domainerrors.Validation("Theme content is invalid")
		}
	}
	return content, nil
}
