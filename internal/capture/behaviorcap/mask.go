package behaviorcap

import "strings"

var sensitiveInputTypes = map[string]bool{
	"password":    true,
	"email":       true,
	"tel":         true,
	"credit-card": true,
	"ssn":         true,
}

var sensitiveNameKeywords = []string{
	"password", "pass", "pwd", "email", "phone", "tel",
	"credit", "card", "ssn", "social",
}

// IsSensitiveInput reports whether an input/change target should be
// masked: either its type is one of the always-sensitive types, or its
// name/id contains one of the sensitive-keyword substrings.
func IsSensitiveInput(inputType, name, id string) bool {
	if sensitiveInputTypes[strings.ToLower(inputType)] {
		return true
	}
	lowerName := strings.ToLower(name)
	lowerID := strings.ToLower(id)
	for _, kw := range sensitiveNameKeywords {
		if strings.Contains(lowerName, kw) || strings.Contains(lowerID, kw) {
			return true
		}
	}
	return false
}
