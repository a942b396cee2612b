package replay

import "strings"

// sensitiveAttributes are replaced with MaskedAttr wherever they appear
// on any element in the initial snapshot.
var sensitiveAttributes = map[string]bool{
	"data-secret":  true,
	"data-token":   true,
	"data-api-key": true,
}

// MaskedAttr is the literal value substituted for a sensitive attribute.
const MaskedAttr = "[MASKED]"

// MaskedSubtree is the literal text content substituted for an entire
// sensitive element's subtree.
const MaskedSubtree = "[MASKED]"

// sensitiveClassKeywords lists the class names that mark an element as
// sensitive: isSensitiveElement compares each class, case-insensitively,
// for an exact match against this list. Ids are not checked.
var sensitiveClassKeywords = []string{"password", "credit-card", "sensitive"}

// isSensitiveAttr reports whether attr is one of the fixed
// always-masked attribute names.
func isSensitiveAttr(attr string) bool {
	return sensitiveAttributes[strings.ToLower(attr)]
}

// isSensitiveElement reports whether an element (by tag, its `type`
// attribute if any, its attribute set, and its class list) matches the
// fixed sensitive-element selector set: input[type=password],
// input[type=email], input[type=tel], [data-sensitive], .password,
// .credit-card, .sensitive.
func isSensitiveElement(tag string, attrs map[string]string, classes []string) bool {
	tag = strings.ToLower(tag)
	if tag == "input" {
		switch strings.ToLower(attrs["type"]) {
		case "password", "email", "tel":
			return true
		}
	}
	if _, ok := attrs["data-sensitive"]; ok {
		return true
	}
	for _, c := range classes {
		lc := strings.ToLower(c)
		for _, kw := range sensitiveClassKeywords {
			if lc == kw {
				return true
			}
		}
	}
	return false
}
