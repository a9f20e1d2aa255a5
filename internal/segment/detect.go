package segment

import "strings"

type languageRule struct {
	language string
	matches  func(code string) bool
}

func containsAny(markers ...string) func(string) bool {
	return func(code string) bool {
		for _, m := range markers {
			if strings.Contains(code, m) {
				return true
			}
		}
		return false
	}
}

// Rules are checked in order and the first match wins. Rarer, more specific
// markers come first; tests depend on this order.
var languageRules = []languageRule{
	{"typescript", containsAny("import React", "export const", "useState")},
	{"python", containsAny("def ", "import ")},
	{"java", containsAny("public class", "System.out")},
	{"cpp", containsAny("#include", "int main")},
	{"sql", containsAny("SELECT", "CREATE TABLE")},
	{"html", containsAny("<html>", "<div>")},
	{"css", func(code string) bool {
		return strings.Contains(code, "{") && strings.Contains(code, "}")
	}},
}

// PlainLanguage is returned when no rule matches.
const PlainLanguage = "plaintext"

// DetectLanguage guesses the language of an isolated code snippet.
func DetectLanguage(code string) string {
	for _, r := range languageRules {
		if r.matches(code) {
			return r.language
		}
	}
	return PlainLanguage
}
