package forms

import (
	"strings"
	"unicode"
)

// MinPasswordLength is the shortest accepted password
const MinPasswordLength = 8

var commonPasswords = map[string]struct{}{}

func init() {
	for _, p := range strings.Fields(`
		password password1 password123 12345678 123456789 1234567890 qwerty123 qwertyuiop
		iloveyou sunshine princess football baseball welcome welcome1 abc12345 letmein1
		trustno1 superman starwars passw0rd admin123 administrator monkey123 dragon123
		11111111 00000000 87654321 asdfghjk zaq12wsx 1q2w3e4r qazwsxedc changeme
	`) {
		commonPasswords[p] = struct{}{}
	}
}

// ValidatePassword applies the password policy and returns every violated rule.
// username and email are used for the similarity check.
func ValidatePassword(password, username, email string) []string {
	var problems []string

	if tooSimilar(password, username, email) {
		problems = append(problems, "The password is too similar to the username.")
	}
	if len([]rune(password)) < MinPasswordLength {
		problems = append(problems, "This password is too short. It must contain at least 8 characters.")
	}
	if _, ok := commonPasswords[strings.ToLower(password)]; ok {
		problems = append(problems, "This password is too common.")
	}
	if password != "" && strings.IndexFunc(password, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
		problems = append(problems, "This password is entirely numeric.")
	}
	return problems
}

func tooSimilar(password, username, email string) bool {
	pw := strings.ToLower(password)
	if pw == "" {
		return false
	}
	candidates := []string{strings.ToLower(username)}
	if local, _, ok := strings.Cut(strings.ToLower(email), "@"); ok {
		candidates = append(candidates, local)
	}
	for _, c := range candidates {
		if len(c) < 3 {
			continue
		}
		if pw == c || strings.Contains(pw, c) || strings.Contains(c, pw) {
			return true
		}
	}
	return false
}
