package domain

import "strings"

// memberNameSentinel is a placeholder prefix the directory renders in front of some names.
const memberNameSentinel = ".,"

// Record is one entry of the member directory.
type Record struct {
	MemberName   string
	Designations string
	Employer     string
	EmployerCity string
}

// CleanMemberName trims the raw header text and strips the leading sentinel.
// Cleaning an already clean name returns it unchanged.
func CleanMemberName(raw string) string {
	name := strings.TrimSpace(raw)
	for strings.HasPrefix(name, memberNameSentinel) {
		name = strings.TrimSpace(strings.TrimPrefix(name, memberNameSentinel))
	}
	return name
}

// Fingerprint returns the identifier of the first record, or "" for an empty page.
func Fingerprint(records []Record) string {
	if len(records) == 0 {
		return ""
	}
	return CleanMemberName(records[0].MemberName)
}
