package core

import "fmt"

// renderSMS builds the SMS body carrying the code and an explicit expiry
// notice. Copy matches what customers already receive from the platform.
func renderSMS(code string, expiresInMinutes int) string {
	return fmt.Sprintf("Your ServXpert verification code is: %s. Valid for %d minutes. Do not share this code.", code, expiresInMinutes)
}

func renderEmailSubject() string {
	return "Your ServXpert verification code"
}

func renderEmailBody(code string, expiresInMinutes int) string {
	return fmt.Sprintf("Your ServXpert verification code is %s.\n\nIt is valid for %d minutes. If you did not request this code, you can ignore this email.", code, expiresInMinutes)
}
