package notify

import "strings"

// translations maps backend messages to friendlier text. Keys are lower case.
var translations = map[string]string{
	"token no válido":                        "Your session has expired. Please sign in again.",
	"no hay token en la petición":            "Please sign in to continue.",
	"invalid credentials":                    "The email or password is incorrect.",
	"usuario o contraseña incorrectos":       "The email or password is incorrect.",
	"user is inactive":                       "This account has been deactivated.",
	"category already exists":                "A category with that name already exists.",
	"la categoría ya existe":                 "A category with that name already exists.",
	"category has products":                  "Move or delete the products in this category first.",
	"product not found":                      "That product no longer exists. The catalog will refresh.",
	"cannot delete the last admin":           "At least one admin account must remain.",
	"cannot deactivate the last active user": "At least one admin account must stay active.",
	"email already registered":               "Another admin already uses that email.",
}

// Translate returns the friendly text for a backend message, or the
// message itself when there is no mapping
func Translate(message string) string {
	if friendly, ok := translations[strings.ToLower(strings.TrimSpace(message))]; ok {
		return friendly
	}
	return message
}
