package domain

// Theme names one of the storefront color palettes
type Theme string

const (
	ThemeBlue   Theme = "blue"
	ThemeGreen  Theme = "green"
	ThemePurple Theme = "purple"
	ThemeOrange Theme = "orange"
	ThemeDark   Theme = "dark"
)

// Themes lists every palette the storefront knows how to render
var Themes = []Theme{ThemeBlue, ThemeGreen, ThemePurple, ThemeOrange, ThemeDark}

// Valid reports whether t is a known palette
func (t Theme) Valid() bool {
	for _, known := range Themes {
		if t == known {
			return true
		}
	}
	return false
}

// AppConfig is the app-wide configuration managed from the admin panel
type AppConfig struct {
	AppName         string `json:"app_name"`
	AppDescription  string `json:"app_description"`
	Theme           Theme  `json:"theme"`
	WhatsappNumber  string `json:"whatsapp_number"`
	BusinessHours   string `json:"business_hours"`
	BusinessAddress string `json:"business_address"`
	LogoURL         string `json:"logo_url"`
	InitialInfo     string `json:"initialinfo"`
}

// DefaultAppConfig is shown until the backend configuration is loaded
func DefaultAppConfig() AppConfig {
	return AppConfig{
		AppName:         "Minimarket",
		AppDescription:  "Your neighbourhood minimarket",
		Theme:           ThemeBlue,
		WhatsappNumber:  "",
		BusinessHours:   "Mon-Sat 8:00-20:00",
		BusinessAddress: "",
		LogoURL:         "",
		InitialInfo:     "",
	}
}
