package parser

import "strings"

const Unknown = "Unknown"

// Client is the platform a request came from, as far as the user agent
// tells.
type Client struct {
	OS      string `json:"os"`
	Browser string `json:"browser"`
}

func (c Client) Known() bool {
	return c.OS != Unknown || c.Browser != Unknown
}

type marker struct {
	token string
	name  string
}

// Order matters: Android agents also say "linux", iOS agents say "mac os",
// Edge and Opera also say "chrome", Chrome also says "safari".
var (
	osMarkers = []marker{
		{"android", "Android"},
		{"iphone", "iOS"},
		{"ipad", "iOS"},
		{"windows", "Windows"},
		{"mac os", "macOS"},
		{"linux", "Linux"},
	}
	browserMarkers = []marker{
		{"edg", "Edge"},
		{"opr/", "Opera"},
		{"firefox", "Firefox"},
		{"chrome", "Chrome"},
		{"safari", "Safari"},
	}
)

func ParseUserAgent(ua string) Client {
	ua = strings.ToLower(ua)
	return Client{OS: match(ua, osMarkers), Browser: match(ua, browserMarkers)}
}

func match(ua string, markers []marker) string {
	for _, m := range markers {
		if strings.Contains(ua, m.token) {
			return m.name
		}
	}
	return Unknown
}
