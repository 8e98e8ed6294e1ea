package app

const (
	Name = "text2qr"

	// HTTP defaults, matching the Flask app this replaces
	DefaultHost = "0.0.0.0"
	DefaultPort = 5000

	// Longest accepted form input, in characters
	DefaultMaxTextLength = 1000

	// Download name prefix; each response gets a unique suffix
	DownloadPrefix = "qrcode"
)

// Version is overridden at build time with -ldflags "-X ...app.Version=...".
var Version = "dev"
