package app

import (
	"io"
	"os"
)

const (
	Green  = "32"
	Yellow = "33"
	Bold   = "1"
)

// Color wraps text with an ANSI color code when w is a terminal and NO_COLOR
// is not set.
func Color(w io.Writer, text, code string) string {
	if code == "" || !colorEnabled(w) {
		return text
	}
	return "\x1b[" + code + "m" + text + "\x1b[0m"
}

func colorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	return IsTerminal(w)
}

// IsTerminal reports whether v, a reader or writer, is a character device
// such as a console.
func IsTerminal(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
