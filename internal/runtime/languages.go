package runtime

import "fmt"

// languageImages maps a "{lang}:{version}" key to a concrete image
// reference, generalizing the runs-on -> image table the teacher's
// original docker runner used to the canonical lang/version pairing
// used across all backends.
var languageImages = map[string]string{
	"node:23":    "node:23",
	"node:22":    "node:22",
	"node:20":    "node:20",
	"node:18":    "node:18-slim",
	"python:3.14": "python:3.14-slim",
	"python:3.13": "python:3.13-slim",
	"python:3.12": "python:3.12-slim",
	"python:3.11": "python:3.11-slim",
	"go:1.23":    "golang:1.23-alpine",
	"go:1.22":    "golang:1.22-alpine",
	"go:1.20":    "golang:1.20-alpine",
	"ubuntu:24.04": "ubuntu:24.04",
	"ubuntu:22.04": "ubuntu:22.04",
	"ubuntu:20.04": "ubuntu:20.04",
	"debian:12":  "debian:12",
	"debian:11":  "debian:11",
	"alpine:3.19": "alpine:3.19",
	"alpine:3.18": "alpine:3.18",
}

// ResolveLanguageImage maps a lang/version pair to its concrete image
// reference, falling back to "{lang}:{version}" itself when unmapped (so
// callers can still pass through a bespoke tag).
func ResolveLanguageImage(lang, version string) string {
	if img, ok := languageImages[Key(lang, version)]; ok {
		return img
	}
	return fmt.Sprintf("%s:%s", lang, version)
}
