package domain

import "strings"

// Client identifies the requesting playback client. It selects which
// capability table and tie-break branch is active and is immutable for the
// lifetime of a request.
type Client int

const (
	ClientNone Client = iota
	ClientAndroid
	ClientAndroidTV
	ClientChromecast
	ClientKodi
)

var clientNames = map[Client]string{
	ClientNone:       "none",
	ClientAndroid:    "android",
	ClientAndroidTV:  "androidtv",
	ClientChromecast: "chromecast",
	ClientKodi:       "kodi",
}

func (c Client) String() string {
	if name, ok := clientNames[c]; ok {
		return name
	}
	return "none"
}

// ParseClient maps a client identifier string to a Client. Unknown values
// resolve to ClientNone rather than an error.
func ParseClient(s string) Client {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "android":
		return ClientAndroid
	case "androidtv", "android-tv", "android_tv":
		return ClientAndroidTV
	case "chromecast":
		return ClientChromecast
	case "kodi":
		return ClientKodi
	default:
		return ClientNone
	}
}
