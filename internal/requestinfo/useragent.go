// internal/requestinfo/useragent.go
//
// User-Agent parsing helpers.
//
// This file isolates the third-party `github.com/avct/uasurfer` API so the
// rest of the codebase never sees its enums or structs.  If we ever swap
// parsers again, only this file changes.
package requestinfo

import (
	"fmt"
	"strconv"
	"strings"

	surfer "github.com/avct/uasurfer"
)

// UA carries the parsed user-agent attributes.
//
// Example (Chrome on macOS):
//
//	Browser   "BrowserChrome"
//	Version   "125.0.6422"
//	OS        "OSMacOSX"
//	Device    "Desktop"
//
// Device will be one of: "Desktop", "Mobile", "Tablet", or "Other".
type UA struct {
	Browser     string `json:"browser"`
	Version     string `json:"version,omitempty"`
	OS          string `json:"os"`
	OSVersion   string `json:"os_version,omitempty"`
	Device      string `json:"device"`
	Platform    string `json:"platform"`
	IsBot       bool   `json:"is_bot"`
	PrimaryLang string `json:"primary_lang,omitempty"` // first Accept-Language tag
}

// parseUA converts a raw header into a UA struct.
func parseUA(raw, acceptLang string) UA {
	ua := surfer.Parse(raw)

	info := UA{
		Browser:     ua.Browser.Name.String(),
		Version:     versionToString(ua.Browser.Version),
		OS:          ua.OS.Name.String(),
		OSVersion:   versionToString(ua.OS.Version),
		Platform:    ua.OS.Platform.String(),
		IsBot:       ua.IsBot(),
		PrimaryLang: primaryLang(acceptLang),
	}

	switch ua.DeviceType {
	case surfer.DeviceComputer:
		info.Device = "Desktop"
	case surfer.DeviceTablet:
		info.Device = "Tablet"
	case surfer.DevicePhone, surfer.DeviceWearable:
		info.Device = "Mobile"
	default:
		info.Device = "Other"
	}

	return info
}

// versionToString renders a semantic version in dotted form while trimming
// trailing zeros, e.g. 17.0.0 → "17", 17.3.0 → "17.3", 17.3.1 → "17.3.1".
func versionToString(v surfer.Version) string {
	if v.Major == 0 && v.Minor == 0 && v.Patch == 0 {
		return ""
	}
	if v.Patch != 0 {
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	}
	if v.Minor != 0 {
		return fmt.Sprintf("%d.%d", v.Major, v.Minor)
	}
	return strconv.Itoa(int(v.Major))
}

// primaryLang extracts the first language subtag before any ";q=" rule.
func primaryLang(al string) string {
	if al == "" {
		return ""
	}
	tag := strings.TrimSpace(strings.Split(al, ",")[0])
	if i := strings.Index(tag, ";"); i != -1 {
		tag = tag[:i]
	}
	return strings.ToLower(tag)
}
