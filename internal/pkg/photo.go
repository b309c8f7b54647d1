package pkg

import "strings"

// ResolvePhotoURL turns a stored photo reference into an absolute URL.
// Stored references are relative upload paths; http(s) references pass through.
func ResolvePhotoURL(baseURL string, ref *string) *string {
	if ref == nil {
		return nil
	}
	p := strings.TrimSpace(*ref)
	if p == "" {
		return nil
	}
	if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return &p
	}
	// uploads written on Windows hosts were stored with backslashes
	p = strings.TrimLeft(strings.ReplaceAll(p, "\\", "/"), "/")
	url := strings.TrimRight(baseURL, "/") + "/" + p
	return &url
}
