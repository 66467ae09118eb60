package tracker

import "regexp"

var threadLinkPattern = regexp.MustCompile(`https://discord\.com/channels/\d+/(\d+)`)

// ExtractThreadID returns the thread id of the first Discord channel link in an issue body
func ExtractThreadID(body string) (string, bool) {
	if body == "" {
		return "", false
	}
	m := threadLinkPattern.FindStringSubmatch(body)
	if m == nil {
		return "", false
	}
	return m[1], true
}
