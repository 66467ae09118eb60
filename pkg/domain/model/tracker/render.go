package tracker

import (
	"fmt"
	"strings"
	"time"
)

const (
	relayMarkerOpen = "<!-- DISCORD_MESSAGE:"

	// EchoPrefix starts messages posted into Discord by the GitHub side of the bridge
	EchoPrefix = "[GitHub]"
)

var markdownLinkEscaper = strings.NewReplacer("[", `\[`, "]", `\]`)

// RenderSyncComment renders the digest comment: the tracker blob, one collapsible block per message and a footer.
// The output depends only on its arguments, so the same state renders byte-identically.
func RenderSyncComment(threadURL string, messages []SyncedMessage, lastAuthorIsTeamMember *bool, now time.Time) (string, error) {
	blob, err := encode(NewData(messages, lastAuthorIsTeamMember, now))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(blob)
	b.WriteString("\n")
	fmt.Fprintf(&b, "### 💬 Discord thread · %s\n\n", countLabel(len(messages), "message"))

	for _, msg := range messages {
		fmt.Fprintf(&b, "<details>\n<summary><b><a href=\"%s\">%s</a></b> · %s</summary>\n\n",
			msg.MessageURL, htmlEscaper.Replace(msg.Author), RelativeTime(msg.Timestamp, now))
		b.WriteString(strings.TrimSpace(msg.Content))
		b.WriteString("\n\n</details>\n\n")
	}

	b.WriteString(footer(threadURL, now))
	return b.String(), nil
}

// RenderStateComment renders the compact comment used by relay mode: the blob and the footer only
func RenderStateComment(threadURL string, data *SyncTrackerData, now time.Time) (string, error) {
	blob, err := encode(NewData(data.Messages, data.LastAuthorIsTeamMember, now))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(blob)
	b.WriteString("\n")
	fmt.Fprintf(&b, "_Relaying Discord thread messages to this issue (%s so far)._\n\n", countLabel(len(data.Messages), "message"))
	b.WriteString(footer(threadURL, now))
	return b.String(), nil
}

// RenderRelayComment renders a single relayed Discord message as its own GitHub comment
func RenderRelayComment(msg SyncedMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s -->\n", relayMarkerOpen, msg.ID)
	fmt.Fprintf(&b, "**[%s](%s)** on Discord · %s\n\n",
		markdownLinkEscaper.Replace(msg.Author), msg.MessageURL, msg.Timestamp.UTC().Format("Jan 2, 2006 15:04 UTC"))

	for _, line := range strings.Split(strings.TrimSpace(msg.Content), "\n") {
		b.WriteString("> ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// IsGenerated reports whether body was written by the sync step, either a sync comment or a relayed message
func IsGenerated(body string) bool {
	return HasMarker(body) || strings.Contains(body, relayMarkerOpen)
}

// RelativeTime renders the age of t at now.
// Buckets switch exactly at 60 minutes, 24 hours and 7 days; older messages get an absolute date.
func RelativeTime(t, now time.Time) string {
	d := now.Sub(t)

	minutes := int(d / time.Minute)
	if minutes <= 0 {
		return "just now"
	}
	if minutes < 60 {
		return countLabel(minutes, "minute") + " ago"
	}

	hours := int(d / time.Hour)
	if hours < 24 {
		return countLabel(hours, "hour") + " ago"
	}

	days := hours / 24
	switch {
	case days == 1:
		return "yesterday"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	}

	if t.UTC().Year() == now.UTC().Year() {
		return t.UTC().Format("Jan 2")
	}
	return t.UTC().Format("Jan 2, 2006")
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func footer(threadURL string, now time.Time) string {
	return fmt.Sprintf("---\n🔗 [View thread on Discord](%s) · Last synced: %s\n",
		threadURL, now.UTC().Format("2006-01-02 15:04:05 UTC"))
}

func countLabel(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
