package util

import (
	"fmt"
	"html/template"
	"net/url"
	"strings"
)

func NotBlank(value string) bool {
	return strings.TrimSpace(value) != ""
}

func IsURL(value string) bool {
	u, err := url.ParseRequestURI(value)
	if err != nil {
		return false
	}

	return u.Scheme != "" && u.Host != ""
}

func recruitLabel(recruiting bool) string {
	if recruiting {
		return "Recruiting"
	}
	return "Closed"
}

func meetingLabel(meetingType string) string {
	switch meetingType {
	case "online":
		return "Online"
	case "offline":
		return "Offline"
	default:
		return meetingType
	}
}

// headcount renders "joined/limit"; a zero limit means the group is uncapped.
func headcount(joined, limit int) string {
	if limit <= 0 {
		return fmt.Sprintf("%d", joined)
	}
	return fmt.Sprintf("%d/%d", joined, limit)
}

var TemplateFuncs = template.FuncMap{
	// Slice functions
	"join": strings.Join,

	// Group display
	"recruitLabel": recruitLabel,
	"meetingLabel": meetingLabel,
	"headcount":    headcount,
}
