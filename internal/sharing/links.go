package sharing

import (
	"net/url"
	"strings"

	"resume-builder/resume/model"
)

const (
	defaultLinkDescription = "View my professional resume"
	defaultMetaDescription = "Professional Resume"
	linkDescriptionLimit   = 100
	metaDescriptionLimit   = 160
)

// Platforms a share can be tracked against. Anything else counts as "other".
var Platforms = []string{"linkedin", "twitter", "facebook", "whatsapp", "telegram", "email", "copy"}

// Links are the ready-made share URLs for each platform.
type Links struct {
	LinkedIn string `json:"linkedin"`
	Twitter  string `json:"twitter"`
	Facebook string `json:"facebook"`
	WhatsApp string `json:"whatsapp"`
	Telegram string `json:"telegram"`
	Email    string `json:"email"`
	Copy     string `json:"copy"`
}

// BuildLinks renders the social share URLs for a resume shared at shareURL.
func BuildLinks(r model.Resume, shareURL string) Links {
	u := encodeComponent(shareURL)
	title := encodeComponent("Check out my resume: " + displayName(r))
	desc := encodeComponent(describe(r, linkDescriptionLimit, defaultLinkDescription))
	return Links{
		LinkedIn: "https://www.linkedin.com/sharing/share-offsite/?url=" + u,
		Twitter:  "https://twitter.com/intent/tweet?url=" + u + "&text=" + title,
		Facebook: "https://www.facebook.com/sharer/sharer.php?u=" + u,
		WhatsApp: "https://wa.me/?text=" + title + "%20" + u,
		Telegram: "https://t.me/share/url?url=" + u + "&text=" + title,
		Email:    "mailto:?subject=" + title + "&body=" + desc + "%0A%0A" + shareURL,
		Copy:     shareURL,
	}
}

// Meta is the Open Graph style preview of a shared resume.
type Meta struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	Type        string `json:"type"`
}

func BuildMeta(r model.Resume, ownerName, shareURL string) Meta {
	return Meta{
		Title:       displayName(r),
		Description: describe(r, metaDescriptionLimit, defaultMetaDescription),
		Name:        ownerName,
		URL:         shareURL,
		Type:        "profile",
	}
}

// NormalizePlatform lowercases a tracked platform and folds unknown ones into "other".
func NormalizePlatform(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	for _, known := range Platforms {
		if p == known {
			return p
		}
	}
	return "other"
}

func displayName(r model.Resume) string {
	if name := model.Value(r.PersonalInfo.FullName); name != "" {
		return name
	}
	return r.Title
}

// describe returns the summary cut to limit runes, without an ellipsis.
func describe(r model.Resume, limit int, fallback string) string {
	summary := model.Value(r.PersonalInfo.Summary)
	if summary == "" {
		return fallback
	}
	runes := []rune(summary)
	if len(runes) <= limit {
		return summary
	}
	return string(runes[:limit])
}

// QueryEscape output differs from encodeURIComponent only in these sequences.
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// encodeComponent escapes like a browser's encodeURIComponent so shared
// links match what the web client builds.
func encodeComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}
