package format

import (
	"fmt"
	"net/http"
	"strings"

	"hookrelay/internal/payload"
	"hookrelay/pkg/tghtml"
)

const (
	titleCap       = 50
	commitCap      = 50
	maxCommitLines = 3
)

// GitHub detects GitHub-style webhooks by the X-GitHub-Event header, or by
// the repository+sender payload shape (event kind taken from "action").
func GitHub() Provider {
	return Provider{
		Name: "github",
		Detect: func(doc payload.Document, h http.Header) (string, bool) {
			if ev := h.Get("X-GitHub-Event"); ev != "" {
				return ev, true
			}
			if doc.Has("repository") && doc.Has("sender") {
				return doc.Str("action"), true
			}
			return "", false
		},
		Format: formatGitHub,
	}
}

func formatGitHub(event string, doc payload.Document) string {
	repo := payload.StrIn(doc.Map("repository"), "full_name")
	if repo == "" {
		repo = "unknown"
	}
	sender := payload.StrIn(doc.Map("sender"), "login")
	if sender == "" {
		sender = "unknown"
	}

	switch event {
	case "push":
		branch := strings.TrimPrefix(doc.Str("ref"), "refs/heads/")
		commits := doc.Slice("commits")
		lines := []string{
			"🔨 " + tghtml.B("Push to "+repo).String(),
			"Branch: " + tghtml.Code(branch).String(),
			"By: " + tghtml.Esc(sender).String(),
			fmt.Sprintf("Commits: %d", len(commits)),
		}
		for i, c := range commits {
			if i == maxCommitLines {
				break
			}
			cm, _ := c.(map[string]any)
			msg := tghtml.Clip(tghtml.FirstLine(payload.StrIn(cm, "message")), commitCap)
			lines = append(lines, "  • "+tghtml.Esc(msg).String())
		}
		if n := len(commits); n > maxCommitLines {
			lines = append(lines, fmt.Sprintf("  ... and %d more", n-maxCommitLines))
		}
		return strings.Join(lines, "\n")

	case "pull_request":
		pr := doc.Map("pull_request")
		return itemMessage("🔀", "PR", doc.Str("action"), pr, repo, sender)

	case "issues":
		return itemMessage("📋", "Issue", doc.Str("action"), doc.Map("issue"), repo, sender)

	case "star":
		verb := "starred"
		if doc.Str("action") == "deleted" {
			verb = "unstarred"
		}
		stars := "?"
		if n, ok := payload.NumIn(doc.Map("repository"), "stargazers_count"); ok {
			stars = formatNumber(n)
		}
		return "⭐ " + tghtml.B(repo).String() + "\n" +
			tghtml.Esc(sender).String() + " " + verb + "\nTotal: " + stars

	case "release":
		rel := doc.Map("release")
		tag := payload.StrIn(rel, "tag_name")
		if tag == "" {
			tag = "?"
		}
		return "🚀 " + tghtml.B("Release "+doc.Str("action")+": "+tag).String() + "\n" +
			tghtml.Esc(repo).String() + "\nBy: " + tghtml.Esc(sender).String()

	default:
		if event == "" {
			event = "event"
		}
		return "📦 " + tghtml.B("GitHub: "+event).String() + "\n" +
			tghtml.Esc(repo).String() + "\nBy: " + tghtml.Esc(sender).String()
	}
}

// itemMessage renders the shared PR/issue shape: number, action, title.
func itemMessage(emoji, kind, action string, item map[string]any, repo, sender string) string {
	number := "?"
	if n, ok := payload.NumIn(item, "number"); ok {
		number = formatNumber(n)
	}
	title := tghtml.Clip(payload.StrIn(item, "title"), titleCap)
	return emoji + " " + tghtml.B(kind+" #"+number+" "+action).String() + "\n" +
		tghtml.Esc(repo).String() + "\n" +
		tghtml.Esc(title).String() + "\nBy: " + tghtml.Esc(sender).String()
}
