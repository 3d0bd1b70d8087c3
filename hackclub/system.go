package hackclub

import (
	"strings"
	"time"
)

const systemIntro = `You are a helpful, knowledgeable assistant for Hack Club members.
Today's date is {{current_date}}.

Answer directly and concretely. When you are unsure, say so rather than
guessing. Keep answers as short as the question allows.`

const systemConduct = `Follow the Hack Club Code of Conduct: be respectful and inclusive,
never produce harassing or discriminatory content, and decline requests
that would help someone harm themselves or others.`

const systemFormat = `Format responses in Markdown. Use fenced code blocks with a language
tag for code. Prefer short paragraphs and lists over long prose.`

const systemWebSearch = `You have web search results available. Cite the sources you rely on
and prefer recent information over your training data when they conflict.`

// SystemPrompt assembles the system message from its sections, substituting
// the current date. The web-search section is only included when the
// request enabled web search.
func SystemPrompt(webSearch bool) string {
	sections := []string{
		strings.ReplaceAll(systemIntro, "{{current_date}}", time.Now().Format("1/2/2006")),
		systemConduct,
		systemFormat,
	}
	if webSearch {
		sections = append(sections, systemWebSearch)
	}
	return strings.TrimSpace(strings.Join(sections, "\n\n\n"))
}
