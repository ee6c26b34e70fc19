// Package replytext renders engine replies as chat messages in English or
// Japanese.
package replytext

import (
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/kardianos/gatelist"
)

// Default is used when the requested locale matches nothing supported.
var Default = language.Japanese

var supported = []language.Tag{language.Japanese, language.English}

// Renderer turns replies into text.
type Renderer struct {
	catalog  *catalog.Builder
	tags     []language.Tag
	matcher  language.Matcher
	fallback language.Tag
}

// New returns a renderer with the built-in catalogs. fallback selects the
// language for empty or unknown locales; the zero tag uses Default.
func New(fallback language.Tag) *Renderer {
	if fallback == language.Und {
		fallback = Default
	}
	b := catalog.NewBuilder(catalog.Fallback(fallback))
	for tag, msgs := range messages {
		for key, text := range msgs {
			// Keys and tags are static; SetString only fails on malformed input.
			if err := b.SetString(tag, key, text); err != nil {
				panic(err)
			}
		}
	}

	// The fallback goes first so ties resolve to it.
	tags := []language.Tag{fallback}
	for _, t := range supported {
		if t != fallback {
			tags = append(tags, t)
		}
	}
	return &Renderer{
		catalog:  b,
		tags:     tags,
		matcher:  language.NewMatcher(tags),
		fallback: fallback,
	}
}

// Tag returns the supported language that best matches locale, which may be
// a BCP 47 tag or an Accept-Language header value.
func (r *Renderer) Tag(locale string) language.Tag {
	if strings.TrimSpace(locale) == "" {
		return r.fallback
	}
	tags, _, err := language.ParseAcceptLanguage(locale)
	if err != nil || len(tags) == 0 {
		return r.fallback
	}
	_, idx, conf := r.matcher.Match(tags...)
	if conf == language.No {
		return r.fallback
	}
	return r.tags[idx]
}

// Render returns the text for reply in the language best matching locale.
func (r *Renderer) Render(locale string, reply gatelist.Reply) string {
	p := message.NewPrinter(r.Tag(locale), message.Catalog(r.catalog))

	switch reply.Kind {
	case gatelist.KindRateLimited:
		secs := int(math.Ceil(reply.RetryAfter.Seconds()))
		if secs < 1 {
			secs = 1
		}
		return p.Sprintf(keyRateLimited, secs)
	case gatelist.KindList:
		var sb strings.Builder
		sb.WriteString(p.Sprintf(keyListHeader, strings.ToUpper(string(reply.Status))))
		for _, name := range reply.Names {
			sb.WriteString("\n- ")
			sb.WriteString(name)
		}
		return sb.String()
	case gatelist.KindEmpty:
		return p.Sprintf(keyEmpty, string(reply.Status))
	case gatelist.KindHelp:
		text := p.Sprintf(keyHelpUser)
		if reply.Reviewer {
			text += "\n\n" + p.Sprintf(keyHelpReviewer)
		}
		return text
	case gatelist.KindBadArgument:
		if reply.Command == gatelist.CommandList {
			return p.Sprintf(keyBadListArgument)
		}
		return p.Sprintf(keyBadArgument, reply.Command)
	case gatelist.KindUnknownCommand:
		return p.Sprintf(keyUnknownCommand)
	}

	m, ok := kindMessages[reply.Kind]
	if !ok {
		return p.Sprintf(keyInternal)
	}
	if m.gamertag {
		return p.Sprintf(m.key, reply.Gamertag)
	}
	return p.Sprintf(m.key)
}
