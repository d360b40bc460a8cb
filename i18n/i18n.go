// Package i18n translates lokey's own user-facing messages.
//
// Catalogs are embedded PO files under locales/<lang>/LC_MESSAGES/lokey.po,
// loaded by Init. Until Init is called T and N return their input.
//
//	i18n.Init("")  // LANGUAGE, LC_ALL, LC_MESSAGES, LANG
//	fmt.Println(i18n.T("No keys registered"))
//	fmt.Printf(i18n.N("%d key", "%d keys", n), n)
package i18n

import (
	"embed"
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"
)

//go:embed all:locales
var locales embed.FS

const domain = "lokey"

var (
	po   *gotext.Locale
	lang string
)

// Init loads the catalog of l, or of the environment's language when l is
// empty. Missing catalogs leave messages untranslated.
func Init(l string) {
	if l == "" {
		l = detectLanguage()
	}
	lang = l
	po = gotext.NewLocaleFSWithPath(l, locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
}

// Language returns the language selected by Init.
func Language() string {
	return lang
}

// T translates msgid.
func T(msgid string) string {
	if po == nil {
		return msgid
	}
	return po.Get(msgid)
}

// N translates a message with plural forms chosen by n.
func N(singular, plural string, n int) string {
	if po == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return po.GetN(singular, plural, n)
}

// detectLanguage follows GNU gettext priority:
// LANGUAGE > LC_ALL > LC_MESSAGES > LANG.
func detectLanguage() string {
	for _, env := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		val := os.Getenv(env)
		if env == "LANGUAGE" {
			val, _, _ = strings.Cut(val, ":")
		}
		val, _, _ = strings.Cut(val, ".") // ru_RU.UTF-8
		val, _, _ = strings.Cut(val, "@") // sr_RS@latin
		if val == "" || val == "C" || val == "POSIX" {
			continue
		}
		return val
	}
	return "en"
}
