package redstone

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
)

var (
	minifier *minify.M
	once     sync.Once
)

// getMinifier returns the shared minifier for generated documents and
// server programs.
func getMinifier() *minify.M {
	once.Do(func() {
		minifier = minify.New()
		minifier.Add("text/html", &html.Minifier{
			KeepDocumentTags: true,
			KeepEndTags:      true,
			KeepQuotes:       true,
		})
		minifier.AddFunc("text/css", css.Minify)
		minifier.AddFuncRegexp(regexp.MustCompile(`^(application|text)/(x-)?(java|ecma)script$`), js.Minify)
	})
	return minifier
}

// MinifyHTML compacts a generated document, including its inline scripts
// and styles. Template scripts are left as written.
func MinifyHTML(doc string) (string, error) {
	out, err := getMinifier().String("text/html", doc)
	if err != nil {
		return "", fmt.Errorf("minifying html: %w", err)
	}
	return out, nil
}

// MinifyJS compacts a server program.
func MinifyJS(src string) (string, error) {
	out, err := getMinifier().String("application/javascript", src)
	if err != nil {
		return "", fmt.Errorf("minifying javascript: %w", err)
	}
	return out, nil
}
