package htmlform

import (
	"io"
	"net/url"

	"github.com/pkg/errors"
	"golang.org/x/net/html"
)

// Inputs parses an HTML document and returns the name/value pairs of every
// input element inside the form with the given id. Sign-in pages embed
// CSRF-style hidden fields this way; the markup is a brittle external
// contract, so the walk is kept deliberately dumb.
func Inputs(r io.Reader, formID string) (url.Values, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, errors.Wrap(err, "parse html")
	}
	form := findForm(doc, formID)
	if form == nil {
		return nil, errors.Errorf("form %q not found", formID)
	}
	values := url.Values{}
	collectInputs(form, values)
	return values, nil
}

func findForm(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode && n.Data == "form" && attr(n, "id") == id {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findForm(c, id); found != nil {
			return found
		}
	}
	return nil
}

func collectInputs(n *html.Node, values url.Values) {
	if n.Type == html.ElementNode && n.Data == "input" {
		if name := attr(n, "name"); name != "" {
			values.Set(name, attr(n, "value"))
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectInputs(c, values)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
