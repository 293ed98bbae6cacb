// Package htmlutil extracts trimmed text from parsed html.
package htmlutil

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func collectTextNodes(node *html.Node, out *[]string) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		text := strings.TrimSpace(node.Data)
		if text != "" {
			*out = append(*out, text)
		}
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		collectTextNodes(child, out)
	}
}

// JoinedText trims every text node under the selection, drops the empty ones
// and joins the rest with `sep`.
//
// ex. `<td>Vize : <b>80</b></td>` with sep " " is "Vize : 80".
func JoinedText(sel *goquery.Selection, sep string) string {
	var parts []string
	for _, n := range sel.Nodes {
		collectTextNodes(n, &parts)
	}
	return strings.Join(parts, sep)
}

// FlatText is JoinedText without a separator, cells of a table row are glued together.
func FlatText(sel *goquery.Selection) string {
	return JoinedText(sel, "")
}
