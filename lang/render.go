package lang

import "strings"

// Join renders a flat item sequence as text with separator written between
// adjacent non-empty fragments.
//
// Each item contributes its textual form. Items rendering to the empty
// string contribute nothing and attract no separator, so output never
// begins with a separator and never doubles one across an empty fragment.
// An empty sequence joins to the empty string.
func Join(items FlatSequence, separator string) string {
	var out strings.Builder

	wrote := false

	for _, item := range items {
		text := item.Text()
		if text == "" {
			continue
		}

		if wrote {
			out.WriteString(separator)
		}

		out.WriteString(text)

		wrote = true
	}

	return out.String()
}
