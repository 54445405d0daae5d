package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/joseph-ayodele/pageocr/constants"
)

const pageLabelFormat = "\n--- Page %d ---\n"

// DocumentText is the assembled output plus the per-page results it was built
// from, in ascending page order.
type DocumentText struct {
	Text  string
	Pages []PageResult
}

// FailedPages lists the pages that carry an error.
func (d DocumentText) FailedPages() []int {
	var out []int
	for _, p := range d.Pages {
		if !p.OK() {
			out = append(out, p.Page)
		}
	}
	return out
}

// Assemble joins page fragments in ascending page order, whatever order they
// arrive in. PDF pages are labeled "--- Page N ---"; a plain image is its own
// single unlabeled fragment.
func Assemble(kind string, pages []PageResult) string {
	if kind == constants.IMAGE && len(pages) == 1 {
		return pages[0].Fragment()
	}
	ordered := sortedByPage(pages)

	var b strings.Builder
	for _, p := range ordered {
		fmt.Fprintf(&b, pageLabelFormat, p.Page)
		b.WriteString(p.Fragment())
	}
	return b.String()
}

func sortedByPage(pages []PageResult) []PageResult {
	out := append([]PageResult(nil), pages...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Page < out[j].Page })
	return out
}
