package loader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
)

// loadPDF extracts text page by page. Pages without text (scans, images)
// are skipped; each kept page is prefixed with its number.
func loadPDF(path string) (string, int, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	n := r.NumPage()
	parts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		txt, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		txt = strings.TrimSpace(txt)
		if txt == "" {
			continue
		}
		parts = append(parts, "Page "+strconv.Itoa(i)+"\n"+txt)
	}

	return strings.Join(parts, "\n\n"), len(parts), nil
}
