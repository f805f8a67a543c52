package api

import (
	"bytes"
	"fmt"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
)

// pdfPageCount reads the page count from the PDF's page tree without
// extracting content.
func pdfPageCount(data []byte) (n int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("malformed pdf: %v", rec)
		}
	}()
	return pdfapi.PageCount(bytes.NewReader(data), nil)
}
