// Package extract pulls voucher codes out of uploaded batch documents.
// Extraction is a pure text operation behind the CodeExtractor
// interface; the shipped implementation scans the document's text layer.
package extract

import (
	"errors"
	"regexp"
	"sort"
)

// ErrNoCodes indicates the document contained no recognizable codes.
var ErrNoCodes = errors.New("extract: no voucher codes found")

// CodeExtractor turns a raw batch document into a deduplicated set of
// voucher codes.
type CodeExtractor interface {
	Extract(document []byte) ([]string, error)
}

// Scanned voucher sheets print each code between a quota line and a
// device-count line; the code itself is six lowercase alphanumerics.
var codePattern = regexp.MustCompile(`Quota\s+2\s+GB\s+([a-z0-9]{6})\s+Concurrent\s+devices`)

// BatchTextExtractor extracts codes from the text layer of a scanned
// voucher batch document.
type BatchTextExtractor struct{}

// NewBatchTextExtractor constructs the default extractor.
func NewBatchTextExtractor() *BatchTextExtractor {
	return &BatchTextExtractor{}
}

// Extract returns the deduplicated, sorted codes found in document.
// Zero matches is an ErrNoCodes failure.
func (e *BatchTextExtractor) Extract(document []byte) ([]string, error) {
	matches := codePattern.FindAllSubmatch(document, -1)
	if len(matches) == 0 {
		return nil, ErrNoCodes
	}

	seen := make(map[string]struct{}, len(matches))
	codes := make([]string, 0, len(matches))
	for _, match := range matches {
		code := string(match[1])
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes, nil
}
