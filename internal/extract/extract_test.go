package extract

import (
	"errors"
	"reflect"
	"testing"
)

func TestExtractFindsAndDeduplicatesCodes(t *testing.T) {
	doc := []byte(`
Voucher sheet 2026-08
Quota 2 GB x9f3a1 Concurrent devices 2
Quota 2 GB b22c4d Concurrent devices 2
Quota 2 GB x9f3a1 Concurrent devices 2
Quota 2 GB 00aa11 Concurrent devices 2
`)
	codes, errExtract := NewBatchTextExtractor().Extract(doc)
	if errExtract != nil {
		t.Fatalf("extract: %v", errExtract)
	}
	want := []string{"00aa11", "b22c4d", "x9f3a1"}
	if !reflect.DeepEqual(codes, want) {
		t.Fatalf("codes = %v, want %v", codes, want)
	}
}

func TestExtractRejectsWrongShapeCodes(t *testing.T) {
	doc := []byte(`
Quota 2 GB TOOLONGCODE Concurrent devices
Quota 2 GB ABC123 Concurrent devices
`)
	_, errExtract := NewBatchTextExtractor().Extract(doc)
	if !errors.Is(errExtract, ErrNoCodes) {
		t.Fatalf("expected ErrNoCodes, got %v", errExtract)
	}
}

func TestExtractEmptyDocument(t *testing.T) {
	_, errExtract := NewBatchTextExtractor().Extract(nil)
	if !errors.Is(errExtract, ErrNoCodes) {
		t.Fatalf("expected ErrNoCodes, got %v", errExtract)
	}
}
