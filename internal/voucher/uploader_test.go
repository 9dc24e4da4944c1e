package voucher

import (
	"context"
	"errors"
	"testing"

	"github.com/vpsvoucher/voucher-service/internal/extract"
	"github.com/vpsvoucher/voucher-service/internal/models"
)

type fakeExtractor struct {
	codes []string
	err   error
}

func (f *fakeExtractor) Extract(_ []byte) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.codes, nil
}

func TestUploadRequiresAdmin(t *testing.T) {
	db := openTestDB(t)
	user := seedUser(t, db, "plain@example.com", false)
	uploader := NewUploader(db, &fakeExtractor{codes: []string{"abc123"}}, testClasses())

	_, errUpload := uploader.Upload(context.Background(), []byte("doc"), "10 5days", user)
	if !errors.Is(errUpload, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", errUpload)
	}
}

func TestUploadRejectsUnknownClass(t *testing.T) {
	db := openTestDB(t)
	admin := seedUser(t, db, "admin@example.com", true)
	uploader := NewUploader(db, &fakeExtractor{codes: []string{"abc123"}}, testClasses())

	_, errUpload := uploader.Upload(context.Background(), []byte("doc"), "99 1day", admin)
	if !errors.Is(errUpload, ErrUnsupportedDenominationClass) {
		t.Fatalf("expected ErrUnsupportedDenominationClass, got %v", errUpload)
	}
}

func TestUploadSurfacesExtractionFailure(t *testing.T) {
	db := openTestDB(t)
	admin := seedUser(t, db, "admin@example.com", true)
	uploader := NewUploader(db, &fakeExtractor{err: extract.ErrNoCodes}, testClasses())

	_, errUpload := uploader.Upload(context.Background(), []byte("doc"), "10 5days", admin)
	if !errors.Is(errUpload, ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", errUpload)
	}
}

func TestUploadCountsDuplicatesAsFailed(t *testing.T) {
	db := openTestDB(t)
	admin := seedUser(t, db, "admin@example.com", true)
	seedVoucher(t, db, "dup111", 10)
	uploader := NewUploader(db, &fakeExtractor{codes: []string{"dup111", "new222", "new333"}}, testClasses())

	result, errUpload := uploader.Upload(context.Background(), []byte("doc"), "10 5days", admin)
	if errUpload != nil {
		t.Fatalf("upload: %v", errUpload)
	}
	if result.UploadedCount != 2 || result.FailedCount != 1 {
		t.Fatalf("result = %+v", result)
	}
	if len(result.FailedCodes) != 1 || result.FailedCodes[0] != "dup111" {
		t.Fatalf("failed codes = %v", result.FailedCodes)
	}

	var total int64
	if errCount := db.Model(&models.Voucher{}).Count(&total).Error; errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if total != 3 {
		t.Fatalf("total vouchers = %d, want 3", total)
	}
}

func TestUploadAppliesClassDenomination(t *testing.T) {
	db := openTestDB(t)
	admin := seedUser(t, db, "admin@example.com", true)
	uploader := NewUploader(db, &fakeExtractor{codes: []string{"new555"}}, testClasses())

	if _, errUpload := uploader.Upload(context.Background(), []byte("doc"), "50 30days", admin); errUpload != nil {
		t.Fatalf("upload: %v", errUpload)
	}

	var created models.Voucher
	if errFind := db.Where("code = ?", "new555").First(&created).Error; errFind != nil {
		t.Fatalf("find: %v", errFind)
	}
	if created.Amount != 50 || created.ValidityDays != 30 {
		t.Fatalf("created = %+v", created)
	}
	if created.IsUsed {
		t.Fatal("uploaded vouchers must start unused")
	}
}

func TestInventoryCreateRejectsDuplicateCode(t *testing.T) {
	db := openTestDB(t)
	seedVoucher(t, db, "dup111", 10)
	inventory := NewInventory(db, testClasses())

	if _, errCreate := inventory.Create(context.Background(), "dup111", "10 5days"); errCreate == nil {
		t.Fatal("expected duplicate code error")
	}
	if _, errCreate := inventory.Create(context.Background(), "brand1", "10 5days"); errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}
}

func TestInventoryCreateRejectsUnknownClass(t *testing.T) {
	db := openTestDB(t)
	inventory := NewInventory(db, testClasses())

	_, errCreate := inventory.Create(context.Background(), "brand1", "7 2days")
	if !errors.Is(errCreate, ErrUnsupportedDenominationClass) {
		t.Fatalf("expected ErrUnsupportedDenominationClass, got %v", errCreate)
	}
}

func TestPurgeUsedDeletesOnlyUsedRows(t *testing.T) {
	db := openTestDB(t)
	user := seedUser(t, db, "buyer@example.com", false)
	seedVoucher(t, db, "gone01", 10)
	seedVoucher(t, db, "keep01", 10)
	seedVoucher(t, db, "gone02", 20)

	allocator := NewAllocator(db)
	if _, errAllocate := allocator.Allocate(context.Background(), 10, user.ID, "ref-a"); errAllocate != nil {
		t.Fatalf("allocate: %v", errAllocate)
	}
	if _, errAllocate := allocator.Allocate(context.Background(), 20, user.ID, "ref-b"); errAllocate != nil {
		t.Fatalf("allocate: %v", errAllocate)
	}

	deleted, errPurge := NewInventory(db, testClasses()).PurgeUsed(context.Background())
	if errPurge != nil {
		t.Fatalf("purge: %v", errPurge)
	}
	if deleted != 2 {
		t.Fatalf("deleted = %d, want 2", deleted)
	}

	var remaining int64
	if errCount := db.Model(&models.Voucher{}).Count(&remaining).Error; errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if remaining != 1 {
		t.Fatalf("remaining = %d, want 1", remaining)
	}
}
