package profiles

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/anandkp/shelfwise-backend/pkg/db/models"
	pkgerrors "github.com/anandkp/shelfwise-backend/pkg/errors"
	"github.com/anandkp/shelfwise-backend/pkg/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:profiles_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.BuyerProfile{}); err != nil {
		t.Fatalf("migrate profiles: %v", err)
	}
	return db
}

func sampleProfile(userID uuid.UUID) *models.BuyerProfile {
	return &models.BuyerProfile{
		UserID:   userID,
		FullName: "Asha Rao",
		Phone:    "9876543210",
		Email:    "asha@example.in",
		DefaultAddress: types.Address{
			FullName:   "Asha Rao",
			Line1:      "14 MG Road",
			City:       "Bengaluru",
			RegionCode: "KA",
			PostalCode: "560001",
			Phone:      "9876543210",
			Email:      "asha@example.in",
		},
	}
}

func TestUpsert_CreateThenUpdate(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	if err := repo.Upsert(ctx, sampleProfile(userID)); err != nil {
		t.Fatalf("initial upsert: %v", err)
	}

	changed := sampleProfile(userID)
	changed.FullName = "Asha R"
	changed.DefaultAddress.City = "Mysuru"
	if err := repo.Upsert(ctx, changed); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	profile, err := repo.FindByUserID(ctx, userID)
	if err != nil {
		t.Fatalf("find profile: %v", err)
	}
	if profile.FullName != "Asha R" {
		t.Errorf("full name = %q, want updated value", profile.FullName)
	}
	if profile.DefaultAddress.City != "Mysuru" {
		t.Errorf("address not replaced: %+v", profile.DefaultAddress)
	}

	var count int64
	if err := db.Model(&models.BuyerProfile{}).Count(&count).Error; err != nil {
		t.Fatalf("count profiles: %v", err)
	}
	if count != 1 {
		t.Errorf("profiles = %d, want 1", count)
	}
}

func TestUpsert_PreservesVerificationUnlessSet(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	if err := repo.Upsert(ctx, sampleProfile(userID)); err != nil {
		t.Fatalf("initial upsert: %v", err)
	}
	verifiedAt := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	if err := repo.MarkPhoneVerified(ctx, userID, verifiedAt); err != nil {
		t.Fatalf("mark verified: %v", err)
	}

	// A later checkout upsert without a verification timestamp must not
	// wipe the recorded one.
	if err := repo.Upsert(ctx, sampleProfile(userID)); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	profile, err := repo.FindByUserID(ctx, userID)
	if err != nil {
		t.Fatalf("find profile: %v", err)
	}
	if profile.PhoneVerifiedAt == nil {
		t.Fatal("phone verification was wiped by upsert")
	}
}

func TestFindByUserID_NotFound(t *testing.T) {
	t.Parallel()

	repo := NewRepository(newTestDB(t))

	_, err := repo.FindByUserID(context.Background(), uuid.New())
	if pkgerrors.CodeOf(err) != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpsert_Validation(t *testing.T) {
	t.Parallel()

	repo := NewRepository(newTestDB(t))

	err := repo.Upsert(context.Background(), &models.BuyerProfile{})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
