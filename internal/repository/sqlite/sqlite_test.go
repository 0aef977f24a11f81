package sqlite_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"peoplecounter/internal/model"
	"peoplecounter/internal/repository"
	"peoplecounter/internal/repository/sqlite"
)

// ========================================
// Test Setup Helpers
// ========================================

func setupTestDB(t *testing.T) (*sqlite.DB, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "repo_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	dbPath := filepath.Join(tempDir, "test.db")
	db, err := sqlite.New(dbPath)
	if err != nil {
		os.RemoveAll(tempDir)
		t.Fatalf("Failed to create test database: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.RemoveAll(tempDir)
	}

	return db, cleanup
}

func insertUser(t *testing.T, repo *sqlite.UserRepository, username string) int64 {
	t.Helper()

	id, err := repo.Insert(&model.User{Username: username, PasswordHash: "hash-" + username})
	if err != nil {
		t.Fatalf("Failed to insert user %s: %v", username, err)
	}
	return id
}

// ========================================
// Database Tests
// ========================================

func TestDatabase_Connection(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "db_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	dbPath := filepath.Join(tempDir, "test.db")
	db, err := sqlite.New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file should exist")
	}
	if err := db.Ping(); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestDatabase_MigrationIsRepeatable(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "db_migrate_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	dbPath := filepath.Join(tempDir, "test.db")
	for i := 0; i < 2; i++ {
		db, err := sqlite.New(dbPath)
		if err != nil {
			t.Fatalf("Open %d failed: %v", i, err)
		}
		db.Close()
	}
}

// ========================================
// User Repository Tests
// ========================================

func TestUserRepository_InsertAndGet(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := sqlite.NewUserRepository(db)
	id := insertUser(t, repo, "alice")

	byName, err := repo.GetByUsername("alice")
	if err != nil {
		t.Fatalf("GetByUsername failed: %v", err)
	}
	if byName == nil || byName.ID != id {
		t.Fatalf("Expected user with ID %d, got %+v", id, byName)
	}
	if byName.PasswordHash != "hash-alice" {
		t.Errorf("Expected stored hash, got %q", byName.PasswordHash)
	}
	if byName.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set by the database")
	}

	byID, err := repo.GetByID(id)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if byID == nil || byID.Username != "alice" {
		t.Errorf("Expected alice, got %+v", byID)
	}
}

func TestUserRepository_DuplicateUsername(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := sqlite.NewUserRepository(db)
	insertUser(t, repo, "bob")

	_, err := repo.Insert(&model.User{Username: "bob", PasswordHash: "other"})
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate, got %v", err)
	}
}

func TestUserRepository_NotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := sqlite.NewUserRepository(db)
	user, err := repo.GetByUsername("nobody")
	if err != nil {
		t.Fatalf("GetByUsername failed: %v", err)
	}
	if user != nil {
		t.Errorf("Expected nil user, got %+v", user)
	}
}

// ========================================
// Upload and Detection Repository Tests
// ========================================

func TestUploadRepository_FullFlow(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	users := sqlite.NewUserRepository(db)
	uploads := sqlite.NewUploadRepository(db)
	detections := sqlite.NewDetectionRepository(db)

	userID := insertUser(t, users, "carol")
	otherID := insertUser(t, users, "dave")

	// Step 1: two uploads for carol, one for dave
	base := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)
	var lastID int64
	for i, name := range []string{"first.jpg", "second.jpg"} {
		id, err := uploads.Insert(&model.Upload{
			UserID:            userID,
			Filename:          name,
			AnnotatedFilename: "annotated_" + name,
			PeopleCount:       i + 1,
			CreatedAt:         base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Step 1 - Insert upload failed: %v", err)
		}
		lastID = id
	}
	if _, err := uploads.Insert(&model.Upload{UserID: otherID, Filename: "x.png", AnnotatedFilename: "annotated_x.png", CreatedAt: base}); err != nil {
		t.Fatalf("Step 1 - Insert upload failed: %v", err)
	}

	// Step 2: detections for the latest upload
	err := detections.InsertBatch([]model.Detection{
		{UploadID: lastID, X1: 10, Y1: 10, X2: 50, Y2: 120, Confidence: 0.61},
		{UploadID: lastID, X1: 200, Y1: 20, X2: 260, Y2: 140, Confidence: 0.92},
	})
	if err != nil {
		t.Fatalf("Step 2 - InsertBatch failed: %v", err)
	}

	// Step 3: history is per user, newest first
	list, err := uploads.GetByUserID(userID, 10, 0)
	if err != nil {
		t.Fatalf("Step 3 - GetByUserID failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Step 3 - Expected 2 uploads, got %d", len(list))
	}
	if list[0].Filename != "second.jpg" || list[0].PeopleCount != 2 {
		t.Errorf("Step 3 - Expected newest upload first, got %+v", list[0])
	}

	count, err := uploads.CountByUserID(userID)
	if err != nil || count != 2 {
		t.Errorf("Step 3 - Expected count 2, got %d (%v)", count, err)
	}

	// Step 4: detections come back highest confidence first
	stored, err := detections.GetByUploadID(lastID)
	if err != nil {
		t.Fatalf("Step 4 - GetByUploadID failed: %v", err)
	}
	if len(stored) != 2 || stored[0].Confidence != 0.92 {
		t.Errorf("Step 4 - Unexpected detections %+v", stored)
	}

	// Step 5: lookup by ID
	up, err := uploads.GetByID(lastID)
	if err != nil {
		t.Fatalf("Step 5 - GetByID failed: %v", err)
	}
	if up == nil || up.AnnotatedFilename != "annotated_second.jpg" {
		t.Errorf("Step 5 - Unexpected upload %+v", up)
	}
}

func TestUploadRepository_Pagination(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	users := sqlite.NewUserRepository(db)
	uploads := sqlite.NewUploadRepository(db)
	userID := insertUser(t, users, "erin")

	for i := 0; i < 5; i++ {
		_, err := uploads.Insert(&model.Upload{
			UserID:            userID,
			Filename:          "f.jpg",
			AnnotatedFilename: "annotated_f.jpg",
			CreatedAt:         time.Now().Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	page, err := uploads.GetByUserID(userID, 2, 4)
	if err != nil {
		t.Fatalf("GetByUserID failed: %v", err)
	}
	if len(page) != 1 {
		t.Errorf("Expected 1 upload on last page, got %d", len(page))
	}
}

func TestDetectionRepository_InsertBatchEmpty(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	if err := sqlite.NewDetectionRepository(db).InsertBatch(nil); err != nil {
		t.Errorf("Expected no error for empty batch, got %v", err)
	}
}

func TestUploadRepository_ConcurrentInserts(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	users := sqlite.NewUserRepository(db)
	uploads := sqlite.NewUploadRepository(db)
	userID := insertUser(t, users, "frank")

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func(idx int) {
			_, err := uploads.Insert(&model.Upload{
				UserID:            userID,
				Filename:          "concurrent_" + string(rune('a'+idx)) + ".jpg",
				AnnotatedFilename: "annotated",
				CreatedAt:         time.Now(),
			})
			if err != nil {
				t.Errorf("Concurrent insert %d failed: %v", idx, err)
			}
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	count, _ := uploads.CountByUserID(userID)
	if count != 10 {
		t.Errorf("Expected 10 uploads, got %d", count)
	}
}

func TestUploadRepository_OwnsFile(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	users := sqlite.NewUserRepository(db)
	uploads := sqlite.NewUploadRepository(db)

	owner := insertUser(t, users, "erin")
	stranger := insertUser(t, users, "frank")

	if _, err := uploads.Insert(&model.Upload{UserID: owner, Filename: "a.jpg", AnnotatedFilename: "annotated_a.jpg", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("Insert upload failed: %v", err)
	}

	tests := []struct {
		name   string
		userID int64
		file   string
		want   bool
	}{
		{"original", owner, "a.jpg", true},
		{"annotated", owner, "annotated_a.jpg", true},
		{"other user", stranger, "a.jpg", false},
		{"unknown file", owner, "b.jpg", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := uploads.OwnsFile(tt.userID, tt.file)
			if err != nil {
				t.Fatalf("OwnsFile failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("OwnsFile(%d, %q) = %v, want %v", tt.userID, tt.file, got, tt.want)
			}
		})
	}
}
