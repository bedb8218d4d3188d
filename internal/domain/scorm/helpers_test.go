package scorm

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"scormhub/internal/database"
	"scormhub/internal/pkg/archive/archivetest"
	"scormhub/internal/pkg/session"
	"scormhub/internal/pkg/storage"
)

var (
	adminUser      = session.User{ID: "admin-1", Role: session.RoleAdmin}
	instructorUser = session.User{ID: "inst-1", Role: session.RoleInstructor, OrgIDs: []string{"org-a"}}
	learnerUser    = session.User{ID: "learner-1", Role: session.RoleLearner, OrgIDs: []string{"org-a"}}
	outsiderUser   = session.User{ID: "inst-2", Role: session.RoleInstructor, OrgIDs: []string{"org-b"}}
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:scorm_test_%s?mode=memory&cache=shared", name)
	db, err := database.Connect(dsn, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, Models()...))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

type testEnv struct {
	db       *gorm.DB
	store    *storage.MemoryStore
	packages PackageRepository
	attempts AttemptRepository
	cleaner  *Cleaner
	service  *Service
	content  *ContentService
	stats    *StatsService
	player   *AttemptService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	store := storage.NewMemoryStore()
	packages := NewPackageRepository(db)
	attempts := NewAttemptRepository(db)
	cleaner := NewCleaner(store, CleanupConfig{}, zerolog.Nop())
	stats := NewStatsService(packages, attempts, 0, 0)
	return &testEnv{
		db:       db,
		store:    store,
		packages: packages,
		attempts: attempts,
		cleaner:  cleaner,
		service:  NewService(packages, store, cleaner, Options{}, zerolog.Nop()),
		content:  NewContentService(packages, store),
		stats:    stats,
		player:   NewAttemptService(packages, attempts, stats),
	}
}

// validPackage is a three-file SCORM 1.2 course.
func validPackage(t *testing.T) []byte {
	t.Helper()
	return archivetest.Build(t,
		archivetest.Entry{Name: "imsmanifest.xml", Body: archivetest.Manifest("Safety Basics", "index.html", "index.html", "img/logo.png")},
		archivetest.Entry{Name: "index.html", Body: "<html><body>Lesson</body></html>"},
		archivetest.Entry{Name: "img/", Body: ""},
		archivetest.Entry{Name: "img/logo.png", Body: "\x89PNG\r\n\x1a\nfake"},
	)
}

func uploadInput(data []byte) UploadInput {
	return UploadInput{
		OrganizationID: "org-a",
		CourseID:       "course-1",
		FileName:       "safety.zip",
		Size:           int64(len(data)),
		File:           bytes.NewReader(data),
	}
}

func ptr[T any](v T) *T { return &v }
