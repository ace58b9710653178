//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"quietmap/internal/domain"
	"quietmap/pkg/e"
)

var (
	testPool *pgxpool.Pool
	tc       testcontainers.Container
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	user := "postgres"
	pass := "postgres"
	db := "postgres"

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     user,
			"POSTGRES_PASSWORD": pass,
			"POSTGRES_DB":       db,
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections"),
		).WithDeadline(90 * time.Second),
	}

	var err error
	tc, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Println("cannot start container:", err)
		os.Exit(1)
	}

	host, _ := tc.Host(ctx)
	mappedPort, _ := tc.MappedPort(ctx, "5432/tcp")

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, pass, host, mappedPort.Port(), db)

	testPool, err = pgxpool.New(ctx, dsn)
	if err != nil {
		fmt.Println("pgxpool.New:", err)
		_ = tc.Terminate(ctx)
		os.Exit(1)
	}

	if err := testPool.Ping(ctx); err != nil {
		fmt.Println("pool.Ping:", err)
		testPool.Close()
		_ = tc.Terminate(ctx)
		os.Exit(1)
	}

	if err := EnsureSchema(ctx, testPool); err != nil {
		fmt.Println("EnsureSchema:", err)
		testPool.Close()
		_ = tc.Terminate(ctx)
		os.Exit(1)
	}

	code := m.Run()

	testPool.Close()
	_ = tc.Terminate(ctx)
	os.Exit(code)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func truncateAll(t *testing.T) {
	t.Helper()
	_, err := testPool.Exec(context.Background(), `TRUNCATE TABLE review_tags, reviews, reports`)
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
}

func newReport(level int, createdAt int64) *domain.Report {
	return &domain.Report{
		ID:          uuid.NewString(),
		Level:       level,
		Coordinates: &domain.Coordinates{Lat: 37.5665, Lng: 126.9780},
		CreatedAt:   createdAt,
	}
}

func TestReportStore_InsertAndRecent_Ordering(t *testing.T) {
	truncateAll(t)

	repo := NewReportStore(testPool, testLogger())

	for i := 0; i < 3; i++ {
		if err := repo.Insert(context.Background(), newReport(40+i, int64(1000+i))); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	got, err := repo.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 reports, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].CreatedAt < got[i].CreatedAt {
			t.Fatalf("expected DESC order by created_at")
		}
	}
	if got[0].Coordinates == nil || got[0].Coordinates.Lat != 37.5665 {
		t.Fatalf("coordinates did not round-trip: %+v", got[0].Coordinates)
	}
}

func TestReportStore_Recent_RespectsLimit(t *testing.T) {
	truncateAll(t)

	repo := NewReportStore(testPool, testLogger())

	for i := 0; i < 5; i++ {
		if err := repo.Insert(context.Background(), newReport(40, int64(1000+i))); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	got, err := repo.Recent(context.Background(), 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(got))
	}
	// The newest two survive the cut.
	if got[0].CreatedAt != 1004 || got[1].CreatedAt != 1003 {
		t.Fatalf("unexpected window: %d, %d", got[0].CreatedAt, got[1].CreatedAt)
	}
}

func TestReportStore_Insert_NilCoordinates(t *testing.T) {
	truncateAll(t)

	repo := NewReportStore(testPool, testLogger())

	err := repo.Insert(context.Background(), &domain.Report{
		ID:        uuid.NewString(),
		Level:     40,
		CreatedAt: 1000,
	})
	if !errors.Is(err, e.ErrInvalidCoordinates) {
		t.Fatalf("expected ErrInvalidCoordinates, got: %v", err)
	}
}

func TestReportStore_Delete_RemovesReviewsToo(t *testing.T) {
	truncateAll(t)

	reports := NewReportStore(testPool, testLogger())
	reviews := NewReviewStore(testPool, testLogger())

	rep := newReport(40, 1000)
	if err := reports.Insert(context.Background(), rep); err != nil {
		t.Fatalf("Insert report: %v", err)
	}
	rev := &domain.Review{
		ReportID:  rep.ID,
		Text:      "loud",
		Tags:      []string{"traffic", "night"},
		CreatedAt: 1001,
	}
	if err := reviews.Insert(context.Background(), rev); err != nil {
		t.Fatalf("Insert review: %v", err)
	}

	existed, err := reports.Delete(context.Background(), rep.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !existed {
		t.Fatalf("expected existed=true")
	}

	left, err := reviews.ListByReport(context.Background(), rep.ID)
	if err != nil {
		t.Fatalf("ListByReport: %v", err)
	}
	if len(left) != 0 {
		t.Fatalf("expected reviews removed with report, got %d", len(left))
	}

	var tagCount int64
	if err := testPool.QueryRow(context.Background(), `SELECT COUNT(*) FROM review_tags`).Scan(&tagCount); err != nil {
		t.Fatalf("count tags: %v", err)
	}
	if tagCount != 0 {
		t.Fatalf("expected tags cascaded away, got %d", tagCount)
	}

	// Deleting again reports existed=false but no error.
	existed, err = reports.Delete(context.Background(), rep.ID)
	if err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if existed {
		t.Fatalf("expected existed=false on repeat delete")
	}
}

func TestReviewStore_InsertAndList_TagOrder(t *testing.T) {
	truncateAll(t)

	reviews := NewReviewStore(testPool, testLogger())

	rev := &domain.Review{
		ReportID:  "r-1",
		Text:      "construction",
		Tags:      []string{"b", "a", "b"}, // order and duplicates preserved
		CreatedAt: 1000,
	}
	if err := reviews.Insert(context.Background(), rev); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if rev.ID == 0 {
		t.Fatalf("expected assigned id written back")
	}

	got, err := reviews.ListByReport(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("ListByReport: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 review, got %d", len(got))
	}
	tags := got[0].Tags
	if len(tags) != 3 || tags[0] != "b" || tags[1] != "a" || tags[2] != "b" {
		t.Fatalf("tags = %v, want [b a b]", tags)
	}
}

func TestReviewStore_List_NewestFirstAndEmptyTags(t *testing.T) {
	truncateAll(t)

	reviews := NewReviewStore(testPool, testLogger())

	for i := 0; i < 3; i++ {
		rev := &domain.Review{
			ReportID:  "r-1",
			Text:      fmt.Sprintf("review %d", i),
			CreatedAt: int64(1000 + i),
		}
		if err := reviews.Insert(context.Background(), rev); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	got, err := reviews.ListByReport(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("ListByReport: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 reviews, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].CreatedAt < got[i].CreatedAt {
			t.Fatalf("expected DESC order by created_at")
		}
	}
	for _, rev := range got {
		if rev.Tags == nil {
			t.Fatalf("expected empty slice, not nil tags")
		}
	}
}

func TestReviewStore_Insert_OrphanAllowed(t *testing.T) {
	truncateAll(t)

	reviews := NewReviewStore(testPool, testLogger())

	// No reports row exists; the insert must still go through.
	rev := &domain.Review{
		ReportID:  "never-existed",
		Text:      "ghost",
		CreatedAt: 1000,
	}
	if err := reviews.Insert(context.Background(), rev); err != nil {
		t.Fatalf("orphan insert rejected: %v", err)
	}
}

func TestStats_Counts(t *testing.T) {
	truncateAll(t)

	reports := NewReportStore(testPool, testLogger())
	reviews := NewReviewStore(testPool, testLogger())
	stats := NewStats(testPool, testLogger())

	for i := 0; i < 2; i++ {
		if err := reports.Insert(context.Background(), newReport(40, int64(1000+i))); err != nil {
			t.Fatalf("Insert report: %v", err)
		}
	}
	if err := reviews.Insert(context.Background(), &domain.Review{ReportID: "r-1", Text: "x", CreatedAt: 1000}); err != nil {
		t.Fatalf("Insert review: %v", err)
	}

	nReports, err := stats.CountReports(context.Background())
	if err != nil {
		t.Fatalf("CountReports: %v", err)
	}
	nReviews, err := stats.CountReviews(context.Background())
	if err != nil {
		t.Fatalf("CountReviews: %v", err)
	}
	if nReports != 2 || nReviews != 1 {
		t.Fatalf("counts = %d reports, %d reviews", nReports, nReviews)
	}
}
