package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"

	"quietmap/internal/domain"
	"quietmap/internal/service"
	"quietmap/internal/ws"
	"quietmap/pkg/e"

	mock_service "quietmap/internal/service/mocks"
)

// --- helpers ---

func f64ptr(v float64) *float64 { return &v }

func coords(lat, lng float64) *domain.Coordinates {
	return &domain.Coordinates{Lat: lat, Lng: lng}
}

func newReportService(
	repo service.ReportRepository,
	cache service.SnapshotCache,
	b service.Broadcaster,
) service.ReportService {
	return service.NewReportService(repo, cache, b, testLogger(), 100, time.Minute)
}

func assertStoredReport(t *testing.T, got *domain.Report) {
	t.Helper()
	if got == nil {
		t.Fatalf("report is nil")
	}
	if got.ID == "" {
		t.Fatalf("report.ID is empty")
	}
	if got.CreatedAt == 0 {
		t.Fatalf("report.CreatedAt is zero")
	}
	if got.Coordinates == nil {
		t.Fatalf("report.Coordinates is nil")
	}
}

// --- Submit ---

func TestReportService_Submit_ClampsAndRounds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		level float64
		want  int
	}{
		{"above max", 95, 80},
		{"below min", -5, 0},
		{"exact max", 80, 80},
		{"exact min", 0, 0},
		{"rounds down", 42.4, 42},
		{"rounds up", 42.5, 43},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := mock_service.NewMockReportRepository(ctrl)
			cache := mock_service.NewMockSnapshotCache(ctrl)
			b := mock_service.NewMockBroadcaster(ctrl)

			var stored *domain.Report
			repo.EXPECT().
				Insert(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, r *domain.Report) error {
					stored = r
					return nil
				}).
				Times(1)
			cache.EXPECT().Invalidate(gomock.Any()).Return(nil).Times(1)
			b.EXPECT().Broadcast(ws.EventNewReport, gomock.Any()).Times(1)

			svc := newReportService(repo, cache, b)

			got, err := svc.Submit(context.Background(), domain.SubmitReportRequest{
				Level:       f64ptr(tc.level),
				Coordinates: coords(37.5, 127.0),
			})
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}

			assertStoredReport(t, stored)
			if stored.Level != tc.want {
				t.Fatalf("stored level = %d, want %d", stored.Level, tc.want)
			}
			if got.Level != tc.want {
				t.Fatalf("returned level = %d, want %d", got.Level, tc.want)
			}
		})
	}
}

func TestReportService_Submit_MissingCoordinates(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// No expectations: nothing may be persisted or broadcast.
	repo := mock_service.NewMockReportRepository(ctrl)
	cache := mock_service.NewMockSnapshotCache(ctrl)
	b := mock_service.NewMockBroadcaster(ctrl)

	svc := newReportService(repo, cache, b)

	_, err := svc.Submit(context.Background(), domain.SubmitReportRequest{
		Level: f64ptr(42),
	})
	if !errors.Is(err, e.ErrInvalidCoordinates) {
		t.Fatalf("expected ErrInvalidCoordinates, got %v", err)
	}
}

func TestReportService_Submit_MissingLevel(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mock_service.NewMockReportRepository(ctrl)
	cache := mock_service.NewMockSnapshotCache(ctrl)
	b := mock_service.NewMockBroadcaster(ctrl)

	svc := newReportService(repo, cache, b)

	_, err := svc.Submit(context.Background(), domain.SubmitReportRequest{
		Coordinates: coords(37.5, 127.0),
	})
	if !errors.Is(err, e.ErrInvalidLevel) {
		t.Fatalf("expected ErrInvalidLevel, got %v", err)
	}
}

func TestReportService_Submit_RepoErrorNoBroadcast(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mock_service.NewMockReportRepository(ctrl)
	cache := mock_service.NewMockSnapshotCache(ctrl)
	b := mock_service.NewMockBroadcaster(ctrl)

	wantErr := errors.New("db down")
	repo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(wantErr).Times(1)
	// Broadcaster has no expectations: a failed persist must stay silent.

	svc := newReportService(repo, cache, b)

	_, err := svc.Submit(context.Background(), domain.SubmitReportRequest{
		Level:       f64ptr(42),
		Coordinates: coords(37.5, 127.0),
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected repo error, got %v", err)
	}
}

// --- Delete ---

func TestReportService_Delete_IdempotentBroadcasts(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mock_service.NewMockReportRepository(ctrl)
	cache := mock_service.NewMockSnapshotCache(ctrl)
	b := mock_service.NewMockBroadcaster(ctrl)

	gomock.InOrder(
		repo.EXPECT().Delete(gomock.Any(), "r-1").Return(true, nil),
		repo.EXPECT().Delete(gomock.Any(), "r-1").Return(false, nil),
	)
	cache.EXPECT().Invalidate(gomock.Any()).Return(nil).Times(2)
	// One row removal, but two broadcasts: the protocol replays deletion
	// regardless of whether the row still existed.
	b.EXPECT().Broadcast(ws.EventMarkerDeleted, "r-1").Times(2)

	svc := newReportService(repo, cache, b)

	if err := svc.Delete(context.Background(), "r-1"); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := svc.Delete(context.Background(), "r-1"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestReportService_Delete_RepoError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mock_service.NewMockReportRepository(ctrl)
	cache := mock_service.NewMockSnapshotCache(ctrl)
	b := mock_service.NewMockBroadcaster(ctrl)

	repo.EXPECT().Delete(gomock.Any(), "r-1").Return(false, errors.New("db down")).Times(1)

	svc := newReportService(repo, cache, b)

	if err := svc.Delete(context.Background(), "r-1"); err == nil {
		t.Fatalf("expected error")
	}
}

// --- Snapshot ---

func TestReportService_Snapshot_CacheHit(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mock_service.NewMockReportRepository(ctrl)
	cache := mock_service.NewMockSnapshotCache(ctrl)
	b := mock_service.NewMockBroadcaster(ctrl)

	cached := []domain.Report{{ID: "r-1", Level: 40, Coordinates: coords(37.5, 127.0), CreatedAt: 1000}}
	cache.EXPECT().Get(gomock.Any()).Return(cached, nil).Times(1)
	// Repo must not be touched on a warm cache.

	svc := newReportService(repo, cache, b)

	got, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 1 || got[0].ID != "r-1" {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
}

func TestReportService_Snapshot_CacheMissFallsBack(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mock_service.NewMockReportRepository(ctrl)
	cache := mock_service.NewMockSnapshotCache(ctrl)
	b := mock_service.NewMockBroadcaster(ctrl)

	fromDB := []domain.Report{{ID: "r-2", Level: 60, Coordinates: coords(37.5, 127.0), CreatedAt: 2000}}
	cache.EXPECT().Get(gomock.Any()).Return(nil, nil).Times(1)
	repo.EXPECT().Recent(gomock.Any(), 100).Return(fromDB, nil).Times(1)
	cache.EXPECT().Set(gomock.Any(), fromDB, gomock.Any()).Return(nil).Times(1)

	svc := newReportService(repo, cache, b)

	got, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 1 || got[0].ID != "r-2" {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
}

func TestReportService_Snapshot_CacheErrorDegradesToRepo(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mock_service.NewMockReportRepository(ctrl)
	cache := mock_service.NewMockSnapshotCache(ctrl)
	b := mock_service.NewMockBroadcaster(ctrl)

	cache.EXPECT().Get(gomock.Any()).Return(nil, errors.New("redis down")).Times(1)
	repo.EXPECT().Recent(gomock.Any(), 100).Return([]domain.Report{}, nil).Times(1)
	cache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("redis down")).Times(1)

	svc := newReportService(repo, cache, b)

	if _, err := svc.Snapshot(context.Background()); err != nil {
		t.Fatalf("cache failure must not surface: %v", err)
	}
}

// --- Seed ---

func TestReportService_Seed_Defaults(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mock_service.NewMockReportRepository(ctrl)
	cache := mock_service.NewMockSnapshotCache(ctrl)
	b := mock_service.NewMockBroadcaster(ctrl)

	var stored *domain.Report
	repo.EXPECT().
		Insert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, r *domain.Report) error {
			stored = r
			return nil
		}).
		Times(1)
	cache.EXPECT().Invalidate(gomock.Any()).Return(nil).Times(1)
	b.EXPECT().Broadcast(ws.EventNewReport, gomock.Any()).Times(1)

	svc := newReportService(repo, cache, b)

	if _, err := svc.Seed(context.Background(), domain.SeedRequest{}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	assertStoredReport(t, stored)
	if stored.Level != 45 {
		t.Fatalf("seed level = %d, want 45", stored.Level)
	}
	if stored.Coordinates.Lat != 37.5665 || stored.Coordinates.Lng != 126.9780 {
		t.Fatalf("seed coordinates = %+v", stored.Coordinates)
	}
}
