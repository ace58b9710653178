package service

import (
	"context"

	"quietmap/internal/domain"
)

type statsService struct {
	repo     StatsRepository
	sessions SessionCounter
}

func NewStatsService(repo StatsRepository, sessions SessionCounter) StatsService {
	return &statsService{repo: repo, sessions: sessions}
}

func (s *statsService) GetStats(ctx context.Context) (*domain.MapStats, error) {
	reports, err := s.repo.CountReports(ctx)
	if err != nil {
		return nil, err
	}
	reviews, err := s.repo.CountReviews(ctx)
	if err != nil {
		return nil, err
	}

	return &domain.MapStats{
		Reports:  reports,
		Reviews:  reviews,
		Sessions: s.sessions.SessionCount(),
	}, nil
}
