package service

import (
	"context"

	"github.com/atinyakov/HorosCase/internal/draw"
	"github.com/atinyakov/HorosCase/internal/models"
)

// StatsRepository reads and resets the admin counters.
type StatsRepository interface {
	GetStats(ctx context.Context) (models.Stats, error)
	ResetCounter(ctx context.Context, name string) error
	TierCounts(ctx context.Context, caseID string) (map[string]int64, error)
}

// AdminService serves the admin dashboard.
type AdminService struct {
	repo    StatsRepository
	catalog Catalog
}

// NewAdminService constructs an AdminService.
func NewAdminService(repo StatsRepository, catalog Catalog) *AdminService {
	return &AdminService{repo: repo, catalog: catalog}
}

// Stats returns the current counters.
func (s *AdminService) Stats(ctx context.Context) (models.Stats, error) {
	return s.repo.GetStats(ctx)
}

// ResetCounter zeroes a named counter.
func (s *AdminService) ResetCounter(ctx context.Context, name string) error {
	if !models.IsCounter(name) {
		return models.ErrUnknownCounter
	}
	return s.repo.ResetCounter(ctx, name)
}

// Fairness compares the recorded draws of a case with its declared weights.
func (s *AdminService) Fairness(ctx context.Context, caseID string) (models.FairnessReport, error) {
	cs, err := s.catalog.Get(caseID)
	if err != nil {
		return models.FairnessReport{}, err
	}
	counts, err := s.repo.TierCounts(ctx, caseID)
	if err != nil {
		return models.FairnessReport{}, err
	}

	observed := make([]int64, len(cs.RewardTiers))
	for i, t := range cs.RewardTiers {
		observed[i] = counts[t.Name]
	}
	rep, err := draw.GoodnessOfFit(cs.RewardTiers, observed)
	if err != nil {
		return models.FairnessReport{}, err
	}
	rep.CaseID = cs.ID
	return rep, nil
}
