package service

import (
	"context"
	"fmt"

	"wastebank-backend/internal/apperr"
	"wastebank-backend/internal/authz"
	"wastebank-backend/internal/domain"
	"wastebank-backend/internal/logger"
	"wastebank-backend/internal/repository"
)

type dashboardService struct {
	dashboardRepo repository.DashboardRepository
	userRepo      repository.UserRepository
}

func NewDashboardService(dashboardRepo repository.DashboardRepository, userRepo repository.UserRepository) DashboardService {
	return &dashboardService{dashboardRepo: dashboardRepo, userRepo: userRepo}
}

func (s *dashboardService) CustomerSummary(ctx context.Context, caller authz.Caller) (*domain.CustomerSummary, error) {
	logger.EnterMethod("dashboardService.CustomerSummary", "callerID", caller.UserID)

	if err := authz.RequireRole(caller, domain.RoleNasabah); err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, caller.UserID)
	if err != nil {
		return nil, internalOr("load user", err)
	}

	composition, err := s.dashboardRepo.WeightByCategory(ctx, domain.WeightFilter{UserID: &user.ID})
	if err != nil {
		return nil, internalOr("waste composition", err)
	}
	if composition == nil {
		composition = []domain.WasteShare{}
	}

	summary := &domain.CustomerSummary{Points: user.Points, WasteComposition: composition}
	if len(composition) > 0 {
		summary.Insights = append(summary.Insights, domain.Insight{
			Title:       "Your biggest contribution",
			Description: fmt.Sprintf("Most of the waste you deposited is %s. Great work keeping the village clean!", composition[0].Name),
			Type:        domain.InsightPositive,
		})
	} else {
		summary.Insights = append(summary.Insights, domain.Insight{
			Title:       "Start your green journey",
			Description: "You have no completed transactions yet. Schedule your first deposit to start earning points!",
			Type:        domain.InsightInfo,
		})
	}

	if user.LocationID != nil {
		next, err := s.dashboardRepo.NextReward(ctx, *user.LocationID, user.Points)
		switch {
		case err == nil:
			summary.Insights = append(summary.Insights, domain.Insight{
				Title:       fmt.Sprintf("Only %d points to go!", next.PointsRequired-user.Points),
				Description: fmt.Sprintf("You are getting close to redeeming %q. Keep collecting points!", next.Name),
				Type:        domain.InsightSuggestion,
			})
		case !apperr.IsNotFound(err):
			return nil, internalOr("next reward", err)
		}
	}

	logger.ExitMethod("dashboardService.CustomerSummary", "callerID", caller.UserID, "categories", len(composition))
	return summary, nil
}

func (s *dashboardService) Report(ctx context.Context, caller authz.Caller, in ReportInput) (*domain.Report, error) {
	logger.EnterMethod("dashboardService.Report", "callerID", caller.UserID)

	if err := authz.RequireRole(caller, domain.RoleSuperAdmin, domain.RoleAdmin); err != nil {
		return nil, err
	}
	filter := domain.WeightFilter{
		LocationID: authz.ScopeFilter(caller, in.LocationID),
		From:       in.From,
		To:         in.To,
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	nasabah, err := s.dashboardRepo.CountNasabah(ctx, filter.LocationID)
	if err != nil {
		return nil, internalOr("count nasabah", err)
	}
	count, weight, err := s.dashboardRepo.CompletedTotals(ctx, filter)
	if err != nil {
		return nil, internalOr("completed totals", err)
	}
	filter.Limit = domain.TopWasteCategories
	distribution, err := s.dashboardRepo.WeightByCategory(ctx, filter)
	if err != nil {
		return nil, internalOr("waste distribution", err)
	}
	if distribution == nil {
		distribution = []domain.WasteShare{}
	}

	report := &domain.Report{
		KeyMetrics: domain.ReportMetrics{
			TotalNasabah:      nasabah,
			TotalTransactions: count,
			TotalWeightKg:     weight,
		},
		WasteDistribution: distribution,
	}

	logger.ExitMethod("dashboardService.Report", "callerID", caller.UserID, "transactions", count)
	return report, nil
}
