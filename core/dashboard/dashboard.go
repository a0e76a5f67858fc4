// Package dashboard assembles the summary figures of the console home screen.
// Every figure is aggregated by the remote data service; nothing is recomputed from rows.
package dashboard

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/coachdesk/core/cache"
	"github.com/trezcool/coachdesk/core/listing"
)

type (
	PopularCourse struct {
		CourseName   string `json:"course_name" db:"course_name"`
		StudentCount int    `json:"student_count" db:"student_count"`
	}

	Stats struct {
		TotalStudents  int                   `json:"total_students"`
		TotalFees      float64               `json:"total_fees"`
		PendingFees    float64               `json:"pending_fees"`
		PopularCourses []PopularCourse       `json:"popular_courses"`
		FeeCollection  listing.FeeCollection `json:"fee_collection"`
		Chart          []listing.Point       `json:"chart"`
	}

	Repository interface {
		CountStudents(ctx context.Context) (int, error)
		TotalFeesCollected(ctx context.Context) (float64, error)
		TotalPendingFees(ctx context.Context) (float64, error)
		PopularCourses(ctx context.Context) ([]PopularCourse, error)
	}

	Service struct {
		repo  Repository
		cache *cache.QueryCache
	}
)

func NewService(repo Repository, qc *cache.QueryCache) *Service {
	return &Service{repo: repo, cache: qc}
}

func (svc *Service) Stats(ctx context.Context) (Stats, error) {
	stats, _, err := cache.Fetch(ctx, svc.cache, cache.Dashboard, nil, svc.load)
	return stats, errors.Wrap(err, "loading dashboard")
}

// load queries every aggregate; the first failure wins.
func (svc *Service) load(ctx context.Context) (Stats, error) {
	var stats Stats
	var err error

	if stats.TotalStudents, err = svc.repo.CountStudents(ctx); err != nil {
		return Stats{}, errors.Wrap(err, "counting students")
	}
	if stats.TotalFees, err = svc.repo.TotalFeesCollected(ctx); err != nil {
		return Stats{}, errors.Wrap(err, "getting total fees collected")
	}
	if stats.PendingFees, err = svc.repo.TotalPendingFees(ctx); err != nil {
		return Stats{}, errors.Wrap(err, "getting total pending fees")
	}
	if stats.PopularCourses, err = svc.repo.PopularCourses(ctx); err != nil {
		return Stats{}, errors.Wrap(err, "getting popular courses")
	}
	if stats.PopularCourses == nil {
		stats.PopularCourses = []PopularCourse{}
	}

	stats.FeeCollection = listing.NewFeeCollection(stats.TotalFees, stats.PendingFees)
	stats.Chart = Chart(stats.PopularCourses)
	return stats, nil
}

// Chart is the course popularity series.
func Chart(courses []PopularCourse) []listing.Point {
	return listing.Series(
		courses,
		func(c PopularCourse) string { return c.CourseName },
		func(c PopularCourse) float64 { return float64(c.StudentCount) },
	)
}
