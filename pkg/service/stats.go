package service

import (
	"context"

	"reviewassigner/pkg/cache"
	"reviewassigner/pkg/pullrequest"
	"reviewassigner/pkg/storage"

	"go.uber.org/zap"
)

type PRStats struct {
	Total             int
	Open              int
	Merged            int
	WithZeroReviewers int
	WithOneReviewer   int
	WithTwoReviewers  int
}

type Stats struct {
	Users        []*pullrequest.UserStats
	PullRequests PRStats
}

type StatsService struct {
	logger *zap.SugaredLogger
	store  storage.Store
	cache  *cache.Client
}

func NewStatsService(logger *zap.SugaredLogger, store storage.Store, cacheClient *cache.Client) *StatsService {
	return &StatsService{
		logger: logger,
		store:  store,
		cache:  cacheClient,
	}
}

func (s *StatsService) Get(ctx context.Context) (*Stats, error) {
	s.logger.Debugw("Get()")

	sess := s.cache.Session(ctx)

	var cached Stats
	if sess.Get(ctx, cache.StatsKey(), &cached) {
		return &cached, nil
	}

	stats := &Stats{}
	err := s.store.Transaction(ctx, func(tx storage.Tx) error {
		users, err := tx.PullRequests().ReviewerStats(ctx, "")
		if err != nil {
			return err
		}

		counts, err := tx.PullRequests().StatusCounts(ctx)
		if err != nil {
			return err
		}

		buckets, err := tx.PullRequests().ReviewerBuckets(ctx)
		if err != nil {
			return err
		}

		stats.Users = users
		stats.PullRequests = PRStats{
			Total:             counts.Total,
			Open:              counts.Open,
			Merged:            counts.Merged,
			WithZeroReviewers: buckets.Zero,
			WithOneReviewer:   buckets.One,
			WithTwoReviewers:  buckets.TwoOrMore,
		}
		return nil
	})
	if err != nil {
		s.logger.Errorw("error collecting stats", "err", err)
		return nil, err
	}

	sess.Set(ctx, cache.StatsKey(), stats)
	return stats, nil
}
