package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/circlehub/internal/app/models/dto"
	"github.com/yigit/circlehub/internal/app/repositories"
	"github.com/yigit/circlehub/internal/pkg/cache"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Points awarded per activity
const (
	PointsPost           = 10
	PointsComment        = 5
	PointsLikeReceived   = 1
	PointsLessonComplete = 20
	PointsCourseComplete = 50
)

const (
	LeaderboardTTL          = 60 * time.Second
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

// levelThresholds[i] is the minimum number of points for level i+1.
// Past the table every further 5000 points is one more level.
var levelThresholds = []int{0, 100, 250, 500, 1000, 2000, 3500, 5000, 7500, 10000}

const pointsPerLevelAfterTable = 5000

// CalculateLevel maps points onto a level starting at 1
func CalculateLevel(points int) int {
	if points <= 0 {
		return 1
	}
	last := levelThresholds[len(levelThresholds)-1]
	if points >= last {
		return len(levelThresholds) + (points-last)/pointsPerLevelAfterTable
	}
	level := 1
	for i, min := range levelThresholds {
		if points >= min {
			level = i + 1
		}
	}
	return level
}

// GamificationService defines the interface for points and leaderboards
type GamificationService interface {
	// Award adds points and updates the level. Failures are logged only.
	Award(ctx context.Context, userID primitive.ObjectID, points int, reason string)
	Leaderboard(ctx context.Context, communityID primitive.ObjectID, limit int) ([]dto.LeaderboardEntry, error)
}

type gamificationServiceImpl struct {
	userRepo      repositories.UserRepository
	communityRepo repositories.CommunityRepository
	cache         cache.Client
	logger        zerolog.Logger
}

// NewGamificationService creates a new GamificationService
func NewGamificationService(
	userRepo repositories.UserRepository,
	communityRepo repositories.CommunityRepository,
	cacheClient cache.Client,
	logger zerolog.Logger,
) GamificationService {
	return &gamificationServiceImpl{
		userRepo:      userRepo,
		communityRepo: communityRepo,
		cache:         cacheClient,
		logger:        logger,
	}
}

func (s *gamificationServiceImpl) Award(ctx context.Context, userID primitive.ObjectID, points int, reason string) {
	user, err := s.userRepo.AddPoints(ctx, userID, points)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("userID", userID.Hex()).
			Int("points", points).
			Str("reason", reason).
			Msg("Failed to award points")
		return
	}

	level := CalculateLevel(user.Points)
	if level != user.Level {
		if err := s.userRepo.SetLevel(ctx, userID, level); err != nil {
			s.logger.Warn().Err(err).Str("userID", userID.Hex()).Int("level", level).Msg("Failed to update level")
			return
		}
		s.logger.Debug().Str("userID", userID.Hex()).Int("level", level).Msg("User levelled up")
	}
}

func (s *gamificationServiceImpl) Leaderboard(ctx context.Context, communityID primitive.ObjectID, limit int) ([]dto.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}

	key := fmt.Sprintf("leaderboard:%s:%d", communityID.Hex(), limit)
	load := cache.WrapInCache(ctx, s.cache, key, LeaderboardTTL, func() (string, error) {
		community, err := s.communityRepo.GetByID(ctx, communityID)
		if err != nil {
			return "", err
		}
		users, err := s.userRepo.TopByPoints(ctx, community.Members, limit)
		if err != nil {
			return "", err
		}
		entries := make([]dto.LeaderboardEntry, 0, len(users))
		for i, u := range users {
			entries = append(entries, dto.LeaderboardEntry{
				Rank:     i + 1,
				UserID:   u.ID.Hex(),
				Name:     u.Name,
				Username: u.Username,
				Points:   u.Points,
				Level:    u.Level,
			})
		}
		data, err := json.Marshal(entries)
		if err != nil {
			return "", fmt.Errorf("encode leaderboard: %w", err)
		}
		return string(data), nil
	})

	raw, err := load()
	if err != nil {
		return nil, err
	}
	var entries []dto.LeaderboardEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("decode leaderboard: %w", err)
	}
	return entries, nil
}
