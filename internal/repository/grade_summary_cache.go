package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-assess-api/internal/models"
)

// GradeSummaryCache is a Redis-backed read cache for student grade
// summaries. Entries are invalidated on every grade write, so staleness is
// bounded by the TTL only when writes bypass this process entirely.
type GradeSummaryCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewGradeSummaryCache constructs the cache.
func NewGradeSummaryCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *GradeSummaryCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeSummaryCache{client: client, ttl: ttl, logger: logger}
}

func summaryKey(courseID, enrollmentID string) string {
	return "grades:summary:" + courseID + ":" + enrollmentID
}

// Get returns the cached summary when present. Cache failures degrade to a
// miss; the caller falls back to the database.
func (c *GradeSummaryCache) Get(ctx context.Context, courseID, enrollmentID string) (*models.GradeSummary, bool) {
	raw, err := c.client.Get(ctx, summaryKey(courseID, enrollmentID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("grade summary cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var summary models.GradeSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		c.logger.Warn("grade summary cache decode failed", zap.Error(err))
		return nil, false
	}
	return &summary, true
}

// Set stores a summary with the configured TTL.
func (c *GradeSummaryCache) Set(ctx context.Context, summary *models.GradeSummary) {
	raw, err := json.Marshal(summary)
	if err != nil {
		c.logger.Warn("grade summary cache encode failed", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, summaryKey(summary.CourseID, summary.EnrollmentID), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("grade summary cache write failed", zap.Error(err))
	}
}

// Invalidate drops the cached summary after a grade write.
func (c *GradeSummaryCache) Invalidate(ctx context.Context, courseID, enrollmentID string) {
	if err := c.client.Del(ctx, summaryKey(courseID, enrollmentID)).Err(); err != nil {
		c.logger.Warn("grade summary cache invalidate failed", zap.Error(err))
	}
}
