package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wokeornotsite/wokeornot-sub000/internal/domain"
	pkgkafka "github.com/wokeornotsite/wokeornot-sub000/pkg/kafka"
	"github.com/wokeornotsite/wokeornot-sub000/pkg/logger"
)

// Kafka topics for review and content events.
var (
	TopicReviewCreated          = pkgkafka.Topic("review", "created")
	TopicReviewUpdated          = pkgkafka.Topic("review", "updated")
	TopicReviewDeleted          = pkgkafka.Topic("review", "deleted")
	TopicReactionToggled        = pkgkafka.Topic("review", "reaction_toggled")
	TopicContentAggregateUpdate = pkgkafka.Topic("content", "aggregate_updated")
)

// Aggregate types.
const (
	AggregateTypeReview  = "review"
	AggregateTypeContent = "content"
)

// SourceService identifies events originating from this service.
const SourceService = "wokeornot-reviews"

// Publisher emits domain events after a change has committed.
type Publisher interface {
	PublishReviewCreated(ctx context.Context, r *domain.Review) error
	PublishReviewUpdated(ctx context.Context, r *domain.Review) error
	PublishReviewDeleted(ctx context.Context, r *domain.Review, deletedBy string) error
	PublishAggregateUpdated(ctx context.Context, agg domain.Aggregate) error
	PublishReactionToggled(ctx context.Context, reviewID, userID string, s domain.ReactionSummary) error
}

// ReviewData is the payload of review.* events.
type ReviewData struct {
	ReviewID    string   `json:"review_id"`
	ContentID   string   `json:"content_id"`
	UserID      string   `json:"user_id,omitempty"`
	Rating      int      `json:"rating"`
	CategoryIDs []string `json:"category_ids"`
	DeletedBy   string   `json:"deleted_by,omitempty"`
}

// CategoryTallyData is one category row within an aggregate event.
type CategoryTallyData struct {
	CategoryID string `json:"category_id"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// AggregateUpdatedData is the payload of content.aggregate_updated.
type AggregateUpdatedData struct {
	ContentID   string              `json:"content_id"`
	ReviewCount int                 `json:"review_count"`
	Score       float64             `json:"score"`
	Categories  []CategoryTallyData `json:"categories"`
}

// ReactionToggledData is the payload of review.reaction_toggled.
type ReactionToggledData struct {
	ReviewID     string `json:"review_id"`
	UserID       string `json:"user_id"`
	Likes        int    `json:"likes"`
	Dislikes     int    `json:"dislikes"`
	UserReaction string `json:"user_reaction,omitempty"`
}

// Producer publishes events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a Kafka-backed Publisher.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

func reviewData(r *domain.Review) ReviewData {
	d := ReviewData{
		ReviewID:    r.ID,
		ContentID:   r.ContentID,
		Rating:      r.Rating,
		CategoryIDs: r.CategoryIDs(),
	}
	if r.UserID != nil {
		d.UserID = *r.UserID
	}
	return d
}

// PublishReviewCreated publishes review.created.
func (p *Producer) PublishReviewCreated(ctx context.Context, r *domain.Review) error {
	return p.publish(ctx, TopicReviewCreated, r.ID, AggregateTypeReview, reviewData(r))
}

// PublishReviewUpdated publishes review.updated.
func (p *Producer) PublishReviewUpdated(ctx context.Context, r *domain.Review) error {
	return p.publish(ctx, TopicReviewUpdated, r.ID, AggregateTypeReview, reviewData(r))
}

// PublishReviewDeleted publishes review.deleted.
func (p *Producer) PublishReviewDeleted(ctx context.Context, r *domain.Review, deletedBy string) error {
	data := reviewData(r)
	data.DeletedBy = deletedBy
	return p.publish(ctx, TopicReviewDeleted, r.ID, AggregateTypeReview, data)
}

// PublishAggregateUpdated publishes content.aggregate_updated.
func (p *Producer) PublishAggregateUpdated(ctx context.Context, agg domain.Aggregate) error {
	cats := make([]CategoryTallyData, len(agg.Categories))
	for i, c := range agg.Categories {
		cats[i] = CategoryTallyData{CategoryID: c.CategoryID, Count: c.Count, Percentage: c.Percentage}
	}
	data := AggregateUpdatedData{
		ContentID:   agg.ContentID,
		ReviewCount: agg.ReviewCount,
		Score:       agg.Score,
		Categories:  cats,
	}
	return p.publish(ctx, TopicContentAggregateUpdate, agg.ContentID, AggregateTypeContent, data)
}

// PublishReactionToggled publishes review.reaction_toggled.
func (p *Producer) PublishReactionToggled(ctx context.Context, reviewID, userID string, s domain.ReactionSummary) error {
	data := ReactionToggledData{
		ReviewID: reviewID,
		UserID:   userID,
		Likes:    s.Likes,
		Dislikes: s.Dislikes,
	}
	if s.UserReaction != nil {
		data.UserReaction = string(*s.UserReaction)
	}
	return p.publish(ctx, TopicReactionToggled, reviewID, AggregateTypeReview, data)
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	evt, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		evt.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	return nil
}

// NopPublisher drops every event. Used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishReviewCreated(context.Context, *domain.Review) error { return nil }
func (NopPublisher) PublishReviewUpdated(context.Context, *domain.Review) error { return nil }
func (NopPublisher) PublishReviewDeleted(context.Context, *domain.Review, string) error {
	return nil
}
func (NopPublisher) PublishAggregateUpdated(context.Context, domain.Aggregate) error { return nil }
func (NopPublisher) PublishReactionToggled(context.Context, string, string, domain.ReactionSummary) error {
	return nil
}
