package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/AgronAfrica/LeedsLink/internal/cache"
	"github.com/AgronAfrica/LeedsLink/internal/config"
	"github.com/AgronAfrica/LeedsLink/internal/metrics"
	"github.com/AgronAfrica/LeedsLink/internal/models"
	"github.com/AgronAfrica/LeedsLink/internal/notify"
	"github.com/AgronAfrica/LeedsLink/internal/services"
)

// Task types handled by the background worker.
const (
	TypeMatchRecount         = "match:recount"
	TypeRatingSummaryRefresh = "rating:summary:refresh"
)

// --- Task Client (Enqueuing tasks) ---

func NewClient(rdb *redis.Client) *asynq.Client {
	clientOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}
	return asynq.NewClient(clientOpt)
}

// MatchRecountPayload identifies the user whose match aggregate should be
// recomputed.
type MatchRecountPayload struct {
	UserID string `json:"user_id"`
}

// RatingSummaryPayload identifies the user whose rating summary should be
// recomputed and cached.
type RatingSummaryPayload struct {
	UserID string `json:"user_id"`
}

// NewMatchRecountTask builds a match recount task for the given user.
// Listing mutations enqueue one for every user that may be affected.
func NewMatchRecountTask(userID uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(MatchRecountPayload{UserID: userID.String()})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal match recount payload: %w", err)
	}
	return asynq.NewTask(TypeMatchRecount, payload), nil
}

// NewRatingSummaryRefreshTask builds a rating summary refresh task for the
// given user. Rating submissions enqueue one for the rated user.
func NewRatingSummaryRefreshTask(userID uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(RatingSummaryPayload{UserID: userID.String()})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rating summary payload: %w", err)
	}
	return asynq.NewTask(TypeRatingSummaryRefresh, payload), nil
}

// --- Task Server (Processing tasks) ---

// DerivedCache is the slice of cache.DerivedStore the task handlers need.
type DerivedCache interface {
	MatchCount(ctx context.Context, userID uuid.UUID) (int, error)
	SetMatchCount(ctx context.Context, userID uuid.UUID, count int) error
	SetRatingSummary(ctx context.Context, summary models.UserRatingSummary) error
}

// TaskProcessor handles the processing of tasks. It holds the dependencies
// needed by task handlers.
type TaskProcessor struct {
	cfg           *config.Config
	matchService  services.IMatchService
	ratingService services.IRatingService
	derived       DerivedCache
	notifier      notify.Notifier
}

func NewTaskProcessor(
	cfg *config.Config,
	matchService services.IMatchService,
	ratingService services.IRatingService,
	derived DerivedCache,
	notifier notify.Notifier,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:           cfg,
		matchService:  matchService,
		ratingService: ratingService,
		derived:       derived,
		notifier:      notifier,
	}
}

// SetupServer configures and returns an Asynq server instance. The caller
// runs it with the mux from NewMux.
func SetupServer(rdb *redis.Client) *asynq.Server {
	serverOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}

	return asynq.NewServer(
		serverOpt,
		asynq.Config{
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("[Asynq Error] Task Type: %s, Payload: %s, Error: %v", task.Type(), string(task.Payload()), err)
			}),
		},
	)
}

// NewMux registers the background task handlers.
func NewMux(processor *TaskProcessor) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeMatchRecount, processor.HandleMatchRecountTask)
	mux.HandleFunc(TypeRatingSummaryRefresh, processor.HandleRatingSummaryRefreshTask)
	return mux
}

// --- Task Handlers ---

// HandleMatchRecountTask recomputes a user's match count, stores it, and
// raises notifications when the count grew or the badge threshold was
// crossed. The previous count comes from the derived cache; a miss is
// treated as zero so a fresh deployment notifies on the first matches too.
func (p *TaskProcessor) HandleMatchRecountTask(ctx context.Context, t *asynq.Task) error {
	var payload MatchRecountPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal match recount payload: %v: %w", err, asynq.SkipRetry)
	}
	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		return fmt.Errorf("invalid user ID in match recount payload: %w", asynq.SkipRetry)
	}

	count, err := p.matchService.MatchCountForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to recount matches for user %s: %w", userID, err)
	}
	metrics.MatchComputations.Inc()

	previous, err := p.derived.MatchCount(ctx, userID)
	if err != nil && !errors.Is(err, cache.ErrMiss) {
		return fmt.Errorf("failed to read previous match count for user %s: %w", userID, err)
	}

	if err := p.derived.SetMatchCount(ctx, userID, count); err != nil {
		return err
	}

	if count > previous {
		n := notify.Notification{
			UserID: userID,
			Kind:   notify.KindNewMatches,
			Title:  "New matches for your listings",
			Body:   fmt.Sprintf("You now have %d potential matches.", count),
		}
		if err := p.notifier.Notify(ctx, n); err != nil {
			log.Printf("Failed to deliver new-matches notification for user %s: %v", userID, err)
		} else {
			metrics.NotificationsSent.WithLabelValues(string(notify.KindNewMatches)).Inc()
		}
	}

	if previous < services.LocalPartnerBadgeThreshold && count >= services.LocalPartnerBadgeThreshold {
		n := notify.Notification{
			UserID: userID,
			Kind:   notify.KindLocalPartnerBadge,
			Title:  "You earned the Local Partner badge",
			Body:   fmt.Sprintf("Your listings have reached %d matches.", count),
		}
		if err := p.notifier.Notify(ctx, n); err != nil {
			log.Printf("Failed to deliver badge notification for user %s: %v", userID, err)
		} else {
			metrics.NotificationsSent.WithLabelValues(string(notify.KindLocalPartnerBadge)).Inc()
		}
	}

	log.Printf("Match recount for user %s: %d -> %d", userID, previous, count)
	return nil
}

// HandleRatingSummaryRefreshTask recomputes a user's rating summary and
// caches it for the read path.
func (p *TaskProcessor) HandleRatingSummaryRefreshTask(ctx context.Context, t *asynq.Task) error {
	var payload RatingSummaryPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal rating summary payload: %v: %w", err, asynq.SkipRetry)
	}
	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		return fmt.Errorf("invalid user ID in rating summary payload: %w", asynq.SkipRetry)
	}

	summary, err := p.ratingService.SummaryForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to summarize ratings for user %s: %w", userID, err)
	}

	if err := p.derived.SetRatingSummary(ctx, summary); err != nil {
		return err
	}

	log.Printf("Rating summary refreshed for user %s (count=%d, mean=%.2f)", userID, summary.TotalRatings, summary.AverageRating)
	return nil
}
