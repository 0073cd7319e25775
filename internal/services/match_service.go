package services

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/AgronAfrica/LeedsLink/internal/models"
)

const (
	// DefaultTopMatchesLimit caps how many candidates a single listing
	// surfaces as its best matches.
	DefaultTopMatchesLimit = 5

	// LocalPartnerBadgeThreshold is the aggregate match count at which a
	// user earns the Local Partner badge.
	LocalPartnerBadgeThreshold = 3
)

// IMatchService computes listing affinity rankings and per-user match
// aggregates. The slice-based methods are pure functions over the snapshot
// they are given: no locking, no caching, no hidden state. Deterministic
// output therefore only requires the caller to pass a stable snapshot; the
// ctx-based variants take that snapshot from the listing store.
type IMatchService interface {
	TopMatches(listing models.Listing, pool []models.Listing, limit int) []models.Listing
	MatchesForUser(userID uuid.UUID, pool []models.Listing) []models.Listing
	MatchCount(userID uuid.UUID, pool []models.Listing) int
	HasLocalPartnerBadge(userID uuid.UUID, pool []models.Listing) bool

	TopMatchesForListing(ctx context.Context, listingID uuid.UUID, limit int) ([]models.Listing, error)
	MatchesForUserID(ctx context.Context, userID uuid.UUID) ([]models.Listing, error)
	MatchCountForUser(ctx context.Context, userID uuid.UUID) (int, error)
}

// matchService implements IMatchService.
type matchService struct {
	listingService IListingService
}

// NewMatchService creates a new MatchService over the given listing store.
func NewMatchService(listingService IListingService) IMatchService {
	return &matchService{listingService: listingService}
}

// TopMatches ranks the pool against the given listing. Candidates of the
// same type and the listing itself are excluded: offers only ever match
// requests and vice versa. Zero-score candidates carry no relevance signal
// and are dropped. Ties keep their pool order (stable sort, no secondary
// keys), and the result is truncated to limit.
func (s *matchService) TopMatches(listing models.Listing, pool []models.Listing, limit int) []models.Listing {
	if limit <= 0 {
		limit = DefaultTopMatchesLimit
	}

	type scored struct {
		listing models.Listing
		score   int
	}

	candidates := make([]scored, 0, len(pool))
	for _, other := range pool {
		if other.ID == listing.ID || other.Type == listing.Type {
			continue
		}
		// The query listing is always the receiver so that only the
		// candidate's urgency contributes to the score.
		if score := listing.MatchScore(other); score > 0 {
			candidates = append(candidates, scored{listing: other, score: score})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	matches := make([]models.Listing, len(candidates))
	for i, c := range candidates {
		matches[i] = c.listing
	}
	return matches
}

// MatchesForUser aggregates top matches across all of the user's listings,
// in pool order, deduplicated by listing id (first occurrence wins). The
// aggregate is recomputed from scratch on every call; pools in this domain
// are small, so correctness wins over incremental bookkeeping.
func (s *matchService) MatchesForUser(userID uuid.UUID, pool []models.Listing) []models.Listing {
	seen := make(map[uuid.UUID]struct{})
	matches := []models.Listing{}

	for _, owned := range pool {
		if owned.UserID != userID {
			continue
		}
		for _, match := range s.TopMatches(owned, pool, DefaultTopMatchesLimit) {
			if _, dup := seen[match.ID]; dup {
				continue
			}
			seen[match.ID] = struct{}{}
			matches = append(matches, match)
		}
	}

	return matches
}

// MatchCount is the size of the user's deduplicated match set.
func (s *matchService) MatchCount(userID uuid.UUID, pool []models.Listing) int {
	return len(s.MatchesForUser(userID, pool))
}

// HasLocalPartnerBadge reports whether the user's match count has reached
// the badge threshold. Derived only; never stored.
func (s *matchService) HasLocalPartnerBadge(userID uuid.UUID, pool []models.Listing) bool {
	return s.MatchCount(userID, pool) >= LocalPartnerBadgeThreshold
}

// TopMatchesForListing fetches the current pool and ranks it against the
// identified listing.
func (s *matchService) TopMatchesForListing(ctx context.Context, listingID uuid.UUID, limit int) ([]models.Listing, error) {
	listing, err := s.listingService.FindListingByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	pool, err := s.listingService.GetAllListings(ctx)
	if err != nil {
		return nil, err
	}
	return s.TopMatches(*listing, pool, limit), nil
}

// MatchesForUserID fetches the current pool and aggregates the user's
// matches. An unknown user simply owns no listings and gets an empty set.
func (s *matchService) MatchesForUserID(ctx context.Context, userID uuid.UUID) ([]models.Listing, error) {
	pool, err := s.listingService.GetAllListings(ctx)
	if err != nil {
		return nil, err
	}
	return s.MatchesForUser(userID, pool), nil
}

// MatchCountForUser fetches the current pool and counts the user's matches.
func (s *matchService) MatchCountForUser(ctx context.Context, userID uuid.UUID) (int, error) {
	matches, err := s.MatchesForUserID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return len(matches), nil
}
