package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ListingType distinguishes supply from demand. Offers only ever match
// against requests and vice versa.
type ListingType string

const (
	ListingTypeOffer   ListingType = "Offer"
	ListingTypeRequest ListingType = "Request"
)

// ListingCategory is the closed set of business categories.
type ListingCategory string

const (
	CategoryFood         ListingCategory = "Food & Beverage"
	CategoryConstruction ListingCategory = "Construction"
	CategoryProfessional ListingCategory = "Professional Services"
	CategoryRetail       ListingCategory = "Retail"
	CategoryHealth       ListingCategory = "Health & Wellness"
	CategoryTechnology   ListingCategory = "Technology"
	CategoryHospitality  ListingCategory = "Hospitality"
	CategoryEducation    ListingCategory = "Education"
	CategoryTransport    ListingCategory = "Transport"
	CategoryOther        ListingCategory = "Other"
)

// AllCategories lists every valid ListingCategory.
var AllCategories = []ListingCategory{
	CategoryFood, CategoryConstruction, CategoryProfessional, CategoryRetail,
	CategoryHealth, CategoryTechnology, CategoryHospitality, CategoryEducation,
	CategoryTransport, CategoryOther,
}

// IsValid reports whether c is one of the known categories.
func (c ListingCategory) IsValid() bool {
	for _, v := range AllCategories {
		if c == v {
			return true
		}
	}
	return false
}

// Listing represents a user-authored offer or request.
// Type and Category are fixed at creation; the scorer treats the whole
// record as an immutable snapshot.
type Listing struct {
	ID           uuid.UUID       `bson:"_id" json:"id"`
	UserID       uuid.UUID       `bson:"user_id" json:"user_id"`
	Title        string          `bson:"title" json:"title"`
	Category     ListingCategory `bson:"category" json:"category"`
	Tags         []string        `bson:"tags" json:"tags"`
	Budget       string          `bson:"budget,omitempty" json:"budget,omitempty"`
	Price        string          `bson:"price,omitempty" json:"price,omitempty"`
	Availability string          `bson:"availability" json:"availability"`
	Description  string          `bson:"description" json:"description"`
	Type         ListingType     `bson:"type" json:"type"`
	IsUrgent     bool            `bson:"is_urgent" json:"is_urgent"`
	CreatedAt    time.Time       `bson:"created_at" json:"created_at"`
}

// MatchScore computes the affinity between this listing and another as a
// weighted sum of independent signals. The result is always >= 0 and the
// composition order is fixed: category, tags, title keywords, description
// keywords, then the urgency bonus.
//
// Only the candidate's urgency counts, so MatchScore(a, b) and
// MatchScore(b, a) can differ by the urgency term. Callers resolving "top
// matches for L" must keep L as the receiver so that only candidates get
// the bonus.
func (l Listing) MatchScore(other Listing) int {
	score := 0

	// Category match carries the most weight.
	if l.Category == other.Category {
		score += 5
	}

	// Exact, case-sensitive tag overlap.
	score += intersectionSize(toSet(l.Tags), toSet(other.Tags)) * 2

	// Lower-cased keyword overlap in titles.
	score += intersectionSize(tokenize(l.Title), tokenize(other.Title))

	// Description overlap counts at half weight, rounded down.
	score += intersectionSize(tokenize(l.Description), tokenize(other.Description)) / 2

	// Urgent candidates get a nudge up the ranking.
	if other.IsUrgent {
		score++
	}

	return score
}

// tokenize lower-cases s and splits it into a set of tokens on runs of
// whitespace and newlines. Consecutive separators never produce empty
// tokens.
func tokenize(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}

func intersectionSize(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}
