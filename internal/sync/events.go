package sync

import "time"

const (
	EventReviewCreated = "review.created"
	EventReviewUpdated = "review.updated"
	EventReviewDeleted = "review.deleted"
	EventReviewVoted   = "review.voted"
	EventItemRating    = "item.rating"
)

type ReviewEvent struct {
	Type     string    `json:"type"`
	ReviewID string    `json:"review_id"`
	ItemID   string    `json:"item_id"`
	ItemType string    `json:"item_type"`
	UserID   string    `json:"user_id"`
	AuthorID string    `json:"author_id,omitempty"`
	Rating   int       `json:"rating,omitempty"`
	Likes    int       `json:"likes,omitempty"`
	Dislikes int       `json:"dislikes,omitempty"`
	At       time.Time `json:"at"`
}

// RatingEvent announces a recomputed item aggregate.
type RatingEvent struct {
	Type      string    `json:"type"`
	ItemID    string    `json:"item_id"`
	ItemType  string    `json:"item_type"`
	Rating    float64   `json:"rating"`
	VoteCount int       `json:"vote_count"`
	At        time.Time `json:"at"`
}
