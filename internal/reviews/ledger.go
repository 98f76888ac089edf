package reviews

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"cinehub/pkg/models"
)

// VoteOutcome says what a vote did to the ledger.
type VoteOutcome string

const (
	VoteAdded     VoteOutcome = "added"
	VoteRetracted VoteOutcome = "retracted"
	VoteSwitched  VoteOutcome = "switched"
)

// ApplyVote toggles voter's entry in r's helpful ledger:
//
//	no entry          -> add choice
//	same choice       -> remove entry
//	different choice  -> replace entry
//
// Likes and Dislikes are recounted from the ledger afterwards, so they always
// agree with it. The caller checks that voter is not the author.
func ApplyVote(r *models.Review, voter primitive.ObjectID, choice models.VoteChoice) VoteOutcome {
	outcome := VoteAdded
	idx := -1
	for i, v := range r.Helpful {
		if v.UserID == voter {
			idx = i
			break
		}
	}

	switch {
	case idx < 0:
		r.Helpful = append(r.Helpful, models.Vote{UserID: voter, Type: choice})
	case r.Helpful[idx].Type == choice:
		r.Helpful = append(r.Helpful[:idx], r.Helpful[idx+1:]...)
		outcome = VoteRetracted
	default:
		r.Helpful[idx].Type = choice
		outcome = VoteSwitched
	}

	r.Likes, r.Dislikes = countVotes(r.Helpful)
	return outcome
}

func countVotes(ledger []models.Vote) (likes, dislikes int) {
	for _, v := range ledger {
		switch v.Type {
		case models.VoteLike:
			likes++
		case models.VoteDislike:
			dislikes++
		}
	}
	return likes, dislikes
}
