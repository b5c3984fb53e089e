// Package dedup classifies extracted candidates against stored trucks and merges duplicates.
package dedup

// Confidence is the tier of a match's overall similarity.
type Confidence string

// Confidence tiers
const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Recommendation is what a single match suggests doing with the candidate.
type Recommendation string

// Recommendations
const (
	RecommendMerge        Recommendation = "merge"
	RecommendUpdate       Recommendation = "update"
	RecommendManualReview Recommendation = "manual_review"
	RecommendSkip         Recommendation = "skip"
)

// Action is the overall outcome of a duplicate check.
type Action string

// Actions
const (
	ActionCreate       Action = "create"
	ActionMerge        Action = "merge"
	ActionUpdate       Action = "update"
	ActionManualReview Action = "manual_review"
)

// DuplicateThreshold is the overall similarity a record needs to count as a match.
const DuplicateThreshold = 0.8

// Score cut-offs for tiers and recommendations
const (
	highConfidenceMin   = 0.95
	mediumConfidenceMin = 0.85
	mergeMin            = 0.95
	updateMin           = 0.9
	manualReviewMin     = 0.8
)

// ConfidenceFor buckets an overall similarity score.
func ConfidenceFor(score float64) Confidence {
	switch {
	case score >= highConfidenceMin:
		return ConfidenceHigh
	case score >= mediumConfidenceMin:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// RecommendationFor maps an overall similarity score to a recommendation.
func RecommendationFor(score float64) Recommendation {
	switch {
	case score >= mergeMin:
		return RecommendMerge
	case score >= updateMin:
		return RecommendUpdate
	case score >= manualReviewMin:
		return RecommendManualReview
	default:
		return RecommendSkip
	}
}

type decisionKey struct {
	confidence     Confidence
	recommendation Recommendation
}

// automaticActions lists the only tier/recommendation pairs that change the store
// without a human. Everything else goes to manual review.
var automaticActions = map[decisionKey]Action{
	{ConfidenceHigh, RecommendMerge}:  ActionMerge,
	{ConfidenceHigh, RecommendUpdate}: ActionUpdate,
}

// DecideAction resolves the best match's tier and recommendation into an action.
func DecideAction(confidence Confidence, recommendation Recommendation) Action {
	if action, ok := automaticActions[decisionKey{confidence, recommendation}]; ok {
		return action
	}
	return ActionManualReview
}
