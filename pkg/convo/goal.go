package convo

import (
	"time"

	"assistant/pkg/proto"
)

// GoalCategory groups intents into broad objectives for goal tracking.
type GoalCategory string

const (
	GoalDiscovery GoalCategory = "discovery"
	GoalOrder     GoalCategory = "order"
	GoalReturn    GoalCategory = "return"
	GoalGeneral   GoalCategory = "general"
)

// GoalStatus describes where the goal stands.
type GoalStatus string

const (
	GoalActive   GoalStatus = "active"
	GoalAchieved GoalStatus = "achieved"
	GoalBlocked  GoalStatus = "blocked"
)

// Goal is the measurable objective of one conversation session. Created
// when an intent is first recognized, updated in place across turns, and
// never shared across sessions.
type Goal struct {
	Description     string       `json:"description"`
	Category        GoalCategory `json:"category"`
	SuccessCriteria []string     `json:"success_criteria"`
	ProgressScore   float64      `json:"progress_score"` // 0.0 to 1.0
	Status          GoalStatus   `json:"status"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// CategoryForIntent maps a recognized intent to its goal category.
func CategoryForIntent(intent proto.Intent) GoalCategory {
	switch intent {
	case proto.IntentBuy, proto.IntentRecommend:
		return GoalDiscovery
	case proto.IntentOrder:
		return GoalOrder
	case proto.IntentReturn:
		return GoalReturn
	default:
		return GoalGeneral
	}
}

// NewGoal creates an active goal with the category's default success
// criteria.
func NewGoal(description string, category GoalCategory) *Goal {
	now := time.Now().UTC()
	return &Goal{
		Description:     description,
		Category:        category,
		SuccessCriteria: defaultSuccessCriteria(category),
		Status:          GoalActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// UpdateProgress advances the progress score, clamped to [0,1]. A score
// of 1.0 marks the goal achieved.
func (g *Goal) UpdateProgress(score float64) {
	switch {
	case score < 0:
		score = 0
	case score > 1:
		score = 1
	}
	g.ProgressScore = score
	g.UpdatedAt = time.Now().UTC()
	if score >= 1 {
		g.Status = GoalAchieved
	}
}

// MarkAchieved sets the goal to achieved with full progress.
func (g *Goal) MarkAchieved() {
	g.ProgressScore = 1
	g.Status = GoalAchieved
	g.UpdatedAt = time.Now().UTC()
}

func defaultSuccessCriteria(category GoalCategory) []string {
	switch category {
	case GoalDiscovery:
		return []string{
			"User receives relevant product recommendations",
			"Products match user's specified requirements",
			"User expresses satisfaction with options presented",
			"Budget and preferences are respected",
		}
	case GoalOrder:
		return []string{
			"Order status information is provided",
			"User receives clear tracking information",
			"Any order issues are identified and addressed",
			"User understands next steps",
		}
	case GoalReturn:
		return []string{
			"Return process is clearly explained",
			"User receives return authorization if needed",
			"Return timeline and method are communicated",
			"User confirms understanding of process",
		}
	default:
		return []string{
			"User's question is answered accurately",
			"User receives helpful information",
			"User expresses satisfaction or understanding",
		}
	}
}
