package domain

// Tier classifies question difficulty; TierBonus is the special category for
// the optional date-bound fourth question.
type Tier string

const (
	TierEasy   Tier = "easy"
	TierMedium Tier = "medium"
	TierHard   Tier = "hard"
	TierBonus  Tier = "bonus"
)

// RequiredTiers lists the difficulty of each daily question, in order.
var RequiredTiers = [RequiredQuestions]Tier{TierEasy, TierMedium, TierHard}

// MaxDailyPoints is the total achievable from the three required questions.
const MaxDailyPoints = 30

// PointsFor returns the fixed award for a correct answer at the given tier.
func PointsFor(t Tier) int {
	switch t {
	case TierEasy:
		return 5
	case TierMedium:
		return 10
	case TierHard:
		return 15
	case TierBonus:
		return 20
	}
	return 0
}
