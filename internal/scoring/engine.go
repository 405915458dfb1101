package scoring

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/01382253386/ai-hr-decision-platform/internal/domain"
)

// scoreScale maps the maximum weighted sum (rating 5, weights sum 1.0) to
// 100. The minimum rating of 1 therefore maps to 20, so the score domain
// is [20,100], not [0,100].
const scoreScale = 20

// marginMax is the confidence margin for an all-neutral candidate. The
// margin shrinks to 0 as all five attributes are actively rated.
const marginMax = 15

// Engine scores candidates against an injected, immutable profile set.
// It holds no other state and is safe for concurrent use.
type Engine struct {
	profiles ProfileSet
}

// NewEngine constructs an Engine over the given profiles.
func NewEngine(profiles ProfileSet) *Engine {
	return &Engine{profiles: profiles}
}

// Score ranks the named candidates for the given role type.
//
// Entries without a name are dropped and counted in the result's Skipped
// field. An empty or all-unnamed input yields ErrNoCandidates. Ratings
// outside [1,5] are rejected with ErrInvalidRating. Unknown role types
// fall back to the technical profile; the fallback is reported via the
// result's RoleType echoing the requested role with the technical weights.
// The ranking is sorted by descending score with input order preserved on
// ties.
func (e *Engine) Score(ctx domain.Context, candidates []domain.CandidateRating, role domain.RoleType) (domain.ScoringResult, error) {
	profile, known := e.profiles.Resolve(role)
	if !known {
		slog.WarnContext(ctx, "unknown role type, using technical profile",
			slog.String("role_type", string(role)))
	}

	skipped := 0
	ranking := make([]domain.ScoredCandidate, 0, len(candidates))
	for i, c := range candidates {
		if c.Name == "" {
			skipped++
			continue
		}
		if err := validateRatings(c); err != nil {
			return domain.ScoringResult{}, fmt.Errorf("candidate %d (%s): %w", i, c.Name, err)
		}
		ranking = append(ranking, scoreOne(c, profile, role))
	}
	if len(ranking) == 0 {
		return domain.ScoringResult{}, fmt.Errorf("op=scoring.Score: %w", domain.ErrNoCandidates)
	}

	// Stable: equal scores keep their original input order.
	sort.SliceStable(ranking, func(i, j int) bool { return ranking[i].Score > ranking[j].Score })

	return domain.ScoringResult{
		Ranking:     ranking,
		WeightsUsed: profile,
		RoleType:    role,
		Skipped:     skipped,
	}, nil
}

func validateRatings(c domain.CandidateRating) error {
	for _, a := range domain.AttributeOrder {
		if v := c.Rating(a); v < domain.RatingMin || v > domain.RatingMax {
			return fmt.Errorf("%w: %s=%d, want [%d,%d]", domain.ErrInvalidRating, a, v, domain.RatingMin, domain.RatingMax)
		}
	}
	return nil
}

func scoreOne(c domain.CandidateRating, p domain.WeightProfile, role domain.RoleType) domain.ScoredCandidate {
	var weighted float64
	filled := 0
	strength, risk := domain.AttributeOrder[0], domain.AttributeOrder[0]
	maxRating, minRating := c.Rating(strength), c.Rating(risk)

	for _, a := range domain.AttributeOrder {
		v := c.Rating(a)
		weighted += float64(v) * p.Weight(a) * scoreScale
		if v != domain.RatingNeutral {
			filled++
		}
		// Strict comparisons keep the first-encountered extreme on ties.
		if v > maxRating {
			maxRating, strength = v, a
		}
		if v < minRating {
			minRating, risk = v, a
		}
	}

	margin := int(math.Round((1 - float64(filled)/float64(len(domain.AttributeOrder))) * marginMax))
	return domain.ScoredCandidate{
		Name:        c.Name,
		Score:       int(math.Round(weighted)),
		Confidence:  fmt.Sprintf("± %d", margin),
		Margin:      margin,
		TopStrength: strength,
		TopRisk:     risk,
		RoleType:    role,
	}
}
