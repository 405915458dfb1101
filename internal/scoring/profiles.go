// Package scoring implements the deterministic candidate scoring engine.
//
// The engine is pure: given the same candidates and role type it always
// produces the same ranking. All state it needs (the weight profiles) is
// injected at construction and immutable afterwards.
package scoring

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/01382253386/ai-hr-decision-platform/internal/domain"
)

// weightSumTolerance bounds float drift when validating that a profile's
// weights sum to 1.0.
const weightSumTolerance = 1e-9

// ProfileSet is an immutable mapping from role type to weight profile.
type ProfileSet struct {
	profiles map[domain.RoleType]domain.WeightProfile
}

// DefaultProfiles returns the built-in role weight profiles.
func DefaultProfiles() ProfileSet {
	ps, err := NewProfileSet(map[domain.RoleType]domain.WeightProfile{
		domain.RoleTechnical: {
			SkillMatch: 0.35, CultureFit: 0.15, ExecutionSpeed: 0.20, CostEfficiency: 0.15, Adaptability: 0.15,
		},
		domain.RoleExecutive: {
			SkillMatch: 0.20, CultureFit: 0.30, ExecutionSpeed: 0.15, CostEfficiency: 0.15, Adaptability: 0.20,
		},
		domain.RoleOperational: {
			SkillMatch: 0.30, CultureFit: 0.20, ExecutionSpeed: 0.25, CostEfficiency: 0.15, Adaptability: 0.10,
		},
	})
	if err != nil {
		// Built-in tables are constants; a failure here is a programming error.
		panic(err)
	}
	return ps
}

// NewProfileSet validates and freezes a set of weight profiles. Every
// profile's weights must sum to 1.0 and a technical profile must exist
// because it is the fallback for unknown role types.
func NewProfileSet(profiles map[domain.RoleType]domain.WeightProfile) (ProfileSet, error) {
	if len(profiles) == 0 {
		return ProfileSet{}, fmt.Errorf("profile set: %w: no profiles", domain.ErrInvalidArgument)
	}
	if _, ok := profiles[domain.RoleTechnical]; !ok {
		return ProfileSet{}, fmt.Errorf("profile set: %w: missing %q fallback profile", domain.ErrInvalidArgument, domain.RoleTechnical)
	}
	frozen := make(map[domain.RoleType]domain.WeightProfile, len(profiles))
	for role, p := range profiles {
		for _, a := range domain.AttributeOrder {
			if p.Weight(a) < 0 {
				return ProfileSet{}, fmt.Errorf("profile %q: %w: negative weight for %s", role, domain.ErrInvalidArgument, a)
			}
		}
		if math.Abs(p.Sum()-1.0) > weightSumTolerance {
			return ProfileSet{}, fmt.Errorf("profile %q: %w: weights sum to %.6f, want 1.0", role, domain.ErrInvalidArgument, p.Sum())
		}
		frozen[role] = p
	}
	return ProfileSet{profiles: frozen}, nil
}

// LoadProfiles reads a profile-set override from a YAML file. The file maps
// role names to weight mappings and is validated like the built-in tables.
func LoadProfiles(path string) (ProfileSet, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return ProfileSet{}, fmt.Errorf("op=scoring.LoadProfiles: %w", err)
	}
	var raw map[domain.RoleType]domain.WeightProfile
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return ProfileSet{}, fmt.Errorf("op=scoring.LoadProfiles: %w", err)
	}
	return NewProfileSet(raw)
}

// Resolve returns the profile for the role type. Unknown role types fall
// back to the technical profile; the second return reports whether the
// requested role was known.
func (s ProfileSet) Resolve(role domain.RoleType) (domain.WeightProfile, bool) {
	if p, ok := s.profiles[role]; ok {
		return p, true
	}
	return s.profiles[domain.RoleTechnical], false
}

// Roles returns the known role types (unordered).
func (s ProfileSet) Roles() []domain.RoleType {
	out := make([]domain.RoleType, 0, len(s.profiles))
	for r := range s.profiles {
		out = append(out, r)
	}
	return out
}
