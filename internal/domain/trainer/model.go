package trainer

import (
	"errors"

	"gymdesk/internal/domain/entity"
)

// MaxExperienceYears bounds the experience field.
const MaxExperienceYears = 60

// Domain errors
var (
	ErrWrongRole          = errors.New("trainer role must be 'trainer'")
	ErrInvalidExperience  = errors.New("experience must be between 0 and 60 years")
	ErrEmptyCertification = errors.New("certification cannot be blank")
)

// Trainer holds state for a gym trainer.
type Trainer struct {
	entity.Person
	Specialization  string   `json:"specialization,omitempty"`
	ExperienceYears int      `json:"experienceYears,omitempty"`
	Certifications  []string `json:"certifications,omitempty"`
}

// Validate checks if the Trainer has valid data.
// PRE: Trainer struct is initialized
// POST: Returns error if validation fails, nil otherwise
func (t *Trainer) Validate() error {
	if err := t.Person.Validate(); err != nil {
		return err
	}
	if t.Role != entity.RoleTrainer {
		return ErrWrongRole
	}
	if t.ExperienceYears < 0 || t.ExperienceYears > MaxExperienceYears {
		return ErrInvalidExperience
	}
	for _, c := range t.Certifications {
		if c == "" {
			return ErrEmptyCertification
		}
	}
	return nil
}

// Program is a training program a trainer publishes through the backend.
type Program struct {
	ID            entity.ID `json:"id,omitempty"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	DurationWeeks int       `json:"durationWeeks,omitempty"`
	Level         string    `json:"level,omitempty"`
}

// Validate checks the program fields.
// PRE: Program struct is initialized
// POST: Returns error if name is empty or duration is negative
func (p *Program) Validate() error {
	if p.Name == "" {
		return errors.New("program name cannot be empty")
	}
	if p.DurationWeeks < 0 {
		return errors.New("program duration cannot be negative")
	}
	return nil
}
