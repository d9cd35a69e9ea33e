package group

import (
	"github.com/go-playground/validator/v10"

	"github.com/exemee/Laba8-server/internal/logger"
)

// Validator is the structural acceptance test applied to client-supplied
// groups and persons before any mutating verb touches the stores.
//
// It is a thin wrapper over go-playground/validator struct tags so that
// the dispatcher only depends on a boolean capability, not on the
// validation library.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator with the default tag rules.
func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// ValidGroup reports whether g is structurally acceptable.
func (v *Validator) ValidGroup(g *Group) bool {
	if g == nil {
		return false
	}
	if err := v.validate.Struct(g); err != nil {
		logger.Debug("group %q failed validation: %v", g.Name, err)
		return false
	}
	return true
}

// ValidPerson reports whether p is structurally acceptable.
func (v *Validator) ValidPerson(p *Person) bool {
	if p == nil {
		return false
	}
	if err := v.validate.Struct(p); err != nil {
		logger.Debug("person %q failed validation: %v", p.Name, err)
		return false
	}
	return true
}
