package requests

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ItemForm is one document line of a submission.
type ItemForm struct {
	DocumentType string `json:"documentType" validate:"required,doctype"`
	Purpose      string `json:"purpose" validate:"required,max=200"`
	Copies       int    `json:"copies" validate:"required,min=1,max=5"`
}

// Form is the submission payload for creating or editing a request.
type Form struct {
	FirstName     string     `json:"firstName" validate:"required,max=80"`
	MiddleName    string     `json:"middleName" validate:"omitempty,max=80"`
	LastName      string     `json:"lastName" validate:"required,max=80"`
	LRN           string     `json:"lrn" validate:"required,numeric,len=12"`
	Email         string     `json:"email" validate:"required,email"`
	Phone         string     `json:"phone" validate:"omitempty,max=20"`
	Role          string     `json:"role" validate:"required,oneof=student alumni"`
	GradeYear     string     `json:"gradeYear" validate:"omitempty,max=40"`
	Documents     []ItemForm `json:"documents" validate:"required,min=1,max=10,dive"`
	PreferredDate string     `json:"preferredDate" validate:"required"`
	PreferredTime string     `json:"preferredTime" validate:"required,timeslot"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("doctype", func(fl validator.FieldLevel) bool {
		_, ok := DocumentTypes[fl.Field().String()]
		return ok
	})
	_ = v.RegisterValidation("timeslot", func(fl validator.FieldLevel) bool {
		for _, s := range TimeSlots {
			if s == fl.Field().String() {
				return true
			}
		}
		return false
	})
	return v
}

// Validate checks the form's shape and the per-type copy bounds.
func (f Form) Validate() error {
	if err := validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	seen := map[string]bool{}
	for _, item := range f.Documents {
		if limit := DocumentTypes[item.DocumentType]; item.Copies > limit {
			return fmt.Errorf("%w: %s allows at most %d copies", ErrValidation, item.DocumentType, limit)
		}
		if seen[item.DocumentType] {
			return fmt.Errorf("%w: %s requested twice", ErrValidation, item.DocumentType)
		}
		seen[item.DocumentType] = true
	}
	return nil
}
