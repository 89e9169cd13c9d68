package appointments

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var personNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z\s\-']*$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		return personNamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return Category(fl.Field().String()).Valid()
	})
	return v
}

// PersonalDetails is the visitor half of a booking.
type PersonalDetails struct {
	Name     string   `json:"name" validate:"required,min=3,max=100,personname"`
	Email    string   `json:"email" validate:"required,email,max=254"`
	Phone    string   `json:"phone" validate:"required,len=10,number"`
	Category Category `json:"category" validate:"required,category"`
}

// Normalize trims surrounding whitespace.
func (p *PersonalDetails) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.TrimSpace(p.Email)
	p.Phone = strings.TrimSpace(p.Phone)
	p.Category = Category(strings.ToLower(strings.TrimSpace(string(p.Category))))
}

// Validate checks field formats.
func (p PersonalDetails) Validate() error {
	if err := validate.Struct(p); err != nil {
		return translate(err)
	}
	return nil
}

// AppointmentDetails is the slot half of a booking.
type AppointmentDetails struct {
	Reason      string
	Attendee    Attendee
	Date        time.Time
	Time        TimeOfDay
	DocumentRef string
}

// Slot is a proposed date, time and attendee used by both reschedule paths.
type Slot struct {
	Date     time.Time
	Time     TimeOfDay
	Attendee Attendee
	Reason   string
}

func validateAttendee(a Attendee) error {
	if !a.Valid() {
		return fmt.Errorf("%w: please select an attendee", ErrInvalidAttendee)
	}
	return nil
}

func validateSlotFields(rules Rules, now time.Time, date time.Time, t TimeOfDay, attendee Attendee) error {
	if date.IsZero() {
		return fmt.Errorf("%w: please select an appointment date", ErrInvalidDate)
	}
	if err := rules.ValidateSlot(now, date, t); err != nil {
		return err
	}
	return validateAttendee(attendee)
}

func translate(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	cause := ErrInvalidInput
	if len(verrs) == 1 && verrs[0].Tag() == "category" {
		cause = ErrInvalidCategory
	}
	return fmt.Errorf("%w: %s", cause, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "len":
		if field == "phone" {
			return "phone number must be exactly 10 digits"
		}
		return fmt.Sprintf("%s must be exactly %s characters", field, fe.Param())
	case "number":
		return field + " must contain only digits"
	case "email":
		return "enter a valid email address"
	case "personname":
		return field + " must contain only letters, spaces, hyphens or apostrophes"
	case "category":
		return "please select a category"
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

// DigitsOnly strips everything but ASCII digits from a phone number.
func DigitsOnly(phone string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
}
