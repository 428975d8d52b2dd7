package booking

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"bookingdesk/internal/pricing"
)

const (
	MinGuests = 10
	MaxGuests = 20000

	MinPizzas = 20
	MaxPizzas = 20000

	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// FieldError is a missing or malformed input.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// RangeError is a numeric input outside [Min, Max].
type RangeError struct {
	Field   string
	Value   int
	Min     int
	Max     int
	Message string
}

func (e RangeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every FieldError and RangeError of one form step.
type ValidationErrors []error

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, e := range v {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// Fields maps each failing field to its first message.
func (v ValidationErrors) Fields() map[string]string {
	out := make(map[string]string, len(v))
	for _, e := range v {
		var field, msg string
		switch fe := e.(type) {
		case FieldError:
			field, msg = fe.Field, fe.Message
		case RangeError:
			field, msg = fe.Field, fe.Message
		default:
			field, msg = "_", e.Error()
		}
		if _, ok := out[field]; !ok {
			out[field] = msg
		}
	}
	return out
}

// FieldNames is the sorted set of failing fields.
func (v ValidationErrors) FieldNames() []string {
	f := v.Fields()
	out := make([]string, 0, len(f))
	for k := range f {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (v ValidationErrors) orNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// ValidatePackage checks the package step.
func ValidatePackage(sel pricing.Selection) error {
	var errs ValidationErrors
	switch sel.Kind {
	case pricing.KindFullExperience:
		if sel.Guests < MinGuests || sel.Guests > MaxGuests {
			errs = append(errs, RangeError{
				Field: "guests", Value: sel.Guests, Min: MinGuests, Max: MaxGuests,
				Message: "Number of guests must be between 10 and 20,000",
			})
		}
	case pricing.KindLiveSetup:
		total := sel.TotalPizzas()
		if total < MinPizzas || total > MaxPizzas {
			errs = append(errs, RangeError{
				Field: "pizzas", Value: total, Min: MinPizzas, Max: MaxPizzas,
				Message: "Total number of pizzas must be between 20 and 20,000",
			})
		} else if total == 0 {
			// Unreachable while MinPizzas > 0; kept as its own rule.
			errs = append(errs, RangeError{
				Field: "pizzas", Value: total, Min: MinPizzas, Max: MaxPizzas,
				Message: "Please select at least one pizza",
			})
		}
		if sel.ClassicPizzas < 0 || sel.SignaturePizzas < 0 {
			errs = append(errs, FieldError{Field: "pizzas", Message: "pizza counts cannot be negative"})
		}
	default:
		errs = append(errs, FieldError{Field: "package", Message: "package is required"})
	}
	return errs.orNil()
}

// Details are the contact and schedule fields of the details step.
type Details struct {
	FullName        string `json:"fullName"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	EventDate       string `json:"eventDate"`
	ReadyTime       string `json:"readyTime"`
	ServingTime     string `json:"servingTime"`
	Address         string `json:"address"`
	Location        string `json:"location"`
	AreaID          int    `json:"areaId"`
	EventTypeID     int    `json:"eventTypeId"`
	AllowFilming    *bool  `json:"allowFilming"`
	Comment         string `json:"comment,omitempty"`
	PaymentProofURL string `json:"downpaymentUrl,omitempty"`
}

func (d Details) normalized() Details {
	d.FullName = strings.TrimSpace(d.FullName)
	d.Phone = strings.TrimSpace(d.Phone)
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
	d.EventDate = strings.TrimSpace(d.EventDate)
	d.ReadyTime = strings.TrimSpace(d.ReadyTime)
	d.ServingTime = strings.TrimSpace(d.ServingTime)
	d.Address = strings.TrimSpace(d.Address)
	d.Location = strings.TrimSpace(d.Location)
	d.Comment = strings.TrimSpace(d.Comment)
	d.PaymentProofURL = strings.TrimSpace(d.PaymentProofURL)
	return d
}

// ValidateDetails checks the details step. The event date must fall strictly after
// the calendar day of now in loc.
func ValidateDetails(d Details, now time.Time, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	d = d.normalized()
	var errs ValidationErrors

	required := func(field, value string) {
		if value == "" {
			errs = append(errs, FieldError{Field: field, Message: field + " is required"})
		}
	}
	required("fullName", d.FullName)
	required("phone", d.Phone)

	if d.Email == "" {
		errs = append(errs, FieldError{Field: "email", Message: "email is required"})
	} else if !emailPattern.MatchString(d.Email) {
		errs = append(errs, FieldError{Field: "email", Message: "invalid email address"})
	}

	if d.EventDate == "" {
		errs = append(errs, FieldError{Field: "eventDate", Message: "eventDate is required"})
	} else if day, err := time.ParseInLocation(DateLayout, d.EventDate, loc); err != nil {
		errs = append(errs, FieldError{Field: "eventDate", Message: "eventDate must be YYYY-MM-DD"})
	} else {
		y, m, dd := now.In(loc).Date()
		today := time.Date(y, m, dd, 0, 0, 0, 0, loc)
		if !day.After(today) {
			errs = append(errs, FieldError{Field: "eventDate", Message: "eventDate must be after today"})
		}
	}

	clock := func(field, value string) {
		if value == "" {
			errs = append(errs, FieldError{Field: field, Message: field + " is required"})
			return
		}
		if _, err := time.Parse(TimeLayout, value); err != nil {
			errs = append(errs, FieldError{Field: field, Message: field + " must be HH:MM"})
		}
	}
	clock("readyTime", d.ReadyTime)
	clock("servingTime", d.ServingTime)

	required("address", d.Address)
	required("location", d.Location)

	if d.AreaID <= 0 {
		errs = append(errs, FieldError{Field: "areaId", Message: "area is required"})
	}
	if d.EventTypeID <= 0 {
		errs = append(errs, FieldError{Field: "eventTypeId", Message: "event type is required"})
	}
	if d.AllowFilming == nil {
		errs = append(errs, FieldError{Field: "allowFilming", Message: "please select allow filming option"})
	}

	return errs.orNil()
}
