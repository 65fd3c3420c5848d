package mashup

import (
	"strconv"
	"strings"

	"mashup/internal/services"
)

// Form field names accepted by the generate endpoint.
const (
	FieldSinger   = "singer"
	FieldCount    = "number_of_videos"
	FieldDuration = "duration"
	FieldEmail    = "email"
)

// Validation messages returned to the requester.
const (
	MsgMissingFields   = "Please provide singer name, number of videos, and email."
	MsgEmptySinger     = "Singer name cannot be empty."
	MsgInvalidEmail    = "Please provide a valid email address."
	MsgCountNotInteger = "Number of videos must be an integer."
	MsgDurationNotInt  = "Duration must be an integer."
	MsgCountRange      = "Number of videos must be between 1 and 20."
	MsgDurationRange   = "Duration must be between 1 and 120 seconds."
)

// ValidationError reports the first request constraint that was violated.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Unwrap lets callers match validation failures with errors.Is.
func (e *ValidationError) Unwrap() error {
	return services.ErrValidation
}

// Values is the subset of url.Values used for parsing.
type Values interface {
	Get(key string) string
}

// ParseRequest validates raw form values. Checks run in a fixed order and the
// first violation is returned.
func ParseRequest(values Values) (Request, error) {
	singer := values.Get(FieldSinger)
	rawCount := strings.TrimSpace(values.Get(FieldCount))
	rawDuration := strings.TrimSpace(values.Get(FieldDuration))
	email := strings.TrimSpace(values.Get(FieldEmail))

	if singer == "" || rawCount == "" || email == "" {
		return Request{}, &ValidationError{Field: missingField(singer, rawCount, email), Message: MsgMissingFields}
	}
	singer = strings.TrimSpace(singer)
	if singer == "" {
		return Request{}, &ValidationError{Field: FieldSinger, Message: MsgEmptySinger}
	}
	if !ValidEmail(email) {
		return Request{}, &ValidationError{Field: FieldEmail, Message: MsgInvalidEmail}
	}
	count, err := strconv.Atoi(rawCount)
	if err != nil {
		return Request{}, &ValidationError{Field: FieldCount, Message: MsgCountNotInteger}
	}
	duration := DefaultSeconds
	if rawDuration != "" {
		duration, err = strconv.Atoi(rawDuration)
		if err != nil {
			return Request{}, &ValidationError{Field: FieldDuration, Message: MsgDurationNotInt}
		}
	}

	req := Request{Singer: singer, Count: count, Duration: duration, Email: email}
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Validate checks the numeric bounds of an already-typed request.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Singer) == "" {
		return &ValidationError{Field: FieldSinger, Message: MsgEmptySinger}
	}
	if !ValidEmail(r.Email) {
		return &ValidationError{Field: FieldEmail, Message: MsgInvalidEmail}
	}
	if r.Count < MinCount || r.Count > MaxCount {
		return &ValidationError{Field: FieldCount, Message: MsgCountRange}
	}
	if r.Duration < MinDuration || r.Duration > MaxDuration {
		return &ValidationError{Field: FieldDuration, Message: MsgDurationRange}
	}
	return nil
}

// ValidEmail applies the minimal address check: an '@' and a '.'.
func ValidEmail(email string) bool {
	return strings.Contains(email, "@") && strings.Contains(email, ".")
}

func missingField(singer, count, email string) string {
	switch {
	case singer == "":
		return FieldSinger
	case count == "":
		return FieldCount
	default:
		return FieldEmail
	}
}
