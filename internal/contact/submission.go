package contact

import (
	"errors"
	"regexp"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"finitefield.org/shopper-web/internal/i18n"
)

// Field error codes returned to clients.
const (
	CodeNameLength    = "name_length"
	CodeEmailInvalid  = "email_invalid"
	CodeMessageLength = "message_length"
	CodeBotDetected   = "bot_detected"
)

const honeypotField = "company"

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]{2,}$`)

// Submission is one contact form post. Company is a honeypot that humans never
// fill in.
type Submission struct {
	Name    string      `json:"name"`
	Email   string      `json:"email"`
	Message string      `json:"message"`
	Company string      `json:"company"`
	Lang    i18n.Locale `json:"lang"`
	IP      string      `json:"-"`
}

// Normalize trims every field and falls back to the default locale.
func (s Submission) Normalize() Submission {
	s.Name = strings.TrimSpace(s.Name)
	s.Email = strings.TrimSpace(s.Email)
	s.Message = strings.TrimSpace(s.Message)
	s.Company = strings.TrimSpace(s.Company)
	s.IP = strings.TrimSpace(s.IP)
	if !s.Lang.Valid() {
		s.Lang = i18n.Default
	}
	return s
}

// Validate returns a *ValidationError listing every failing field.
func (s Submission) Validate() error {
	nameErr := validation.NewError(CodeNameLength, "name must be between 2 and 80 characters")
	emailErr := validation.NewError(CodeEmailInvalid, "email must be a valid address")
	messageErr := validation.NewError(CodeMessageLength, "message must be between 10 and 2000 characters")

	err := validation.ValidateStruct(&s,
		validation.Field(&s.Name,
			validation.Required.ErrorObject(nameErr),
			validation.RuneLength(2, 80).ErrorObject(nameErr),
		),
		validation.Field(&s.Email,
			validation.Required.ErrorObject(emailErr),
			validation.Match(emailPattern).ErrorObject(emailErr),
		),
		validation.Field(&s.Message,
			validation.Required.ErrorObject(messageErr),
			validation.RuneLength(10, 2000).ErrorObject(messageErr),
		),
		validation.Field(&s.Company,
			validation.Empty.ErrorObject(validation.NewError(CodeBotDetected, "honeypot must be empty")),
		),
	)
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return err
	}
	fields := make(map[string]string, len(errs))
	for field, fieldErr := range errs {
		code := "invalid"
		var vErr validation.Error
		if errors.As(fieldErr, &vErr) {
			code = vErr.Code()
		}
		fields[field] = code
	}
	return &ValidationError{fields: fields}
}

// ValidationError maps form fields to error codes.
type ValidationError struct {
	fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.fields))
	for k := range e.fields {
		keys = append(keys, k+"="+e.fields[k])
	}
	sort.Strings(keys)
	return "contact: invalid submission: " + strings.Join(keys, ", ")
}

// Fields returns every failing field including the honeypot.
func (e *ValidationError) Fields() map[string]string {
	out := make(map[string]string, len(e.fields))
	for k, v := range e.fields {
		out[k] = v
	}
	return out
}

// Public returns the field codes safe to show a client; the honeypot is left
// out.
func (e *ValidationError) Public() map[string]string {
	out := e.Fields()
	delete(out, honeypotField)
	return out
}

// Bot reports whether the honeypot was filled in.
func (e *ValidationError) Bot() bool {
	_, ok := e.fields[honeypotField]
	return ok
}
