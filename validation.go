package bboard

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var messages []string
	for _, err := range e {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// Validator provides input validation functions
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

// AddError adds a validation error
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

// ValidateRequired validates that a field is not empty
func (v *Validator) ValidateRequired(field, value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		v.AddError(field, "is required")
		return false
	}
	return true
}

// ValidateMaxLength validates maximum length
func (v *Validator) ValidateMaxLength(field, value string, maxLength int) bool {
	if utf8.RuneCountInString(value) > maxLength {
		v.AddError(field, fmt.Sprintf("must not exceed %d characters", maxLength))
		return false
	}
	return true
}

// ValidateMinLength validates minimum length
func (v *Validator) ValidateMinLength(field, value string, minLength int) bool {
	if utf8.RuneCountInString(value) < minLength {
		v.AddError(field, fmt.Sprintf("must be at least %d characters", minLength))
		return false
	}
	return true
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidateEmail validates that a string looks like an email address
func (v *Validator) ValidateEmail(field, value string) bool {
	if !emailPattern.MatchString(value) {
		v.AddError(field, "must be a valid email address")
		return false
	}
	return true
}

// ValidateURL validates that a string is a valid URL
func (v *Validator) ValidateURL(field, value string) bool {
	// Allow empty URLs
	if value == "" {
		return true
	}

	u, err := url.Parse(value)
	if err != nil {
		v.AddError(field, "must be a valid URL")
		return false
	}

	if u.Scheme == "" || u.Host == "" {
		v.AddError(field, "must be a complete URL with scheme and host")
		return false
	}

	// Only allow http and https
	if u.Scheme != "http" && u.Scheme != "https" {
		v.AddError(field, "must use http or https protocol")
		return false
	}

	return true
}

// ValidateRole validates that a string is a known role
func (v *Validator) ValidateRole(field, value string) bool {
	if value == "" {
		return true
	}
	if !ValidRole(Role(value)) {
		v.AddError(field, "must be one of USER, ADMIN, MODERATOR")
		return false
	}
	return true
}

// Field length limits
const (
	MaxNameLength    = 100
	MaxLoginLength   = 100
	MaxEmailLength   = 255
	MaxMessageLength = 10000
	MaxCaptionLength = 255
	MaxURLLength     = 500
	MaxCommentLength = 1000
	MaxTopicLength   = 200
	MaxTagLength     = 50
)

// ValidateUserTransfer validates an inbound user payload and the graph it
// carries. Nested entities are checked one level at a time; the converter
// will handle the cross-references.
func ValidateUserTransfer(t *UserTransfer) ValidationErrors {
	v := NewValidator()

	if v.ValidateRequired("name", t.Name) {
		v.ValidateMaxLength("name", t.Name, MaxNameLength)
	}
	if v.ValidateRequired("login", t.Login) {
		v.ValidateMaxLength("login", t.Login, MaxLoginLength)
	}
	if v.ValidateRequired("email", t.Email) {
		v.ValidateMaxLength("email", t.Email, MaxEmailLength)
		v.ValidateEmail("email", t.Email)
	}
	v.ValidateRole("role", string(t.Role))

	for i, p := range t.Posts {
		validatePostTransfer(v, fmt.Sprintf("posts[%d]", i), &p)
	}
	for i, c := range t.Comments {
		v.ValidateMaxLength(fmt.Sprintf("comments[%d].name", i), c.Name, MaxCommentLength)
	}
	for i, tp := range t.Topics {
		prefix := fmt.Sprintf("topics[%d]", i)
		if v.ValidateRequired(prefix+".name", tp.Name) {
			v.ValidateMaxLength(prefix+".name", tp.Name, MaxTopicLength)
		}
		for j, tag := range tp.Tags {
			v.ValidateMaxLength(fmt.Sprintf("%s.tags[%d].name", prefix, j), tag.Name, MaxTagLength)
		}
		for j, p := range tp.Posts {
			validatePostTransfer(v, fmt.Sprintf("%s.posts[%d]", prefix, j), &p)
		}
	}

	return v.Errors()
}

func validatePostTransfer(v *Validator, prefix string, p *PostTransfer) {
	v.ValidateMaxLength(prefix+".message", p.Message, MaxMessageLength)
	for i, pic := range p.Pics {
		picPrefix := fmt.Sprintf("%s.pics[%d]", prefix, i)
		v.ValidateMaxLength(picPrefix+".caption", pic.Caption, MaxCaptionLength)
		if pic.ImageLink != "" {
			v.ValidateURL(picPrefix+".image_link", pic.ImageLink)
			v.ValidateMaxLength(picPrefix+".image_link", pic.ImageLink, MaxURLLength)
		}
	}
	for i, c := range p.Comments {
		v.ValidateMaxLength(fmt.Sprintf("%s.comments[%d].name", prefix, i), c.Name, MaxCommentLength)
	}
}

// sanitizeLine scrubs a single-line text field: whitespace normalization
// plus a strict HTML strip, so names and captions store as plain text.
func sanitizeLine(s string) string {
	return parseHTMLStrict(SanitizeInput(s))
}

// SanitizeUserTransfer normalizes every inbound text field in place.
// Single-line fields lose all HTML; post messages keep their markdown
// source and are only whitespace-normalized, since they are rendered
// through the message policy on the way out. Password is left untouched;
// rewriting a credential would lock the account out.
func SanitizeUserTransfer(t *UserTransfer) {
	t.Name = sanitizeLine(t.Name)
	t.Login = sanitizeLine(t.Login)
	t.Email = SanitizeInput(t.Email)
	t.Role = Role(SanitizeInput(string(t.Role)))
	for i := range t.Posts {
		sanitizePostTransfer(&t.Posts[i])
	}
	for i := range t.Topics {
		tp := &t.Topics[i]
		tp.Name = sanitizeLine(tp.Name)
		for j := range tp.Tags {
			tp.Tags[j].Name = sanitizeLine(tp.Tags[j].Name)
		}
		if tp.Forum != nil {
			tp.Forum.Name = sanitizeLine(tp.Forum.Name)
			if tp.Forum.Section != nil {
				tp.Forum.Section.Name = sanitizeLine(tp.Forum.Section.Name)
			}
		}
		for j := range tp.Posts {
			sanitizePostTransfer(&tp.Posts[j])
		}
	}
	for i := range t.Comments {
		t.Comments[i].Name = sanitizeLine(t.Comments[i].Name)
	}
}

func sanitizePostTransfer(p *PostTransfer) {
	p.Message = SanitizeInput(p.Message)
	for i := range p.Pics {
		p.Pics[i].Caption = sanitizeLine(p.Pics[i].Caption)
		p.Pics[i].ImageLink = SanitizeInput(p.Pics[i].ImageLink)
	}
	for i := range p.Comments {
		p.Comments[i].Name = sanitizeLine(p.Comments[i].Name)
	}
}

// SanitizeInput performs basic input sanitization
func SanitizeInput(input string) string {
	// Normalize line endings: CRLF -> LF, standalone CR -> LF
	input = strings.ReplaceAll(input, "\r\n", "\n")
	input = strings.ReplaceAll(input, "\r", "\n")

	// Trim whitespace
	input = strings.TrimSpace(input)

	// Normalize horizontal whitespace (spaces/tabs) but preserve newlines
	hSpaceRegex := regexp.MustCompile(`[^\S\n]+`)
	input = hSpaceRegex.ReplaceAllString(input, " ")

	// Normalize multiple newlines to max of 2 (allow paragraph breaks)
	newlineRegex := regexp.MustCompile(`\n{3,}`)
	input = newlineRegex.ReplaceAllString(input, "\n\n")

	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	return input
}
