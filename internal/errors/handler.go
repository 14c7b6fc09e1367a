package errors

import (
	"context"
	stderrors "errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/storynest/console/internal/i18n"
)

// Category is the classified kind of an error. The set is closed.
type Category string

const (
	CategoryNetwork        Category = "network"
	CategoryAuthentication Category = "authentication"
	CategoryAuthorization  Category = "authorization"
	CategoryValidation     Category = "validation"
	CategoryNotFound       Category = "not_found"
	CategoryServerError    Category = "server_error"
	CategoryUnknown        Category = "unknown"
)

// Categories lists every category in display order.
func Categories() []Category {
	return []Category{
		CategoryNetwork,
		CategoryAuthentication,
		CategoryAuthorization,
		CategoryValidation,
		CategoryNotFound,
		CategoryServerError,
		CategoryUnknown,
	}
}

func (c Category) String() string {
	return string(c)
}

// ShouldRetry reports whether failures of this category are transient.
func (c Category) ShouldRetry() bool {
	return c == CategoryNetwork || c == CategoryServerError
}

// RequiresAuth reports whether the user has to sign in again.
func (c Category) RequiresAuth() bool {
	return c == CategoryAuthentication
}

// TitleKey, MessageKey and ActionKey name the localized strings of c.
func (c Category) TitleKey() i18n.Key   { return i18n.Key("error." + string(c) + ".title") }
func (c Category) MessageKey() i18n.Key { return i18n.Key("error." + string(c) + ".message") }
func (c Category) ActionKey() i18n.Key  { return i18n.Key("error." + string(c) + ".action") }

// ProcessedError is a classified failure ready for display. It is created
// fresh per failure and never mutated; the retry and auth flags are derived
// from Category.
type ProcessedError struct {
	Category  Category
	Title     string
	Message   string
	Action    string
	Language  i18n.Language
	Original  error
	Timestamp time.Time
}

// Error returns the localized message. The raw failure stays in Original.
func (p *ProcessedError) Error() string {
	return p.Message
}

// Unwrap provides access to the original error
func (p *ProcessedError) Unwrap() error {
	return p.Original
}

// ShouldRetry is true only for network and server errors.
func (p *ProcessedError) ShouldRetry() bool {
	return p.Category.ShouldRetry()
}

// RequiresAuth is true only for authentication errors.
func (p *ProcessedError) RequiresAuth() bool {
	return p.Category.RequiresAuth()
}

// Detail returns the raw error text for the development diagnostics panel.
func (p *ProcessedError) Detail() string {
	if p.Original == nil {
		return ""
	}
	return p.Original.Error()
}

var codeCategories = map[string]Category{
	CodeNetwork:       CategoryNetwork,
	CodeRequestFailed: CategoryNetwork,
	CodeTimeout:       CategoryNetwork,
	"HTTP_400":        CategoryValidation,
	"HTTP_401":        CategoryAuthentication,
	"HTTP_403":        CategoryAuthorization,
	"HTTP_404":        CategoryNotFound,
	"HTTP_422":        CategoryValidation,
}

var networkHints = []string{
	"network",
	"fetch",
	"connection refused",
	"no such host",
	"timeout",
	"dial tcp",
}

// Classify maps any error onto a category and resolves its title, message
// and action in lang. It never panics and never returns nil.
func Classify(err error, lang i18n.Language) *ProcessedError {
	if !lang.Valid() {
		lang = i18n.English
	}
	category := Categorize(err)
	return &ProcessedError{
		Category:  category,
		Title:     i18n.T(lang, category.TitleKey()),
		Message:   i18n.T(lang, category.MessageKey()),
		Action:    i18n.T(lang, category.ActionKey()),
		Language:  lang,
		Original:  err,
		Timestamp: time.Now(),
	}
}

// Categorize returns the category of err without localizing it.
func Categorize(err error) Category {
	if err == nil {
		return CategoryUnknown
	}

	var processed *ProcessedError
	if stderrors.As(err, &processed) {
		return processed.Category
	}

	if code := ErrorCode(err); code != "" {
		if category, ok := categoryForCode(code); ok {
			return category
		}
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return CategoryNetwork
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return CategoryNetwork
	}

	message := strings.ToLower(err.Error())
	for _, hint := range networkHints {
		if strings.Contains(message, hint) {
			return CategoryNetwork
		}
	}

	return CategoryUnknown
}

// ErrorCode returns the first machine code found in err's chain.
func ErrorCode(err error) string {
	var coder Coder
	if stderrors.As(err, &coder) {
		return coder.ErrorCode()
	}
	return ""
}

func categoryForCode(code string) (Category, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if category, ok := codeCategories[code]; ok {
		return category, true
	}
	if status, ok := strings.CutPrefix(code, "HTTP_"); ok {
		if n, err := strconv.Atoi(status); err == nil && n >= 500 && n <= 599 {
			return CategoryServerError, true
		}
	}
	return "", false
}

// Is reports whether err classifies as category.
func Is(err error, category Category) bool {
	return Categorize(err) == category
}
