package errors

import (
	"context"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storynest/console/internal/i18n"
)

type codedError struct{ code string }

func (e codedError) Error() string     { return "coded failure" }
func (e codedError) ErrorCode() string { return e.code }

func TestEveryCategoryIsLocalizedInEveryLanguage(t *testing.T) {
	for _, lang := range i18n.Languages() {
		for _, category := range Categories() {
			for _, key := range []i18n.Key{category.TitleKey(), category.MessageKey(), category.ActionKey()} {
				text, ok := i18n.Lookup(lang, key)
				assert.True(t, ok, "%s missing %s", lang, key)
				assert.NotEmpty(t, text)
			}
		}
	}
}

func TestClassifyByCode(t *testing.T) {
	cases := map[string]Category{
		CodeNetwork:       CategoryNetwork,
		CodeRequestFailed: CategoryNetwork,
		CodeTimeout:       CategoryNetwork,
		"HTTP_400":        CategoryValidation,
		"HTTP_401":        CategoryAuthentication,
		"HTTP_403":        CategoryAuthorization,
		"HTTP_404":        CategoryNotFound,
		"HTTP_422":        CategoryValidation,
		"HTTP_500":        CategoryServerError,
		"HTTP_503":        CategoryServerError,
		"HTTP_599":        CategoryServerError,
		"HTTP_418":        CategoryUnknown,
		"SOMETHING_ELSE":  CategoryUnknown,
	}
	for code, want := range cases {
		assert.Equal(t, want, Classify(codedError{code}, i18n.English).Category, code)
	}
}

func TestNotFoundRegardlessOfLanguage(t *testing.T) {
	err := NewHTTPError(404, "Story not found")
	for _, lang := range i18n.Languages() {
		processed := Classify(err, lang)
		assert.Equal(t, CategoryNotFound, processed.Category)
		assert.Equal(t, lang, processed.Language)
	}
	assert.Equal(t, "לא נמצא", Classify(err, i18n.Hebrew).Title)
}

func TestClassifyByMessage(t *testing.T) {
	assert.Equal(t, CategoryNetwork, Classify(fmt.Errorf("Network unreachable"), i18n.English).Category)
	assert.Equal(t, CategoryNetwork, Classify(fmt.Errorf("dial tcp 127.0.0.1:8000: connection refused"), i18n.English).Category)
	assert.Equal(t, CategoryNetwork, Classify(fmt.Errorf("failed to fetch"), i18n.English).Category)
	assert.Equal(t, CategoryUnknown, Classify(fmt.Errorf("boom"), i18n.English).Category)
}

func TestClassifyUsesWrappedCodes(t *testing.T) {
	err := fmt.Errorf("loading story: %w", NewHTTPError(401, "Could not validate credentials"))
	processed := Classify(err, i18n.English)
	assert.Equal(t, CategoryAuthentication, processed.Category)
	assert.True(t, processed.RequiresAuth())
	assert.ErrorIs(t, processed, err)
}

func TestClassifyContextAndNetErrors(t *testing.T) {
	assert.Equal(t, CategoryNetwork, Categorize(context.DeadlineExceeded))
	assert.Equal(t, CategoryNetwork, Categorize(&net.OpError{Op: "read", Err: fmt.Errorf("reset")}))
}

func TestClassifyIsTotal(t *testing.T) {
	processed := Classify(nil, i18n.Language("klingon"))
	require.NotNil(t, processed)
	assert.Equal(t, CategoryUnknown, processed.Category)
	assert.Equal(t, i18n.English, processed.Language)
	assert.NotEmpty(t, processed.Title)
	assert.NotEmpty(t, processed.Message)
	assert.NotEmpty(t, processed.Action)
	assert.Empty(t, processed.Detail())

	panicked := Classify(NewPanicError("nil map"), i18n.Hebrew)
	assert.Equal(t, CategoryUnknown, panicked.Category)
}

func TestFlagsAreDerivedFromCategory(t *testing.T) {
	for _, category := range Categories() {
		p := &ProcessedError{Category: category}
		assert.Equal(t, category == CategoryNetwork || category == CategoryServerError, p.ShouldRetry(), category)
		assert.Equal(t, category == CategoryAuthentication, p.RequiresAuth(), category)
	}
}

func TestReclassifyingKeepsCategory(t *testing.T) {
	first := Classify(NewHTTPError(503, "down"), i18n.English)
	second := Classify(fmt.Errorf("wrapped: %w", first), i18n.Hebrew)
	assert.Equal(t, CategoryServerError, second.Category)
	assert.Equal(t, "תקלה במכונת הסיפורים", second.Title)
}

func TestAPIErrorMessage(t *testing.T) {
	err := &APIError{Code: "HTTP_404", Status: 404, Method: "GET", Path: "/stories/1", Message: "Story not found"}
	assert.Equal(t, "HTTP_404 GET /stories/1: Story not found", err.Error())
	assert.Equal(t, "HTTP_404", ErrorCode(err))
	assert.Equal(t, "HTTP_502", HTTPCode(502))
}
