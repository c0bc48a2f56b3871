// Package resolver adapts the external natural-language reasoning service that
// turns a command and an architecture document into a proposed CommandResult.
package resolver

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/bizmatters/agent-builder/arch-customizer/internal/models"
)

var (
	// ErrTransport covers network failures, non-2xx responses and an open circuit
	ErrTransport = errors.New("intent resolver unavailable")
	// ErrMalformedOutput means the resolver answered with something we could not parse
	ErrMalformedOutput = errors.New("intent resolver returned malformed output")
)

// Resolver turns commands into structured mutations and proposes suggestions.
// Implementations receive their own copy of the document and must not retain it.
type Resolver interface {
	// Resolve proposes a CommandResult for the command. A business refusal is a
	// result with Success=false and a nil error.
	Resolve(ctx context.Context, command string, document models.Document) (*models.CommandResult, error)
	// Suggest proposes an ordered list of improvement commands for the document.
	Suggest(ctx context.Context, document models.Document) ([]models.Suggestion, error)
}

// NormalizeCommand trims the command and puts it in Unicode NFC form so that
// Arabic text typed with combining marks compares and logs consistently.
func NormalizeCommand(command string) string {
	return norm.NFC.String(strings.TrimSpace(command))
}

// FailureReason maps a resolver error to the bilingual explanation shown to users
func FailureReason(err error) models.LocalizedText {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.Bilingual(
			"The reasoning service did not answer in time. Please try again.",
			"لم تستجب خدمة التحليل في الوقت المحدد. يرجى المحاولة مرة أخرى.",
		)
	case errors.Is(err, context.Canceled):
		return models.Bilingual(
			"The request was cancelled before the command could be applied.",
			"تم إلغاء الطلب قبل تطبيق الأمر.",
		)
	case errors.Is(err, ErrMalformedOutput):
		return models.Bilingual(
			"The command could not be understood. Try rephrasing it.",
			"تعذر فهم الأمر. حاول إعادة صياغته.",
		)
	default:
		return models.Bilingual(
			"The reasoning service is currently unavailable. Please try again later.",
			"خدمة التحليل غير متاحة حاليًا. يرجى المحاولة لاحقًا.",
		)
	}
}

// FailureType returns a short label for metrics and logs
func FailureType(err error) string {
	switch {
	case err == nil:
		return "refused"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, ErrMalformedOutput):
		return "malformed"
	default:
		return "transport"
	}
}
