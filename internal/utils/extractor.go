package utils

import (
	"regexp"

	apperrors "github.com/Kosench/go-url-tracker/internal/errors"
)

var srcAttrPattern = regexp.MustCompile(`(?i)src=["'](.*?)["']`)

// ExtractURL возвращает значение первого атрибута src из iframe embed-кода.
func ExtractURL(embedCode string) (string, error) {
	match := srcAttrPattern.FindStringSubmatch(embedCode)
	if match == nil {
		return "", apperrors.ErrInvalidEmbedCode
	}

	// значение возвращается как есть, без обрезки
	if match[1] == "" {
		return "", apperrors.ErrInvalidEmbedCode
	}

	return match[1], nil
}
