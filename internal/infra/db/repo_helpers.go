package db

import (
	"fmt"

	"batchattest/internal/domain"
)

var errDBUnavailable = fmt.Errorf("%w: db unavailable", domain.ErrAnchoringUnavailable)

func stringPtrIfNotEmpty(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
