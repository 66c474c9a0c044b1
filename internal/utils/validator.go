package utils

import (
	"fmt"

	apperrors "github.com/Kosench/go-url-tracker/internal/errors"
	"github.com/Kosench/go-url-tracker/internal/model"
)

const MaxURLLength = 2048

// ValidateURL отклоняет только пустой и слишком длинный URL.
// Записи хранятся и сравниваются по точной строке, поэтому относительные
// src и about:blank допустимы.
func ValidateURL(rawURL string) error {
	switch {
	case rawURL == "":
		return apperrors.NewInvalidURLError("URL cannot be empty")
	case len(rawURL) > MaxURLLength:
		return apperrors.NewInvalidURLError(fmt.Sprintf("URL is too long (max %d characters)", MaxURLLength))
	}
	return nil
}

func ValidateID(id int64) error {
	if id <= 0 {
		return apperrors.NewInvalidIDError(id)
	}
	return nil
}

// ValidateStatus допускает только 1 (активна) и 0 (неактивна)
func ValidateStatus(id int64, status model.ActiveStatus) error {
	if status != model.StatusActive && status != model.StatusInactive {
		return apperrors.NewInvalidStatusError(id, int(status))
	}
	return nil
}

// ValidateStatusUpdates отклоняет весь пакет, если хоть один статус не 0 и не 1.
// id здесь не проверяются: неизвестные пропускает хранилище.
func ValidateStatusUpdates(updates []model.StatusUpdate) error {
	for _, update := range updates {
		if err := ValidateStatus(update.ID, update.ActiveStatus); err != nil {
			return err
		}
	}
	return nil
}
