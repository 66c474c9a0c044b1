package repository

import (
	"context"

	"github.com/Kosench/go-url-tracker/internal/model"
)

// RecordRepository - хранилище записей URL.
//
// Insert обязан соблюдать уникальность id и url и возвращать нарушения
// как apperrors.ErrIDConflict и apperrors.ErrURLAlreadyExists.
type RecordRepository interface {
	Insert(ctx context.Context, record *model.URLRecord) error
	GetByID(ctx context.Context, id int64) (*model.URLRecord, error)
	GetByURL(ctx context.Context, url string) (*model.URLRecord, error)
	ListIDs(ctx context.Context) ([]int64, error)
	ListAll(ctx context.Context) ([]model.URLRecord, error)
	Update(ctx context.Context, record *model.URLRecord) error
	Delete(ctx context.Context, id int64) error

	// BatchUpdateStatus меняет только active_status, неизвестные id пропускаются.
	// Возвращает число изменённых записей.
	BatchUpdateStatus(ctx context.Context, updates []model.StatusUpdate) (int64, error)

	// UpdateStatusIf - compare-and-set по active_status. Возвращает false,
	// если записи нет или её статус уже не равен expected.
	UpdateStatusIf(ctx context.Context, id int64, expected, status model.ActiveStatus) (bool, error)
}
