package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrDBNotReady = errors.New("database not initialized")
	ErrNotFound   = errors.New("record not found")
)

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
