package db

import (
	"context"

	"github.com/RoyceAzure/lab/cartengine/internal/infra/repository"
	"gorm.io/gorm"
)

// UnifiedDBStore is the gorm-backed repository.UnifiedStore. Transaction
// yields a store bound to the gorm transaction, so every repo call inside
// fn shares one unit of work; nested repo transactions become savepoints.
type UnifiedDBStore struct {
	db    *gorm.DB
	dbDao *DbDao
	*ProductDBRepo
	*CartDBRepo
}

var _ repository.UnifiedStore = (*UnifiedDBStore)(nil)

func NewUnifiedDBStore(conn *gorm.DB) *UnifiedDBStore {
	dbDao := NewDbDao(conn)
	return &UnifiedDBStore{
		db:            conn,
		dbDao:         dbDao,
		ProductDBRepo: NewProductDBRepo(dbDao),
		CartDBRepo:    NewCartDBRepo(dbDao),
	}
}

func (u *UnifiedDBStore) InitMigrate() error {
	return u.dbDao.InitMigrate()
}

func (u *UnifiedDBStore) GetDB() *gorm.DB {
	return u.db
}

func (u *UnifiedDBStore) Transaction(ctx context.Context, fn func(tx repository.UnifiedStore) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewUnifiedDBStore(tx))
	})
}
