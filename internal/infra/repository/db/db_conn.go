package db

import (
	"fmt"

	"github.com/RoyceAzure/lab/cartengine/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func GetDbConn(dbname, host, port, user, pas string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("user=%s password=%s host=%s port=%s dbname=%s sslmode=disable", user, pas, host, port, dbname)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// GetDbConnFromConfig connects using the process configuration.
func GetDbConnFromConfig() (*gorm.DB, error) {
	cf := config.GetConfig()
	return GetDbConn(cf.DBName, cf.DBHost, cf.DBPort, cf.DBUser, cf.DBPassword)
}
