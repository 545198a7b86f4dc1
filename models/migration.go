package models

import (
	"log"

	"bitbucket.org/mmdatafocus/retail_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&MoneyAccount{},
		&Supplier{},
		&Purchase{}, &PurchaseItem{},
		&AccountTransaction{},
		&IdempotencyKey{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
