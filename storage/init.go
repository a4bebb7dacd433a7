package storage

import (
	"Mazraaty/storage/database"
	"Mazraaty/storage/mq"
	"Mazraaty/storage/redis"
)

func Init() error {
	if err := database.Init(); err != nil {
		return err
	}

	if err := redis.Init(); err != nil {
		return err
	}

	if err := mq.Init(); err != nil {
		return err
	}

	return nil
}
