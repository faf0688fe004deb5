package store

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrNotFound = errors.New("not found")
)

type Store[T any] interface {
	Get(key string) (T, error)
	Set(key string, val T, expiresIn time.Duration) error
	Delete(key string) error
	// Take returns the value and removes it, so it can be observed only once.
	Take(key string) (T, error)
}

// Backend is a fiber.Storage that can also read and delete a key atomically.
type Backend interface {
	fiber.Storage
	Take(key string) ([]byte, error)
}
