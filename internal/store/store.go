package store

import (
	"encoding/json"
	"time"
)

type store[T any] struct {
	storage Backend
	prefix  string
}

func (s *store[T]) Get(key string) (T, error) {
	var obj T
	blob, err := s.storage.Get(s.prefix + key)
	if err != nil {
		return obj, err
	}
	if len(blob) == 0 {
		return obj, ErrNotFound
	}
	err = json.Unmarshal(blob, &obj)
	return obj, err
}

func (s *store[T]) Set(key string, val T, expiresIn time.Duration) error {
	blob, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return s.storage.Set(s.prefix+key, blob, expiresIn)
}

func (s *store[T]) Delete(key string) error {
	return s.storage.Delete(s.prefix + key)
}

func (s *store[T]) Take(key string) (T, error) {
	var obj T
	blob, err := s.storage.Take(s.prefix + key)
	if err != nil {
		return obj, err
	}
	if len(blob) == 0 {
		return obj, ErrNotFound
	}
	err = json.Unmarshal(blob, &obj)
	return obj, err
}

func New[T any](storage Backend, keyPrefix string) Store[T] {
	return &store[T]{
		storage: storage,
		prefix:  keyPrefix,
	}
}
