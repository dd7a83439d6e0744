package driver

import "time"

type kvError string

func (e kvError) Error() string { return string(e) }

// ErrKeyNotFound returned by Get when the key holds no value
const ErrKeyNotFound = kvError("kv: key not found")

// KeyValueDB define a key-value storage interface
type KeyValueDB interface {
	SetEX(key string, value string, expiration time.Duration) error
	Get(key string) (string, error)
	Exists(key string) (bool, error)
	Del(key string) error
	Ping() error
}
