// Package credentials wraps the OS keyring for the small set of
// secrets the shell owns: the stored auth session and app-level keys.
package credentials

import (
	"errors"

	"github.com/zalando/go-keyring"
)

const (
	serviceName = "stride"
	sessionKey  = "auth:session"
)

var ErrNotFound = errors.New("credentials: not found")

// StoreSession persists the serialized auth session.
func StoreSession(data string) error {
	return keyring.Set(serviceName, sessionKey, data)
}

// LoadSession returns the serialized auth session.
func LoadSession() (string, error) {
	raw, err := keyring.Get(serviceName, sessionKey)
	if err != nil {
		return "", ErrNotFound
	}
	return raw, nil
}

// DeleteSession removes the stored session. Missing entries are fine.
func DeleteSession() {
	_ = keyring.Delete(serviceName, sessionKey)
}

func StoreAppSecret(key string, value string) error {
	return keyring.Set(serviceName, "app:"+key, value)
}

func LoadAppSecret(key string) (string, error) {
	val, err := keyring.Get(serviceName, "app:"+key)
	if err != nil {
		return "", ErrNotFound
	}
	return val, nil
}

func DeleteAppSecret(key string) {
	_ = keyring.Delete(serviceName, "app:"+key)
}
