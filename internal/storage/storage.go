// Package storage defines the object store gateway used for order files.
// The MinIO implementation works with any S3-compatible provider (AWS S3, MinIO).
package storage

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// KeyPrefix namespaces every order file inside the bucket.
const KeyPrefix = "orders/"

// ErrForeignLocator is returned when a locator was not issued by this gateway.
var ErrForeignLocator = errors.New("locator does not belong to this store")

// Gateway stores file payloads and mints signed retrieval links for them.
type Gateway interface {
	// Put stores data and returns a stable locator for the new object.
	Put(ctx context.Context, filename, contentType string, data []byte) (string, error)
	// SignedGet returns a URL that grants read access to the object for ttl.
	SignedGet(ctx context.Context, locator string, ttl time.Duration) (string, error)
}

// ObjectKey builds a collision-free key for an uploaded file:
// "orders/<uuid>-<filename>".
func ObjectKey(filename string) string {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), `\`, "/"))
	if name == "." || name == "/" || name == "" {
		name = "file"
	}
	return KeyPrefix + uuid.NewString() + "-" + name
}

// Locator joins the public base and key into the raw object URL.
func Locator(publicBase, key string) string {
	return strings.TrimRight(publicBase, "/") + "/" + key
}

// KeyFromLocator recovers the object key from a locator produced by Locator.
func KeyFromLocator(publicBase, locator string) (string, error) {
	prefix := strings.TrimRight(publicBase, "/") + "/"
	key, ok := strings.CutPrefix(locator, prefix)
	if !ok || key == "" {
		return "", ErrForeignLocator
	}
	return key, nil
}
