package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Blob containers of the platform.
const (
	ContainerItems = "items"
)

var ErrNotFound = errors.New("blob not found")

// BlobStore stores opaque objects grouped in named containers.
// Containers are provisioned on first use.
type BlobStore interface {
	Put(ctx context.Context, container, name, contentType string, data []byte) error
	Get(ctx context.Context, container, name string) ([]byte, error)
	// Delete removes one object. Missing objects are not an error.
	Delete(ctx context.Context, container, name string) error
	// DeleteByPrefix removes every object of the container whose name starts
	// with prefix and returns how many were removed.
	DeleteByPrefix(ctx context.Context, container, prefix string) (int, error)
}

// Error wraps failures of a blob operation with the object involved.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func containerPrefix(container string) (string, error) {
	if container == "" || strings.Contains(container, "/") {
		return "", fmt.Errorf("invalid container name %q", container)
	}
	return container + "/", nil
}

func objectKey(container, name string) (string, error) {
	prefix, err := containerPrefix(container)
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", errors.New("object name is empty")
	}
	return prefix + strings.TrimPrefix(name, "/"), nil
}
