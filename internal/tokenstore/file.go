package tokenstore

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	sealedFileName = "token.sealed"
	keyFileName    = "token.key"
	defaultDir     = "~/.local/share/shutter"
)

// FileStore seals the token with XChaCha20-Poly1305 and keeps the key in a
// sibling file. Both files are written 0600.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

// NewFileStore returns a FileStore rooted at dir, defaulting to
// ~/.local/share/shutter.
func NewFileStore(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		dir = defaultDir
	}
	resolved, err := expandPath(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve token dir: %w", err)
	}
	return &FileStore{dir: resolved}, nil
}

// Dir returns the directory holding the sealed token.
func (f *FileStore) Dir() string {
	return f.dir
}

func (f *FileStore) Get(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sealed, err := os.ReadFile(filepath.Join(f.dir, sealedFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("read sealed token: %w", err)
	}
	key, err := os.ReadFile(filepath.Join(f.dir, keyFileName))
	if err != nil {
		return "", fmt.Errorf("read token key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}
	if len(sealed) < aead.NonceSize() {
		return "", fmt.Errorf("sealed token is truncated")
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, []byte(Key))
	if err != nil {
		return "", fmt.Errorf("open sealed token: %w", err)
	}
	if len(plain) == 0 {
		return "", ErrNoToken
	}
	return string(plain), nil
}

func (f *FileStore) Set(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	sealedPath := filepath.Join(f.dir, sealedFileName)
	if token == "" {
		if err := os.Remove(sealedPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove sealed token: %w", err)
		}
		return nil
	}

	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	key, err := f.loadOrCreateKey()
	if err != nil {
		return err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return fmt.Errorf("init cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(token)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, []byte(token), []byte(Key))
	return writeFileAtomic(sealedPath, sealed)
}

func (f *FileStore) loadOrCreateKey() ([]byte, error) {
	path := filepath.Join(f.dir, keyFileName)
	key, err := os.ReadFile(path)
	if err == nil {
		if len(key) != chacha20poly1305.KeySize {
			return nil, fmt.Errorf("token key has length %d, want %d", len(key), chacha20poly1305.KeySize)
		}
		return key, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read token key: %w", err)
	}
	key = make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate token key: %w", err)
	}
	if err := writeFileAtomic(path, key); err != nil {
		return nil, err
	}
	return key, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
