// Package crypt provides the at-rest codec for personal profile fields.
//
// Values are sealed with XChaCha20-Poly1305 and stored as "enc:v1:<base64>".
// Rows written before a key was configured are returned unchanged on read.
package crypt

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync/atomic"

	"golang.org/x/crypto/chacha20poly1305"
	"gorm.io/gorm/schema"
)

const (
	SerializerName = "fieldcrypt"
	prefix         = "enc:v1:"
)

var ErrNoKey = errors.New("fieldcrypt: value is encrypted but no key is configured")

type FieldCipher struct {
	aead cipher.AEAD
}

var active atomic.Pointer[FieldCipher]

func init() {
	active.Store(&FieldCipher{})
	schema.RegisterSerializer(SerializerName, Serializer{})
}

// NewFieldCipher derives a 256-bit key from secret. An empty secret yields a
// pass-through cipher.
func NewFieldCipher(secret string) (*FieldCipher, error) {
	if secret == "" {
		return &FieldCipher{}, nil
	}
	key := sha256.Sum256([]byte(secret))
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, fmt.Errorf("fieldcrypt: init cipher: %w", err)
	}
	return &FieldCipher{aead: aead}, nil
}

// Register makes secret the key used by every model field tagged serializer:fieldcrypt.
func Register(secret string) error {
	c, err := NewFieldCipher(secret)
	if err != nil {
		return err
	}
	active.Store(c)
	return nil
}

func (c *FieldCipher) Enabled() bool { return c.aead != nil }

func (c *FieldCipher) Encrypt(plain string) (string, error) {
	if c.aead == nil || plain == "" {
		return plain, nil
	}
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plain)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("fieldcrypt: nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plain), nil)
	return prefix + base64.RawStdEncoding.EncodeToString(sealed), nil
}

func (c *FieldCipher) Decrypt(stored string) (string, error) {
	if !strings.HasPrefix(stored, prefix) {
		return stored, nil
	}
	if c.aead == nil {
		return "", ErrNoKey
	}
	raw, err := base64.RawStdEncoding.DecodeString(strings.TrimPrefix(stored, prefix))
	if err != nil {
		return "", fmt.Errorf("fieldcrypt: decode: %w", err)
	}
	ns := c.aead.NonceSize()
	if len(raw) < ns {
		return "", errors.New("fieldcrypt: ciphertext too short")
	}
	plain, err := c.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("fieldcrypt: open: %w", err)
	}
	return string(plain), nil
}

// Serializer is the gorm adapter. gorm instantiates serializers per scan, so the
// key lives in package state rather than on the value.
type Serializer struct{}

func (Serializer) Scan(ctx context.Context, field *schema.Field, dst reflect.Value, dbValue any) error {
	var raw string
	switch v := dbValue.(type) {
	case nil:
	case []byte:
		raw = string(v)
	case string:
		raw = v
	default:
		return fmt.Errorf("fieldcrypt: unsupported column value %T", dbValue)
	}

	plain, err := active.Load().Decrypt(raw)
	if err != nil {
		return err
	}
	field.ReflectValueOf(ctx, dst).SetString(plain)
	return nil
}

func (Serializer) Value(ctx context.Context, field *schema.Field, dst reflect.Value, fieldValue any) (any, error) {
	s, ok := fieldValue.(string)
	if !ok {
		return nil, fmt.Errorf("fieldcrypt: field %s is %T, want string", field.Name, fieldValue)
	}
	return active.Load().Encrypt(s)
}
