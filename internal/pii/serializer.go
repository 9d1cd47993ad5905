package pii

import (
	"context"
	"fmt"
	"reflect"

	"gorm.io/gorm/schema"
)

// SerializerName is the tag value used on model fields: `gorm:"serializer:pii"`.
const SerializerName = "pii"

// Serializer encrypts string fields on write and decrypts them on read.
type Serializer struct {
	Cipher *Cipher
}

// Register installs the serializer in gorm's global registry.
func Register(c *Cipher) {
	schema.RegisterSerializer(SerializerName, Serializer{Cipher: c})
}

func (s Serializer) Scan(ctx context.Context, field *schema.Field, dst reflect.Value, dbValue interface{}) error {
	var stored string
	switch v := dbValue.(type) {
	case nil:
	case []byte:
		stored = string(v)
	case string:
		stored = v
	default:
		return fmt.Errorf("pii: unsupported column value %T", dbValue)
	}

	plain, err := s.Cipher.Decrypt(stored)
	if err != nil {
		return err
	}
	field.ReflectValueOf(ctx, dst).SetString(plain)
	return nil
}

func (s Serializer) Value(ctx context.Context, field *schema.Field, dst reflect.Value, fieldValue interface{}) (interface{}, error) {
	plain, ok := fieldValue.(string)
	if !ok {
		return nil, fmt.Errorf("pii: field %s is not a string", field.Name)
	}
	return s.Cipher.Encrypt(plain)
}
