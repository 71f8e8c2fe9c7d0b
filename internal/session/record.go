package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/drichardson-tmp/workout-tracker/internal/kv"
	"github.com/drichardson-tmp/workout-tracker/internal/platform/requestctx"
)

// Storage keys of the persisted session record.
const (
	KeyUserID   = "userId"
	KeyUserName = "userName"
)

// ErrMalformedRecord reports a persisted record that cannot be decoded into a
// complete identity.
var ErrMalformedRecord = errors.New("session: malformed persisted record")

// Record is the persisted text form of an Identity. A nil field means the key
// is absent from storage.
type Record struct {
	UserID   *string
	UserName *string
}

// EncodeRecord returns the text form of id.
func EncodeRecord(id Identity) Record {
	var rec Record
	if id.UserID != nil {
		v := strconv.FormatInt(*id.UserID, 10)
		rec.UserID = &v
	}
	if id.UserName != nil {
		v := *id.UserName
		rec.UserName = &v
	}
	return rec
}

// DecodeRecord validates both fields together. Empty values count as absent.
// A record with both keys absent decodes to Anonymous without error; a
// record with only one key, or an id that is not a base-10 integer, decodes to
// Anonymous with ErrMalformedRecord.
func DecodeRecord(rec Record) (Identity, error) {
	rawID := valueOf(rec.UserID)
	name := valueOf(rec.UserName)

	switch {
	case rawID == "" && name == "":
		return Anonymous(), nil
	case rawID == "":
		return Anonymous(), fmt.Errorf("%w: %s present without %s", ErrMalformedRecord, KeyUserName, KeyUserID)
	case name == "":
		return Anonymous(), fmt.Errorf("%w: %s present without %s", ErrMalformedRecord, KeyUserID, KeyUserName)
	}

	id, err := strconv.ParseInt(strings.TrimSpace(rawID), 10, 64)
	if err != nil {
		return Anonymous(), fmt.Errorf("%w: %s %q is not an integer", ErrMalformedRecord, KeyUserID, rawID)
	}
	return Authenticated(id, name), nil
}

// LoadRecord reads the persisted record from storage.
func LoadRecord(ctx context.Context, storage kv.Storage) (Record, error) {
	var rec Record
	if v, ok, err := storage.Get(ctx, KeyUserID); err != nil {
		return Record{}, fmt.Errorf("session: read %s: %w", KeyUserID, err)
	} else if ok {
		rec.UserID = &v
	}
	if v, ok, err := storage.Get(ctx, KeyUserName); err != nil {
		return Record{}, fmt.Errorf("session: read %s: %w", KeyUserName, err)
	} else if ok {
		rec.UserName = &v
	}
	return rec, nil
}

// Restore reconstructs the identity held in storage. A malformed record is
// logged and restored as Anonymous; only storage failures are returned.
func Restore(ctx context.Context, storage kv.Storage) (Identity, error) {
	rec, err := LoadRecord(ctx, storage)
	if err != nil {
		return Anonymous(), err
	}
	id, err := DecodeRecord(rec)
	if err != nil {
		requestctx.Logger(ctx).Warn("discarding persisted session record", zap.Error(err))
		return Anonymous(), nil
	}
	return id, nil
}

func valueOf(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
