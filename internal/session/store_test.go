package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/drichardson-tmp/workout-tracker/internal/platform/requestctx"
)

type mapStorage struct {
	values map[string]string
	setErr error
	delErr error
}

func newMapStorage(seed map[string]string) *mapStorage {
	values := make(map[string]string, len(seed))
	for k, v := range seed {
		values[k] = v
	}
	return &mapStorage{values: values}
}

func (m *mapStorage) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *mapStorage) Set(_ context.Context, key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

func (m *mapStorage) Delete(_ context.Context, key string) error {
	if m.delErr != nil {
		return m.delErr
	}
	delete(m.values, key)
	return nil
}

func TestApplyTransitions(t *testing.T) {
	id := Apply(Anonymous(), LoginEvent{ID: 3, Name: "Sam"})
	require.Equal(t, StateAuthenticated, id.State())

	id = Apply(id, LoginEvent{ID: 9, Name: "Kim"})
	got, ok := id.ID()
	require.True(t, ok)
	require.EqualValues(t, 9, got)
	require.Equal(t, "Kim", id.Name())

	id = Apply(id, LogoutEvent{})
	require.Equal(t, StateAnonymous, id.State())
	require.Nil(t, id.UserID)
	require.Nil(t, id.UserName)

	require.Equal(t, Anonymous(), Apply(Anonymous(), LogoutEvent{}))
}

func TestApplyDoesNotAliasInput(t *testing.T) {
	cur := Authenticated(1, "Ada")
	next := Apply(cur, nil)
	*next.UserID = 2
	got, _ := cur.ID()
	require.EqualValues(t, 1, got)
}

func TestStoreLoginPersistsBothKeys(t *testing.T) {
	for _, tc := range []struct {
		id   int64
		name string
		text string
	}{
		{id: 3, name: "Sam", text: "3"},
		{id: 0, name: "Zero", text: "0"},
		{id: -12, name: "Neg", text: "-12"},
		{id: 9007199254740993, name: "Big", text: "9007199254740993"},
	} {
		storage := newMapStorage(nil)
		store, err := Open(context.Background(), storage)
		require.NoError(t, err)

		require.NoError(t, store.Login(context.Background(), tc.id, tc.name))

		got, ok := store.Read().ID()
		require.True(t, ok)
		require.Equal(t, tc.id, got)
		require.Equal(t, tc.name, store.Read().Name())
		require.Equal(t, tc.text, storage.values[KeyUserID])
		require.Equal(t, tc.name, storage.values[KeyUserName])
	}
}

func TestStoreLogoutClearsAndIsIdempotent(t *testing.T) {
	storage := newMapStorage(map[string]string{KeyUserID: "7", KeyUserName: "Alex", "theme": "dark"})
	store, err := Open(context.Background(), storage)
	require.NoError(t, err)
	require.True(t, store.Read().IsAuthenticated())

	require.NoError(t, store.Logout(context.Background()))
	first := *store.Read()
	snapshot := map[string]string{}
	for k, v := range storage.values {
		snapshot[k] = v
	}

	require.NoError(t, store.Logout(context.Background()))
	require.Equal(t, first, *store.Read())
	require.Equal(t, snapshot, storage.values)

	require.Nil(t, store.Read().UserID)
	require.Nil(t, store.Read().UserName)
	require.NotContains(t, storage.values, KeyUserID)
	require.NotContains(t, storage.values, KeyUserName)
	require.Equal(t, "dark", storage.values["theme"])
}

func TestStoreReadSharesHandle(t *testing.T) {
	store := NewStore(Anonymous())
	a := store.Read()
	b := store.Read()
	require.Same(t, a, b)

	require.NoError(t, store.Login(context.Background(), 5, "Lee"))
	require.True(t, a.IsAuthenticated())
	require.Equal(t, "Lee", b.Name())

	name := "Renamed"
	a.UserName = &name
	require.Equal(t, "Renamed", store.Read().Name())
}

func TestStoreReturnsStorageErrors(t *testing.T) {
	boom := errors.New("quota exceeded")
	storage := newMapStorage(nil)
	storage.setErr = boom
	store, err := Open(context.Background(), storage)
	require.NoError(t, err)

	err = store.Login(context.Background(), 4, "Max")
	require.ErrorIs(t, err, boom)
	require.True(t, store.Read().IsAuthenticated())

	storage.delErr = boom
	err = store.Logout(context.Background())
	require.ErrorIs(t, err, boom)
	require.False(t, store.Read().IsAuthenticated())
}

func TestStoreObserversRunInOrder(t *testing.T) {
	var seen []string
	store := NewStore(Anonymous(),
		ObserverFunc(func(_ context.Context, ev Event, next Identity) error {
			seen = append(seen, "first:"+EventName(ev)+":"+next.Name())
			return nil
		}),
	)
	store.Observe(ObserverFunc(func(_ context.Context, ev Event, _ Identity) error {
		seen = append(seen, "second:"+EventName(ev))
		return nil
	}))

	require.NoError(t, store.Login(context.Background(), 1, "Ann"))
	require.NoError(t, store.Logout(context.Background()))
	require.Equal(t, []string{"first:login:Ann", "second:login", "first:logout:", "second:logout"}, seen)
}

func TestDecodeRecord(t *testing.T) {
	str := func(s string) *string { return &s }

	id, err := DecodeRecord(Record{UserID: str("7"), UserName: str("Alex")})
	require.NoError(t, err)
	got, _ := id.ID()
	require.EqualValues(t, 7, got)
	require.Equal(t, "Alex", id.Name())

	id, err = DecodeRecord(Record{UserID: str(" 42 "), UserName: str("Pat")})
	require.NoError(t, err)
	got, _ = id.ID()
	require.EqualValues(t, 42, got)

	id, err = DecodeRecord(Record{})
	require.NoError(t, err)
	require.Equal(t, Anonymous(), id)

	id, err = DecodeRecord(Record{UserID: str(""), UserName: str("")})
	require.NoError(t, err)
	require.Equal(t, Anonymous(), id)

	for _, rec := range []Record{
		{UserID: str("abc"), UserName: str("Alex")},
		{UserID: str("7.5"), UserName: str("Alex")},
		{UserName: str("Alex")},
		{UserID: str("7")},
		{UserID: str("7"), UserName: str("")},
	} {
		id, err := DecodeRecord(rec)
		require.ErrorIs(t, err, ErrMalformedRecord)
		require.Nil(t, id.UserID)
		require.Nil(t, id.UserName)
	}
}

func TestEncodeRecordRoundTrip(t *testing.T) {
	rec := EncodeRecord(Authenticated(11, "Jo"))
	require.Equal(t, "11", *rec.UserID)
	require.Equal(t, "Jo", *rec.UserName)

	id, err := DecodeRecord(rec)
	require.NoError(t, err)
	require.Equal(t, Authenticated(11, "Jo"), id)

	require.Equal(t, Record{}, EncodeRecord(Anonymous()))
}

func TestRestoreMalformedRecordLogsAndIsAnonymous(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := requestctx.WithLogger(context.Background(), zap.New(core))

	storage := newMapStorage(map[string]string{KeyUserID: "not-a-number", KeyUserName: "Stale"})
	id, err := Restore(ctx, storage)
	require.NoError(t, err)
	require.Equal(t, Anonymous(), id)
	require.Equal(t, 1, logs.FilterMessage("discarding persisted session record").FilterLevelExact(zapcore.WarnLevel).Len())

	// The stale record stays in storage until the next logout or login.
	require.Equal(t, "Stale", storage.values[KeyUserName])
}

type failingStorage struct{ mapStorage }

func (failingStorage) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("backend unavailable")
}

func TestOpenPropagatesReadErrors(t *testing.T) {
	_, err := Open(context.Background(), &failingStorage{})
	require.Error(t, err)
	require.Contains(t, err.Error(), KeyUserID)
}
