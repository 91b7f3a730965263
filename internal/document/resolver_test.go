package document

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hospital-frontdesk/internal/model"
	"github.com/iliyamo/hospital-frontdesk/internal/repository"
)

type countingStore struct {
	templates map[string]*model.Template
	calls     int
	err       error
}

func (s *countingStore) FindActive(_ context.Context, module, documentType string) (*model.Template, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	t, ok := s.templates[module+"/"+documentType]
	if !ok {
		return nil, repository.ErrTemplateNotFound
	}
	cp := *t
	return &cp, nil
}

type stubSigner struct{ calls int }

func (s *stubSigner) PresignGet(_ context.Context, key string) (string, error) {
	s.calls++
	return "https://signed.example/" + key, nil
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestResolve_UnmappedIsNotAnError(t *testing.T) {
	r := NewResolver(&countingStore{}, zerolog.Nop())
	tpl, err := r.Resolve(context.Background(), "admission", "receipt")
	require.NoError(t, err)
	assert.Nil(t, tpl)
}

func TestResolve_StorageErrorSurfaces(t *testing.T) {
	boom := errors.New("connection refused")
	r := NewResolver(&countingStore{err: boom}, zerolog.Nop())
	_, err := r.Resolve(context.Background(), "admission", "receipt")
	assert.ErrorIs(t, err, boom)
}

func TestResolve_CachesRowsAndNegatives(t *testing.T) {
	mr, rdb := newRedis(t)
	store := &countingStore{templates: map[string]*model.Template{
		"admission/admission_form": {ID: 1, Module: "admission", DocumentType: "admission_form", Name: "IPD", URL: "https://files.example/ipd.pdf"},
	}}
	r := NewResolver(store, zerolog.Nop()).WithCache(rdb, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		tpl, err := r.Resolve(ctx, "admission", "admission_form")
		require.NoError(t, err)
		require.NotNil(t, tpl)
		assert.Equal(t, "IPD", tpl.Name)
	}
	assert.Equal(t, 1, store.calls)
	assert.True(t, mr.Exists("tpl:admission:admission_form"))

	for i := 0; i < 2; i++ {
		tpl, err := r.Resolve(ctx, "admission", "receipt")
		require.NoError(t, err)
		assert.Nil(t, tpl)
	}
	assert.Equal(t, 2, store.calls)

	r.Invalidate(ctx, "admission", "receipt")
	_, err := r.Resolve(ctx, "admission", "receipt")
	require.NoError(t, err)
	assert.Equal(t, 3, store.calls)
}

func TestResolve_CacheOutageFallsThrough(t *testing.T) {
	mr, rdb := newRedis(t)
	store := &countingStore{templates: map[string]*model.Template{
		"admission/receipt": {ID: 2, Module: "admission", DocumentType: "receipt", Name: "Receipt"},
	}}
	r := NewResolver(store, zerolog.Nop()).WithCache(rdb, time.Minute)
	mr.Close()

	tpl, err := r.Resolve(context.Background(), "admission", "receipt")
	require.NoError(t, err)
	require.NotNil(t, tpl)
	assert.Equal(t, "Receipt", tpl.Name)
}

func TestResolve_PresignsObjectKeysEveryTime(t *testing.T) {
	_, rdb := newRedis(t)
	store := &countingStore{templates: map[string]*model.Template{
		"admission/consent_form": {ID: 3, Module: "admission", DocumentType: "consent_form", Name: "Consent", ObjectKey: "forms/consent.pdf"},
	}}
	signer := &stubSigner{}
	r := NewResolver(store, zerolog.Nop()).WithCache(rdb, time.Minute).WithSigner(signer)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		tpl, err := r.Resolve(ctx, "admission", "consent_form")
		require.NoError(t, err)
		assert.Equal(t, "https://signed.example/forms/consent.pdf", tpl.URL)
	}
	assert.Equal(t, 1, store.calls)
	assert.Equal(t, 2, signer.calls)
}
