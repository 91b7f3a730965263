package document

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/hospital-frontdesk/internal/model"
	"github.com/iliyamo/hospital-frontdesk/internal/repository"
)

// TemplateStore looks up persisted template mappings.
type TemplateStore interface {
	FindActive(ctx context.Context, module, documentType string) (*model.Template, error)
}

// URLSigner turns a blob object key into an openable URL.
type URLSigner interface {
	PresignGet(ctx context.Context, key string) (string, error)
}

// negative marks a cached "no template configured" answer.
const negative = "none"

// Resolver maps (module, document type) pairs to template assets.  An
// unmapped pair is a valid state and resolves to (nil, nil).
type Resolver struct {
	store  TemplateStore
	cache  *redis.Client
	ttl    time.Duration
	signer URLSigner
	log    zerolog.Logger
}

func NewResolver(store TemplateStore, logger zerolog.Logger) *Resolver {
	return &Resolver{store: store, log: logger.With().Str("component", "templates").Logger()}
}

// WithCache caches mapping rows in Redis for ttl.  A nil client disables
// caching.
func (r *Resolver) WithCache(rdb *redis.Client, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	r.cache, r.ttl = rdb, ttl
	return r
}

// WithSigner presigns object keys on every resolve.  Signed URLs expire, so
// only the mapping row is cached, never the URL.
func (r *Resolver) WithSigner(s URLSigner) *Resolver {
	r.signer = s
	return r
}

func cacheKey(module, documentType string) string {
	return "tpl:" + module + ":" + documentType
}

// Resolve returns the active template of the pair or (nil, nil) when none
// is configured.  Only storage and signing failures are errors.
func (r *Resolver) Resolve(ctx context.Context, module, documentType string) (*model.Template, error) {
	t, hit := r.fromCache(ctx, module, documentType)
	if !hit {
		var err error
		t, err = r.store.FindActive(ctx, module, documentType)
		if errors.Is(err, repository.ErrTemplateNotFound) {
			t, err = nil, nil
		}
		if err != nil {
			return nil, err
		}
		r.toCache(ctx, module, documentType, t)
	}
	if t == nil {
		return nil, nil
	}
	if t.ObjectKey != "" && r.signer != nil {
		url, err := r.signer.PresignGet(ctx, t.ObjectKey)
		if err != nil {
			return nil, err
		}
		t.URL = url
	}
	return t, nil
}

// Invalidate drops the cached mapping of the pair after it changed.
func (r *Resolver) Invalidate(ctx context.Context, module, documentType string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Del(ctx, cacheKey(module, documentType)).Err(); err != nil {
		r.log.Warn().Err(err).Str("module", module).Str("document_type", documentType).Msg("template cache invalidate")
	}
}

// fromCache reports hit=false on a miss or on any cache error so that the
// database stays the source of truth.
func (r *Resolver) fromCache(ctx context.Context, module, documentType string) (*model.Template, bool) {
	if r.cache == nil {
		return nil, false
	}
	bs, err := r.cache.Get(ctx, cacheKey(module, documentType)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn().Err(err).Msg("template cache read")
		}
		return nil, false
	}
	if string(bs) == negative {
		return nil, true
	}
	var t model.Template
	if err := json.Unmarshal(bs, &t); err != nil {
		return nil, false
	}
	return &t, true
}

func (r *Resolver) toCache(ctx context.Context, module, documentType string, t *model.Template) {
	if r.cache == nil {
		return
	}
	payload := []byte(negative)
	if t != nil {
		bs, err := json.Marshal(t)
		if err != nil {
			return
		}
		payload = bs
	}
	if err := r.cache.SetEx(ctx, cacheKey(module, documentType), payload, r.ttl).Err(); err != nil {
		r.log.Warn().Err(err).Msg("template cache write")
	}
}
