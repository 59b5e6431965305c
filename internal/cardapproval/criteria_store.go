package cardapproval

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"card-approval-workers/internal/common/errors"
	"card-approval-workers/internal/common/logger"
)

// CriteriaCacheKey holds the JSON-encoded tier table in Redis.
const CriteriaCacheKey = "card-approval:criteria:v1"

const criteriaQuery = `
	SELECT card_type, min_salary, max_salary, required_emp_cert
	FROM card_criteria
	ORDER BY position`

type CriteriaStoreOptions struct {
	// DB is the Postgres source. Nil means the fallback table is authoritative.
	DB *sql.DB
	// Cache is optional.
	Cache    redis.Cmdable
	CacheTTL time.Duration
	Fallback *Criteria
	Logger   logger.Logger
}

// CriteriaStore loads the tier table once at start-up: Redis cache first,
// then Postgres, otherwise the fallback table.
type CriteriaStore struct {
	db       *sql.DB
	cache    redis.Cmdable
	cacheTTL time.Duration
	fallback *Criteria
	logger   logger.Logger
}

func NewCriteriaStore(opts CriteriaStoreOptions) *CriteriaStore {
	fallback := opts.Fallback
	if fallback == nil {
		fallback = DefaultCriteria()
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &CriteriaStore{
		db:       opts.DB,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		fallback: fallback,
		logger:   log,
	}
}

func (s *CriteriaStore) Load(ctx context.Context) (*Criteria, error) {
	if s.db == nil {
		s.logger.Info("Using configured card criteria", map[string]interface{}{
			"tiers": s.fallback.Len(),
		})
		return s.fallback, nil
	}

	if criteria, ok := s.fromCache(ctx); ok {
		return criteria, nil
	}

	tiers, err := s.queryTiers(ctx)
	if err != nil {
		return nil, errors.NewCriteriaLoadFailedError(err)
	}
	if len(tiers) == 0 {
		return nil, errors.NewCriteriaInvalidError("card_criteria table is empty")
	}

	criteria, err := NewCriteria(tiers)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Loaded card criteria from postgres", map[string]interface{}{
		"tiers": criteria.Len(),
	})
	s.toCache(ctx, tiers)
	return criteria, nil
}

func (s *CriteriaStore) queryTiers(ctx context.Context) ([]CriterionTier, error) {
	rows, err := s.db.QueryContext(ctx, criteriaQuery)
	if err != nil {
		return nil, fmt.Errorf("query card_criteria: %w", err)
	}
	defer rows.Close()

	var tiers []CriterionTier
	for rows.Next() {
		var t CriterionTier
		if err := rows.Scan(&t.CardType, &t.MinSalary, &t.MaxSalary, &t.RequiredEmpCert); err != nil {
			return nil, fmt.Errorf("scan card_criteria: %w", err)
		}
		tiers = append(tiers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate card_criteria: %w", err)
	}
	return tiers, nil
}

// fromCache is best effort: any cache problem falls through to Postgres.
func (s *CriteriaStore) fromCache(ctx context.Context) (*Criteria, bool) {
	if s.cache == nil {
		return nil, false
	}

	data, err := s.cache.Get(ctx, CriteriaCacheKey).Bytes()
	if err != nil {
		if !stderrors.Is(err, redis.Nil) {
			s.logger.Warn("Criteria cache read failed", map[string]interface{}{"error": err.Error()})
		}
		return nil, false
	}

	var tiers []CriterionTier
	if err := json.Unmarshal(data, &tiers); err != nil {
		s.logger.Warn("Criteria cache entry is not valid JSON", map[string]interface{}{"error": err.Error()})
		return nil, false
	}

	criteria, err := NewCriteria(tiers)
	if err != nil {
		s.logger.Warn("Criteria cache entry is invalid", map[string]interface{}{"error": err.Error()})
		return nil, false
	}

	s.logger.Info("Loaded card criteria from cache", map[string]interface{}{"tiers": criteria.Len()})
	return criteria, true
}

func (s *CriteriaStore) toCache(ctx context.Context, tiers []CriterionTier) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(tiers)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, CriteriaCacheKey, data, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("Criteria cache write failed", map[string]interface{}{"error": err.Error()})
	}
}
