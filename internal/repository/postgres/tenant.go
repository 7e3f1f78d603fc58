package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/relaygate/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// TenantStore is the Postgres-backed credential store.
type TenantStore struct {
	pool *pgxpool.Pool
}

func NewTenantStore(pool *pgxpool.Pool) *TenantStore {
	return &TenantStore{pool: pool}
}

// Upsert inserts a tenant or refreshes its name, key hash and config, keyed
// by the external tenant id. The registry loader calls this for every record
// on every boot, so it has to be idempotent.
func (s *TenantStore) Upsert(ctx context.Context, tenantID, name, apiKeyHash string, config models.TenantConfig) (*models.Tenant, error) {
	configJSON, err := json.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("marshal tenant config: %w", err)
	}

	query := `
		INSERT INTO tenants (tenant_id, name, api_key_hash, config, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (tenant_id) DO UPDATE
		SET name = EXCLUDED.name,
		    api_key_hash = EXCLUDED.api_key_hash,
		    config = EXCLUDED.config
		RETURNING id, tenant_id, name, api_key_hash, config, created_at`

	return s.scanTenant(s.pool.QueryRow(ctx, query, tenantID, name, apiKeyHash, configJSON))
}

// GetByTenantID returns nil, nil when the tenant does not exist.
func (s *TenantStore) GetByTenantID(ctx context.Context, tenantID string) (*models.Tenant, error) {
	query := `
		SELECT id, tenant_id, name, api_key_hash, config, created_at
		FROM tenants
		WHERE tenant_id = $1`

	t, err := s.scanTenant(s.pool.QueryRow(ctx, query, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

// VerifyAPIKey checks candidate against the tenant's bcrypt hash. An unknown
// tenant returns plain false — indistinguishable from a wrong key, so the
// endpoint can't be used to enumerate tenant ids. Only a store failure is an
// error.
func (s *TenantStore) VerifyAPIKey(ctx context.Context, tenantID, candidate string) (bool, error) {
	tenant, err := s.GetByTenantID(ctx, tenantID)
	if err != nil {
		return false, err
	}
	if tenant == nil {
		return false, nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(tenant.APIKeyHash), []byte(candidate)); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *TenantStore) scanTenant(row pgx.Row) (*models.Tenant, error) {
	var t models.Tenant
	var configJSON []byte
	err := row.Scan(
		&t.ID,
		&t.TenantID,
		&t.Name,
		&t.APIKeyHash,
		&configJSON,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan tenant: %w", err)
	}
	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &t.Config); err != nil {
			return nil, fmt.Errorf("decode tenant config: %w", err)
		}
	}
	return &t, nil
}
