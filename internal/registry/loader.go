// Package registry loads the tenant registry into the credential store
// during the startup phase, before the server accepts traffic. Two source
// formats are supported: a CSV table and a JSON document, mirroring the two
// ways tenant fleets get exported to us.
package registry

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/lalith-99/relaygate/internal/models"
	"github.com/lalith-99/relaygate/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Record is one tenant row from either source format, before hashing.
type Record struct {
	TenantID string
	Name     string
	APIKey   string
	Config   string
}

// Loader upserts registry records into the credential store. Keys are
// bcrypt-hashed at load time; the plaintext never reaches storage.
//
// FailFast chooses the partial-failure policy: false (the default) skips and
// logs a malformed record, true aborts the whole load. This is deliberately
// a configuration decision, not a constant.
type Loader struct {
	tenants  repository.TenantRepository
	failFast bool
	logger   *zap.Logger
}

func NewLoader(tenants repository.TenantRepository, failFast bool, logger *zap.Logger) *Loader {
	return &Loader{tenants: tenants, failFast: failFast, logger: logger}
}

// Load reads the registry file at path, dispatching on its extension.
// Returns the number of tenants upserted.
func (l *Loader) Load(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open tenant registry: %w", err)
	}
	defer f.Close()

	var records []Record
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		records, err = parseCSV(f)
	case ".json":
		records, err = parseJSON(f)
	default:
		return 0, fmt.Errorf("tenant registry %s: unsupported format %q", path, ext)
	}
	if err != nil {
		return 0, fmt.Errorf("parse tenant registry: %w", err)
	}

	loaded := 0
	for _, rec := range records {
		if err := l.upsert(ctx, rec); err != nil {
			if l.failFast {
				return loaded, fmt.Errorf("tenant %q: %w", rec.TenantID, err)
			}
			l.logger.Warn("skipping tenant record",
				zap.String("tenant_id", rec.TenantID),
				zap.Error(err),
			)
			continue
		}
		loaded++
	}

	l.logger.Info("tenant registry loaded",
		zap.String("path", path),
		zap.Int("loaded", loaded),
		zap.Int("skipped", len(records)-loaded),
	)
	return loaded, nil
}

func (l *Loader) upsert(ctx context.Context, rec Record) error {
	if rec.TenantID == "" || rec.Name == "" || rec.APIKey == "" {
		return errors.New("tenant_id, name and api_key are required")
	}

	config, err := models.ParseTenantConfig(rec.Config)
	if err != nil {
		return fmt.Errorf("invalid config blob: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(rec.APIKey), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash api key: %w", err)
	}

	if _, err := l.tenants.Upsert(ctx, rec.TenantID, rec.Name, string(hash), config); err != nil {
		return fmt.Errorf("upsert tenant: %w", err)
	}
	return nil
}

// parseCSV expects a header row naming at least tenant_id, name and api_key;
// a config column is optional. Column order doesn't matter.
func parseCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"tenant_id", "name", "api_key"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("csv header missing column %q", required)
		}
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []Record
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		records = append(records, Record{
			TenantID: field(row, "tenant_id"),
			Name:     field(row, "name"),
			APIKey:   field(row, "api_key"),
			Config:   field(row, "config"),
		})
	}
	return records, nil
}

// registryDocument is the JSON source shape: {"tenants": [{...}, ...]}.
type registryDocument struct {
	Tenants []struct {
		ID       string          `json:"id"`
		Name     string          `json:"name"`
		APIKey   string          `json:"api_key"`
		Settings json.RawMessage `json:"settings"`
	} `json:"tenants"`
}

func parseJSON(r io.Reader) ([]Record, error) {
	var doc registryDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode json registry: %w", err)
	}

	records := make([]Record, 0, len(doc.Tenants))
	for _, t := range doc.Tenants {
		records = append(records, Record{
			TenantID: t.ID,
			Name:     t.Name,
			APIKey:   t.APIKey,
			Config:   string(t.Settings),
		})
	}
	return records, nil
}
