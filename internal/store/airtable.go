package store

import (
	"context"
	"strings"

	"github.com/mehanizm/airtable"

	"github.com/kvsharma13/Invoice-extractor/internal/domain"
)

// DefaultTableName is used when no Airtable table is configured.
const DefaultTableName = "Invoices"

// AirtableConfig holds the Airtable connection settings.
type AirtableConfig struct {
	APIKey    string
	BaseID    string
	TableName string
	BaseURL   string // override for tests and proxies
}

// Airtable creates invoice rows in an Airtable table
type Airtable struct {
	table *airtable.Table
}

var _ domain.RecordStore = (*Airtable)(nil)

// NewAirtable builds an Airtable record store.
func NewAirtable(cfg AirtableConfig) (*Airtable, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, domain.ConfigError("airtable API key is required", nil)
	}
	if strings.TrimSpace(cfg.BaseID) == "" {
		return nil, domain.ConfigError("airtable base id is required", nil)
	}
	if cfg.TableName == "" {
		cfg.TableName = DefaultTableName
	}

	client := airtable.NewClient(cfg.APIKey)
	if cfg.BaseURL != "" {
		if err := client.SetBaseURL(cfg.BaseURL); err != nil {
			return nil, domain.ConfigError("invalid airtable base URL", err)
		}
	}

	return &Airtable{table: client.GetTable(cfg.BaseID, cfg.TableName)}, nil
}

// CreateRecord adds a single record and returns its Airtable id.
func (a *Airtable) CreateRecord(ctx context.Context, rec domain.PersistedRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", domain.PersistenceError("record write cancelled", err)
	}

	created, err := a.table.AddRecords(&airtable.Records{
		Records: []*airtable.Record{{Fields: rec.Fields}},
	})
	if err != nil {
		return "", domain.PersistenceError("airtable rejected the record", err)
	}
	if created == nil || len(created.Records) == 0 || created.Records[0] == nil {
		return "", domain.PersistenceError("airtable returned no record", nil)
	}

	return created.Records[0].ID, nil
}
