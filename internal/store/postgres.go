package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kvsharma13/Invoice-extractor/internal/domain"
)

// InvoiceRow is the relational projection of an invoice record. Absent fields
// stay NULL.
type InvoiceRow struct {
	ID              string    `gorm:"type:uuid;primaryKey"`
	InvoiceNumber   *string   `gorm:"index"`
	InvoiceDate     *string   `gorm:"size:10"`
	VendorName      *string
	VendorAddress   *string
	CustomerName    *string
	CustomerAddress *string
	Subtotal        *float64
	Tax             *float64
	TotalAmount     *float64
	Currency        *string `gorm:"size:8"`
	LineItems       string  `gorm:"not null;default:''"`
	SourceFileURL   *string
	Status          string `gorm:"not null"`
	CreatedAt       time.Time
}

// TableName overrides the gorm default.
func (InvoiceRow) TableName() string {
	return "invoice_records"
}

// Postgres creates invoice rows in a PostgreSQL table via gorm
type Postgres struct {
	db *gorm.DB
}

var _ domain.RecordStore = (*Postgres)(nil)

// NewPostgres connects to dsn and migrates the invoice table.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, domain.ConfigError("database URL is required", nil)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, domain.PersistenceError("failed to connect to database", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&InvoiceRow{}); err != nil {
		return nil, domain.PersistenceError("failed to migrate invoice table", err)
	}

	return &Postgres{db: db}, nil
}

// CreateRecord inserts one row and returns its uuid.
func (p *Postgres) CreateRecord(ctx context.Context, rec domain.PersistedRecord) (string, error) {
	row, err := rowFromRecord(rec)
	if err != nil {
		return "", domain.PersistenceError("record does not fit the invoice table", err)
	}
	row.ID = uuid.NewString()

	if err := p.db.WithContext(ctx).Create(row).Error; err != nil {
		return "", domain.PersistenceError("failed to insert invoice row", err)
	}
	return row.ID, nil
}

// Find loads a row by id.
func (p *Postgres) Find(ctx context.Context, id string) (*InvoiceRow, error) {
	var row InvoiceRow
	if err := p.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Close releases the underlying connection pool.
func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func rowFromRecord(rec domain.PersistedRecord) (*InvoiceRow, error) {
	row := &InvoiceRow{}
	var err error

	strCols := map[string]**string{
		ColInvoiceNumber:   &row.InvoiceNumber,
		ColInvoiceDate:     &row.InvoiceDate,
		ColVendorName:      &row.VendorName,
		ColVendorAddress:   &row.VendorAddress,
		ColCustomerName:    &row.CustomerName,
		ColCustomerAddress: &row.CustomerAddress,
		ColCurrency:        &row.Currency,
		ColSourceFileURL:   &row.SourceFileURL,
	}
	numCols := map[string]**float64{
		ColSubtotal:    &row.Subtotal,
		ColTax:         &row.Tax,
		ColTotalAmount: &row.TotalAmount,
	}

	for col, val := range rec.Fields {
		switch col {
		case ColLineItems:
			row.LineItems, err = asString(col, val)
		case ColStatus:
			row.Status, err = asString(col, val)
		default:
			if dst, ok := strCols[col]; ok {
				var s string
				s, err = asString(col, val)
				*dst = &s
			} else if dst, ok := numCols[col]; ok {
				f, isNum := val.(float64)
				if !isNum {
					err = fmt.Errorf("column %q: expected number, got %T", col, val)
				}
				*dst = &f
			} else {
				err = fmt.Errorf("unknown column %q", col)
			}
		}
		if err != nil {
			return nil, err
		}
	}
	return row, nil
}

func asString(col string, val any) (string, error) {
	s, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("column %q: expected string, got %T", col, val)
	}
	return s, nil
}
