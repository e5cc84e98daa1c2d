package store

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type columnKind int

const (
	kindText columnKind = iota
	kindDecimal
	kindBool
	kindTime
	kindTextArray
)

type column struct {
	name string
	kind columnKind
}

// collectionSchema lists the data columns of a collection. The id and
// updated_at columns exist on every collection and are handled separately.
type collectionSchema struct {
	columns []column
}

var schemas = map[string]collectionSchema{
	CollectionProfiles: {columns: []column{
		{"name", kindText},
		{"username", kindText},
		{"email", kindText},
		{"phone_number", kindText},
		{"country", kindText},
		{"currency", kindText},
		{"total_balance", kindDecimal},
		{"available_balance", kindDecimal},
		{"profit_balance", kindDecimal},
		{"bonus_balance", kindDecimal},
		{"pending_withdrawal", kindDecimal},
		{"account_type", kindText},
		{"account_status", kindText},
		{"email_verified", kindBool},
		{"kyc_status", kindText},
		{"level", kindText},
		{"referral_list", kindTextArray},
	}},
	CollectionDeposits: {columns: []column{
		{"user_id", kindText},
		{"method", kindText},
		{"type", kindText},
		{"amount", kindDecimal},
		{"status", kindText},
		{"receipt_url", kindText},
		{"created_at", kindTime},
	}},
	CollectionVerifications: {columns: []column{
		{"user_id", kindText},
		{"document_urls", kindTextArray},
		{"created_at", kindTime},
	}},
}

func schemaFor(collection string) (collectionSchema, error) {
	sch, ok := schemas[collection]
	if !ok {
		return collectionSchema{}, fmt.Errorf("unknown collection %q", collection)
	}
	return sch, nil
}

// selectColumns returns the select list: id, updated_at, then every data
// column. Numeric columns are cast to text and parsed into decimals on scan.
func (s collectionSchema) selectColumns() []string {
	cols := make([]string, 0, len(s.columns)+2)
	cols = append(cols, "id", "updated_at")
	for _, col := range s.columns {
		if col.kind == kindDecimal {
			cols = append(cols, col.name+"::text")
			continue
		}
		cols = append(cols, col.name)
	}
	return cols
}

// scanRecord reads one row produced by selectColumns into a Record.
func (s collectionSchema) scanRecord(row pgx.Row) (*Record, error) {
	var (
		id      string
		version time.Time
	)

	holders := make([]any, len(s.columns))
	dests := make([]any, 0, len(s.columns)+2)
	dests = append(dests, &id, &version)

	for i, col := range s.columns {
		switch col.kind {
		case kindDecimal, kindText:
			holders[i] = new(string)
		case kindBool:
			holders[i] = new(bool)
		case kindTime:
			holders[i] = new(time.Time)
		case kindTextArray:
			holders[i] = new([]string)
		}
		dests = append(dests, holders[i])
	}

	if err := row.Scan(dests...); err != nil {
		return nil, err
	}

	fields := make(map[string]any, len(s.columns))
	for i, col := range s.columns {
		switch col.kind {
		case kindText:
			fields[col.name] = *holders[i].(*string)
		case kindDecimal:
			d, err := decimal.NewFromString(*holders[i].(*string))
			if err != nil {
				return nil, fmt.Errorf("invalid decimal in column %s: %w", col.name, err)
			}
			fields[col.name] = d
		case kindBool:
			fields[col.name] = *holders[i].(*bool)
		case kindTime:
			fields[col.name] = *holders[i].(*time.Time)
		case kindTextArray:
			fields[col.name] = *holders[i].(*[]string)
		}
	}

	return &Record{ID: id, Version: version, Fields: fields}, nil
}

// encodeFields prepares payload values for the driver. Decimals travel as
// their text representation so the numeric column parses them exactly.
func encodeFields(fields map[string]any) map[string]any {
	encoded := make(map[string]any, len(fields))
	for k, v := range fields {
		if d, ok := v.(decimal.Decimal); ok {
			encoded[k] = d.String()
			continue
		}
		encoded[k] = v
	}
	return encoded
}
