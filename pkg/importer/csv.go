// Package importer converts bulk CSV uploads into stored leads.
package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/propdesk/leadadmin/pkg/logger"
	"github.com/propdesk/leadadmin/pkg/models"
	"github.com/propdesk/leadadmin/pkg/phone"
	"github.com/propdesk/leadadmin/pkg/store"
)

// ErrNoValidLeads is returned when the file yields zero accepted rows.
var ErrNoValidLeads = errors.New("no valid leads in file")

// headerAliases maps normalized header names to canonical field names.
var headerAliases = map[string]string{
	"full_name":    "name",
	"email_id":     "email",
	"phone_number": "phone",
	"mobile":       "phone",
	"pin_code":     "pincode",
}

// ToSnakeCase normalizes a CSV header cell: lowercase, camel-case
// boundaries split, word separators collapsed to single underscores.
func ToSnakeCase(s string) string {
	var b strings.Builder
	prevUnderscore := true
	for i, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			if i > 0 && !prevUnderscore {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
			prevUnderscore = false
		case r == ' ' || r == '-' || r == '_' || r == '\t':
			if !prevUnderscore {
				b.WriteByte('_')
			}
			prevUnderscore = true
		default:
			b.WriteRune(r)
			prevUnderscore = false
		}
	}
	return strings.Trim(b.String(), "_")
}

// Result summarizes one parsed file.
type Result struct {
	Accepted int `json:"accepted"`
	Dropped  int `json:"dropped"`
}

// Parser turns raw CSV text into lead records. Lines are split on bare
// commas with no quoting support, so embedded commas corrupt a row; the
// corrupted row is then dropped by the column-count check.
type Parser struct {
	log logger.Logger
}

// NewParser creates a Parser.
func NewParser(log logger.Logger) *Parser {
	return &Parser{log: log}
}

// Parse converts CSV text into lead records. The first line is the
// header. A row is dropped, never fatal, when its column count differs
// from the header or it lacks a non-empty name or email. Creation
// timestamps are system-assigned per row and lead_color is forced to the
// default, overriding any such column in the source.
func (p *Parser) Parse(text string) ([]*models.Lead, *Result) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	var header []string
	rows := make([]*models.Lead, 0)
	result := &Result{}
	now := time.Now().UTC()

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if header == nil {
			header = make([]string, 0)
			for _, cell := range strings.Split(line, ",") {
				name := ToSnakeCase(strings.TrimSpace(cell))
				if alias, ok := headerAliases[name]; ok {
					name = alias
				}
				header = append(header, name)
			}
			continue
		}

		cells := strings.Split(line, ",")
		if len(cells) != len(header) {
			result.Dropped++
			continue
		}

		record := make(map[string]string, len(header))
		for i, cell := range cells {
			record[header[i]] = strings.TrimSpace(cell)
		}
		if record["name"] == "" || record["email"] == "" {
			result.Dropped++
			continue
		}

		// Iterator-stamped timestamps keep the upload order stable
		// under the newest-first listing sort.
		lead := &models.Lead{
			ID:             uuid.NewString(),
			Name:           record["name"],
			Email:          record["email"],
			Phone:          phone.Normalize(record["phone"]),
			Pincode:        record["pincode"],
			DateTime:       now.Add(time.Duration(result.Accepted) * time.Millisecond),
			AssignedTo:     []string{},
			Status:         record["status"],
			Notes:          []string{},
			LeadColor:      models.ColorWhite,
			PurchaseAmount: record["purchase_amount"],
			UpdatedAt:      now,
		}
		if record["assigned_to"] != "" {
			lead.AssignedTo = []string{record["assigned_to"]}
		}
		if record["notes"] != "" {
			lead.Notes = []string{record["notes"]}
		}
		rows = append(rows, lead)
		result.Accepted++
	}

	return rows, result
}

// Importer parses and commits bulk uploads atomically.
type Importer struct {
	parser *Parser
	store  store.LeadStore
	log    logger.Logger
}

// New creates an Importer.
func New(st store.LeadStore, log logger.Logger) *Importer {
	return &Importer{parser: NewParser(log), store: st, log: log}
}

// Import parses the CSV text and writes every accepted record in one
// atomic batch. Either all accepted leads are committed or none are;
// files yielding more than store.MaxBatch accepted rows are rejected.
func (i *Importer) Import(ctx context.Context, text string) (*Result, error) {
	leads, result := i.parser.Parse(text)
	if len(leads) == 0 {
		return nil, ErrNoValidLeads
	}
	if err := i.store.BatchPut(ctx, leads); err != nil {
		return nil, fmt.Errorf("importing %d leads: %w", len(leads), err)
	}
	i.log.Info("imported leads", "accepted", result.Accepted, "dropped", result.Dropped)
	return result, nil
}
