package main

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
)

type seedRecord struct {
	sector  string
	company string
	year    string
	kind    string
	data    map[string]any
	pdfID   *string
}

func seedRecords(ctx context.Context, pool *pgxpool.Pool) error {
	pdf := "pdf-ndb-2024"
	records := []seedRecord{
		{
			sector: "Banking", company: "NDB", year: "2024", kind: "investor_relations",
			data:  map[string]any{"highlights": []string{"deposit growth 12%", "cost-to-income 48%"}},
			pdfID: &pdf,
		},
		{
			sector: "Banking", company: "NDB", year: "2024", kind: "financial_statements",
			data: map[string]any{"revenue": 182_000_000, "currency": "LKR"},
		},
		{
			sector: "Banking", company: "Sampath", year: "2023", kind: "subsidiary_chart",
			data: map[string]any{"subsidiaries": []string{"Sampath Centre", "SC Securities"}},
		},
		{
			sector: "Energy", company: "Laugfs", year: "2024", kind: "other",
			data: map[string]any{"notes": "segment data pending"},
		},
	}

	for _, rec := range records {
		payload, err := json.Marshal(rec.data)
		if err != nil {
			return err
		}
		_, err = pool.Exec(ctx, `
			INSERT INTO extracted_records (sector, company, year, type, data, pdf_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, now(), now())
			ON CONFLICT (sector, company, year, type) DO UPDATE
			SET data = EXCLUDED.data, pdf_id = EXCLUDED.pdf_id, updated_at = now()
		`, rec.sector, rec.company, rec.year, rec.kind, payload, rec.pdfID)
		if err != nil {
			return err
		}
	}
	return nil
}
