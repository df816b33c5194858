// Package structure reshapes flat extracted-data rows into the
// Sector -> Company -> Year -> files browse tree served to the UI.
package structure

import (
	"sort"

	"github.com/google/uuid"
	"github.com/osa623/arxadmin/internal/storage"
)

type FileEntry struct {
	Type string    `json:"type"`
	ID   uuid.UUID `json:"id"`
}

type YearGroup struct {
	Year  string      `json:"year"`
	Files []FileEntry `json:"files"`
}

type CompanyGroup struct {
	Company string      `json:"company"`
	Years   []YearGroup `json:"years"`
}

type SectorGroup struct {
	Sector    string         `json:"sector"`
	Companies []CompanyGroup `json:"companies"`
}

// BuildTree groups rows by exact string equality on sector, company and
// year, in that order. Sectors are sorted ascending; company, year and
// file ordering is insertion order and callers must not rely on it.
func BuildTree(rows []storage.StructureRow) []SectorGroup {
	tree := make([]SectorGroup, 0)
	sectorIdx := map[string]int{}
	companyIdx := map[string]map[string]int{}
	yearIdx := map[string]map[string]map[string]int{}

	for _, row := range rows {
		si, ok := sectorIdx[row.Sector]
		if !ok {
			si = len(tree)
			sectorIdx[row.Sector] = si
			companyIdx[row.Sector] = map[string]int{}
			yearIdx[row.Sector] = map[string]map[string]int{}
			tree = append(tree, SectorGroup{Sector: row.Sector, Companies: []CompanyGroup{}})
		}

		ci, ok := companyIdx[row.Sector][row.Company]
		if !ok {
			ci = len(tree[si].Companies)
			companyIdx[row.Sector][row.Company] = ci
			yearIdx[row.Sector][row.Company] = map[string]int{}
			tree[si].Companies = append(tree[si].Companies, CompanyGroup{Company: row.Company, Years: []YearGroup{}})
		}

		yi, ok := yearIdx[row.Sector][row.Company][row.Year]
		if !ok {
			yi = len(tree[si].Companies[ci].Years)
			yearIdx[row.Sector][row.Company][row.Year] = yi
			tree[si].Companies[ci].Years = append(tree[si].Companies[ci].Years, YearGroup{Year: row.Year, Files: []FileEntry{}})
		}

		years := tree[si].Companies[ci].Years
		years[yi].Files = append(years[yi].Files, FileEntry{Type: row.Type, ID: row.ID})
	}

	sort.SliceStable(tree, func(i, j int) bool { return tree[i].Sector < tree[j].Sector })
	return tree
}
