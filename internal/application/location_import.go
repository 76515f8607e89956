package application

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	transferDomain "github.com/caribe-transfers/service-transfer/internal/domain/transfer"
	"github.com/caribe-transfers/service-transfer/internal/platform/domain"
)

// ImportFailure describes one CSV row that was not imported. Row numbers
// count the header as row 1.
type ImportFailure struct {
	Row    int    `json:"row"`
	Slug   string `json:"slug,omitempty"`
	Reason string `json:"reason"`
}

// ImportResult summarizes a location import.
type ImportResult struct {
	CreatedCount int             `json:"createdCount"`
	UpdatedCount int             `json:"updatedCount"`
	Failures     []ImportFailure `json:"failures"`
}

type importColumns struct {
	name, slug, locType, zoneSlug, description, address int
}

func (c importColumns) cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// ImportLocations upserts locations from CSV. The header must name the
// columns name, slug and type; zoneSlug, description and address are optional.
// Rows without a zoneSlug fall back to fallbackZoneID when it is set. Bad rows
// are reported in the result and never abort the batch.
func (s *CatalogService) ImportLocations(ctx context.Context, r io.Reader, fallbackZoneID string) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, domain.NewValidationError("the CSV file is empty")
	}
	if err != nil {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid CSV header: %v", err))
	}
	cols := parseImportHeader(header)
	if cols.name < 0 || cols.slug < 0 || cols.locType < 0 {
		return nil, domain.NewValidationError("the CSV header must include name, slug and type")
	}

	zones, err := s.zones.List(ctx)
	if err != nil {
		return nil, err
	}
	zonesBySlug := make(map[string]*transferDomain.Zone, len(zones))
	var fallback *transferDomain.Zone
	for _, z := range zones {
		zonesBySlug[strings.ToLower(z.Slug())] = z
		if fallbackZoneID != "" && z.ID() == fallbackZoneID {
			fallback = z
		}
	}
	if fallbackZoneID != "" && fallback == nil {
		return nil, domain.NewValidationError(fmt.Sprintf("fallback zone %s does not exist", fallbackZoneID))
	}
	if cols.zoneSlug < 0 && fallback == nil {
		return nil, domain.NewValidationError("the CSV has no zoneSlug column; choose a fallback zone")
	}

	result := &ImportResult{Failures: []ImportFailure{}}
	seen := make(map[string]struct{})
	rowNum := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum++
		if err != nil {
			result.Failures = append(result.Failures, ImportFailure{Row: rowNum, Reason: fmt.Sprintf("unreadable row: %v", err)})
			continue
		}

		name := cols.cell(record, cols.name)
		slug := cols.cell(record, cols.slug)
		typeValue := cols.cell(record, cols.locType)
		fail := func(reason string) {
			result.Failures = append(result.Failures, ImportFailure{Row: rowNum, Slug: slug, Reason: reason})
		}

		if name == "" || slug == "" || typeValue == "" {
			fail("missing required fields (name, slug, type)")
			continue
		}
		if _, dup := seen[slug]; dup {
			fail("duplicate slug within the CSV")
			continue
		}

		zone := fallback
		if zoneSlug := strings.ToLower(cols.cell(record, cols.zoneSlug)); zoneSlug != "" {
			z, ok := zonesBySlug[zoneSlug]
			if !ok {
				fail(fmt.Sprintf("zone %q not found", zoneSlug))
				continue
			}
			zone = z
		}
		if zone == nil {
			fail("row has no zoneSlug and no fallback zone was given")
			continue
		}

		locType, err := transferDomain.ParseLocationType(typeValue)
		if err != nil {
			fail(err.Error())
			continue
		}

		_, created, err := s.upsertLocation(ctx, transferDomain.LocationDetails{
			Name:        name,
			Slug:        slug,
			Type:        locType,
			Description: cols.cell(record, cols.description),
			Address:     cols.cell(record, cols.address),
		}, zone)
		if err != nil {
			if de, ok := domain.AsDomainError(err); ok {
				fail(de.Message)
				continue
			}
			return nil, err
		}
		if created {
			result.CreatedCount++
		} else {
			result.UpdatedCount++
		}
		seen[slug] = struct{}{}
	}
	if rowNum == 1 {
		return nil, domain.NewValidationError("the CSV has no data rows")
	}

	if result.CreatedCount+result.UpdatedCount > 0 {
		s.invalidate(ctx)
	}
	s.logger.Info("location import finished",
		zap.Int("created", result.CreatedCount),
		zap.Int("updated", result.UpdatedCount),
		zap.Int("failed", len(result.Failures)),
	)
	return result, nil
}

func parseImportHeader(header []string) importColumns {
	cols := importColumns{name: -1, slug: -1, locType: -1, zoneSlug: -1, description: -1, address: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "name":
			cols.name = i
		case "slug":
			cols.slug = i
		case "type":
			cols.locType = i
		case "zoneslug", "zone_slug":
			cols.zoneSlug = i
		case "description":
			cols.description = i
		case "address":
			cols.address = i
		}
	}
	return cols
}
