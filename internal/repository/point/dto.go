package point

import (
	"strconv"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/semsearch/internal/domain/entity"
	"github.com/kailas-cloud/semsearch/internal/domain/geo"
	"github.com/kailas-cloud/semsearch/internal/domain/search/result"
	"github.com/kailas-cloud/semsearch/internal/domain/vector"
)

// Record is one entity ready to be written.
type Record struct {
	ID         string
	Entity     entity.Type
	Text       string
	Vector     []float32
	Payload    result.Payload
	IngestedAt time.Time
}

// buildHashFields converts a Record into a flat map for HSET.
// Empty optional fields are omitted so the index skips them.
func buildHashFields(rec *Record, vectorField string, textMax int) map[string]string {
	m := make(map[string]string, 16)
	m[FieldID] = rec.ID
	m[FieldEntityType] = string(rec.Entity)
	m[FieldText] = vector.TruncateRunes(rec.Text, textMax)
	m[vectorField] = rueidis.VectorString32(rec.Vector)
	m[FieldIngestedAt] = strconv.FormatInt(rec.IngestedAt.Unix(), 10)

	p := rec.Payload
	setIf(m, FieldName, p.Name)
	setIf(m, FieldDescription, p.Description)
	setIf(m, FieldPhone, p.Phone)
	setIf(m, FieldCity, p.City)
	setIf(m, FieldTags, joinList(p.Tags))
	setIf(m, FieldCategoryIDs, joinList(p.CategoryIDs))
	setIf(m, FieldCategorySlugs, joinList(p.CategorySlugs))

	if p.Location != nil {
		m[FieldLocation] = p.Location.String()
		m[FieldLat] = strconv.FormatFloat(p.Location.Lat, 'f', -1, 64)
		m[FieldLon] = strconv.FormatFloat(p.Location.Lon, 'f', -1, 64)
	}
	return m
}

// DecodePayload converts stored hash fields back into a payload.
func DecodePayload(m map[string]string) result.Payload {
	p := result.Payload{
		Name:          m[FieldName],
		Description:   m[FieldDescription],
		Phone:         m[FieldPhone],
		City:          m[FieldCity],
		Tags:          SplitList(m[FieldTags]),
		CategoryIDs:   SplitList(m[FieldCategoryIDs]),
		CategorySlugs: SplitList(m[FieldCategorySlugs]),
	}
	if loc, ok := decodeLocation(m); ok {
		p.Location = &loc
	}
	return p
}

func decodeLocation(m map[string]string) (geo.Point, bool) {
	if raw := m[FieldLocation]; raw != "" {
		if p, err := geo.ParsePoint(raw); err == nil {
			return p, true
		}
	}
	latRaw, lonRaw := m[FieldLat], m[FieldLon]
	if latRaw == "" || lonRaw == "" {
		return geo.Point{}, false
	}
	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil {
		return geo.Point{}, false
	}
	lon, err := strconv.ParseFloat(lonRaw, 64)
	if err != nil {
		return geo.Point{}, false
	}
	p := geo.Point{Lat: lat, Lon: lon}
	return p, p.Valid()
}

// SplitList splits a stored list field. Empty input yields nil.
func SplitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ListSeparator)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func joinList(items []string) string {
	cleaned := make([]string, 0, len(items))
	for _, it := range items {
		// the separator can't appear inside a value
		it = strings.TrimSpace(strings.ReplaceAll(it, ListSeparator, " "))
		if it != "" {
			cleaned = append(cleaned, it)
		}
	}
	return strings.Join(cleaned, ListSeparator)
}

func setIf(m map[string]string, key, value string) {
	if value != "" {
		m[key] = value
	}
}

// decodeVector reads a stored FLOAT32 blob. A truncated blob yields nil.
func decodeVector(blob string) []float32 {
	if len(blob)%4 != 0 {
		return nil
	}
	return rueidis.ToVector32(blob)
}
