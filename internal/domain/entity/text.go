package entity

import "strings"

// Row is a source row reduced to the columns text derivation looks at.
type Row struct {
	Name          string
	Description   string
	Bio           string
	Role          string
	City          string
	EmbeddingText string
}

// Placeholder text for rows whose columns yield nothing.
const (
	userPlaceholder    = "provider"
	shopPlaceholder    = "shop"
	productPlaceholder = "product"
)

// DeriveText builds the searchable text of a row. Services use their
// precomputed text only, so an empty result means the row is not indexable.
func DeriveText(t Type, r Row) string {
	switch t {
	case Service:
		return strings.TrimSpace(r.EmbeddingText)
	case User:
		return orPlaceholder(join(r.Name, r.Bio, r.Role), userPlaceholder)
	case Shop:
		return orPlaceholder(join(r.Name, r.Description, r.City), shopPlaceholder)
	case Product:
		if text := strings.TrimSpace(r.EmbeddingText); text != "" {
			return text
		}
		return orPlaceholder(join(r.Name, r.Description), productPlaceholder)
	default:
		return ""
	}
}

func join(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

func orPlaceholder(s, placeholder string) string {
	if s == "" {
		return placeholder
	}
	return s
}
