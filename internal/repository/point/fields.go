// Package point stores entity hashes: one HASH per ingested entity, indexed
// by the collection's FT schema.
package point

// Hash field names shared by the writer, the index schema and the searcher.
const (
	FieldID            = "id"
	FieldEntityType    = "entity_type"
	FieldText          = "search_text"
	FieldName          = "name"
	FieldDescription   = "description"
	FieldPhone         = "phone"
	FieldCity          = "city"
	FieldTags          = "tags"
	FieldCategoryIDs   = "category_ids"
	FieldCategorySlugs = "category_slugs"
	FieldLocation      = "location"
	FieldLat           = "lat"
	FieldLon           = "lon"
	FieldIngestedAt    = "ingested_at"
)

// ListSeparator joins list-valued TAG fields.
const ListSeparator = ","

// PayloadFields lists the fields returned by searches.
var PayloadFields = []string{
	FieldID,
	FieldEntityType,
	FieldName,
	FieldDescription,
	FieldPhone,
	FieldCity,
	FieldTags,
	FieldCategoryIDs,
	FieldCategorySlugs,
	FieldLocation,
	FieldLat,
	FieldLon,
}
