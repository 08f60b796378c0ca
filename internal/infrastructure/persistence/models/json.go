package models

import "encoding/json"

// jsonColumn encodes an optional sub-record for map-based updates, which do
// not run field serializers. A nil pointer clears the column.
func jsonColumn[T any](v *T) interface{} {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return string(b)
}
