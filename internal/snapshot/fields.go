package snapshot

import "encoding/json"

// FieldMap holds the encoded fields of one entity, keyed by field name.
type FieldMap map[string]json.RawMessage
