package diagnostic

// Diagnostic codes.
const (
	CodeUnknownType       = "unknown-type"
	CodeTypeNotAssignable = "type-not-assignable"
	CodeUnsupportedKey    = "unsupported-key"
	CodeUnsupportedShape  = "unsupported-shape"
	CodeShapeMismatch     = "shape-mismatch"
	CodeNumberRange       = "number-range"
	CodeUnknownMember     = "unknown-member"
	CodeSchemaMissing     = "schema-missing"
	CodeSchemaNotRow      = "schema-not-row"
	CodeOpaqueCodec       = "opaque-codec"
)
