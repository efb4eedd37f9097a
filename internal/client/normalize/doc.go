// Package normalize turns raw CMS payloads into the view models of package
// models.
//
// The CMS has shipped several schema revisions: attributes may be nested
// under "attributes" or flattened onto the record, relations may be wrapped
// in {"data": ...}, prose may be a plain string or a block tree, and list
// fields may be scalars. Every lookup walks a fixed chain of shapes and
// aliases, and a field that cannot be derived falls back to a documented
// default. Normalization never fails; fallbacks are reported to an optional
// Observer.
package normalize
