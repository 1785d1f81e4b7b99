package models

// MergeField copies *src into *dst when src is present and appends column to
// columns. It is the single rule behind every partial update: fields the
// caller omitted are left alone.
func MergeField[T any](columns []string, column string, dst *T, src *T) []string {
	if src == nil {
		return columns
	}
	*dst = *src
	return append(columns, column)
}
