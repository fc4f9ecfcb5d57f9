package godm

// Missing is the explicit absent marker: a field whose key did not appear in
// the input at all. It is distinct from nil, which is a stored null value.
// Convert pipelines receive Missing for absent keys and drop Missing results
// from clean data, so the marker itself never reaches a stored document.
var Missing = missingValue{}

type missingValue struct{}

func (missingValue) String() string { return "<missing>" }

// IsMissing reports whether v is the absent marker.
func IsMissing(v any) bool {
	_, ok := v.(missingValue)
	return ok
}

// orMissing normalizes a `v, ok := m[k]` lookup into a single value.
func orMissing(v any, ok bool) any {
	if !ok {
		return Missing
	}
	return v
}
