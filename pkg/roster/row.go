// Package roster reads and writes flat CSV records with a header row.
package roster

// Row is one flat record. Keys keep their insertion order, which becomes
// the column order when the row is written.
type Row struct {
	keys   []string
	values map[string]string
}

// NewRow creates a row from alternating key, value arguments. A trailing
// key without value is set to "".
func NewRow(kv ...string) Row {
	var r Row
	for i := 0; i < len(kv); i += 2 {
		value := ""
		if i+1 < len(kv) {
			value = kv[i+1]
		}
		r.Set(kv[i], value)
	}
	return r
}

// Get returns the value for key, or "" when absent.
func (r Row) Get(key string) string {
	return r.values[key]
}

// Lookup returns the value for key and whether it is present.
func (r Row) Lookup(key string) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

// GetOr returns the value for key, or def when absent.
func (r Row) GetOr(key, def string) string {
	if v, ok := r.values[key]; ok {
		return v
	}
	return def
}

// Set stores value under key. A new key is appended to the column order;
// an existing key keeps its position.
func (r *Row) Set(key, value string) {
	if r.values == nil {
		r.values = make(map[string]string)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Keys returns the keys in column order.
func (r Row) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of columns.
func (r Row) Len() int {
	return len(r.keys)
}

// Clone returns an independent copy.
func (r Row) Clone() Row {
	c := Row{
		keys:   make([]string, len(r.keys)),
		values: make(map[string]string, len(r.values)),
	}
	copy(c.keys, r.keys)
	for k, v := range r.values {
		c.values[k] = v
	}
	return c
}

// Map returns the values as a plain map.
func (r Row) Map() map[string]string {
	out := make(map[string]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}
