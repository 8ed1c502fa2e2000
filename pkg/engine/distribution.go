package engine

import (
	"encoding/json"
	"sort"
)

// Bucket is one category of a distribution.
type Bucket struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Distribution counts items per category with a stable key order.
type Distribution struct {
	keys   []string
	counts map[string]int
}

func newDistribution(keys ...string) Distribution {
	d := Distribution{counts: make(map[string]int, len(keys))}
	for _, k := range keys {
		d.seed(k)
	}
	return d
}

func (d *Distribution) seed(key string) {
	if _, ok := d.counts[key]; ok {
		return
	}
	d.keys = append(d.keys, key)
	d.counts[key] = 0
}

func (d *Distribution) add(key string, n int) {
	d.seed(key)
	d.counts[key] += n
}

// sortKeys orders keys by name. Used for sparse distributions so the order
// does not depend on which file was seen first.
func (d *Distribution) sortKeys() {
	sort.Strings(d.keys)
}

// Get returns the count for key, zero when absent.
func (d Distribution) Get(key string) int {
	return d.counts[key]
}

// Has reports whether key is present, even with a zero count.
func (d Distribution) Has(key string) bool {
	_, ok := d.counts[key]
	return ok
}

// Keys returns categories in display order.
func (d Distribution) Keys() []string {
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// Len is the number of categories.
func (d Distribution) Len() int {
	return len(d.keys)
}

// Total sums every count.
func (d Distribution) Total() int {
	total := 0
	for _, v := range d.counts {
		total += v
	}
	return total
}

// Buckets returns categories and counts in display order.
func (d Distribution) Buckets() []Bucket {
	out := make([]Bucket, 0, len(d.keys))
	for _, k := range d.keys {
		out = append(out, Bucket{Name: k, Value: d.counts[k]})
	}
	return out
}

// Map copies the counts.
func (d Distribution) Map() map[string]int {
	out := make(map[string]int, len(d.counts))
	for k, v := range d.counts {
		out[k] = v
	}
	return out
}

// Equal compares categories, order and counts.
func (d Distribution) Equal(o Distribution) bool {
	if len(d.keys) != len(o.keys) {
		return false
	}
	for i, k := range d.keys {
		if o.keys[i] != k || o.counts[k] != d.counts[k] {
			return false
		}
	}
	return true
}

func (d Distribution) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Buckets())
}

func (d *Distribution) UnmarshalJSON(data []byte) error {
	var buckets []Bucket
	if err := json.Unmarshal(data, &buckets); err != nil {
		return err
	}
	*d = newDistribution()
	for _, b := range buckets {
		d.add(b.Name, b.Value)
	}
	return nil
}
