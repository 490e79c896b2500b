package sanitize

import "strings"

// Partition splits sanitized values into disjoint buckets. General and
// culture parameters are familiar panels that can be applied to a chart
// without review; novel parameters route to the review queue.
type Partition struct {
	General map[string]string
	Culture map[string]string
	Novel   map[string]string
}

// Classify partitions a sanitized values map. Keys in the ignored set
// (routine hematology indices) are dropped and reach no bucket; every other
// input key lands in exactly one of general, culture, or novel.
func Classify(t Tables, values map[string]string) Partition {
	p := Partition{
		General: map[string]string{},
		Culture: map[string]string{},
		Novel:   map[string]string{},
	}
	for key, value := range values {
		lk := strings.ToLower(strings.TrimSpace(key))
		switch {
		case t.IgnoredKeys[lk]:
		case t.CultureKeys[lk]:
			p.Culture[key] = value
		case t.GeneralKeys[lk]:
			p.General[key] = value
		default:
			p.Novel[key] = value
		}
	}
	return p
}
