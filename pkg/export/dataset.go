package export

// Dataset is a table of history rows keyed by header name.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
	// Weights optionally sizes PDF columns relative to each other.
	Weights []float64
}

func (d Dataset) record(row map[string]string, dst []string) []string {
	dst = dst[:0]
	for _, header := range d.Headers {
		dst = append(dst, row[header])
	}
	return dst
}
