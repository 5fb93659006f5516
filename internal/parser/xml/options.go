package xmlparser

// Options controls how attribute rows are read.
// Zero values pick the defaults used by the dump files.
type Options struct {
	RecordTag string // element that carries one record; "" => "row"
	BufSize   int    // bufio.Reader size; 0 => 1<<20
}

func (o Options) withDefaults() Options {
	if o.RecordTag == "" {
		o.RecordTag = "row"
	}
	if o.BufSize <= 0 {
		o.BufSize = 1 << 20
	}
	return o
}
