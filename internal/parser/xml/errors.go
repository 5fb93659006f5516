package xmlparser

import "strings"

// isTruncErr returns true when a tokenization error indicates a truncated
// document. encoding/xml does not expose a sentinel, so we match the message
// it uses for input that ends inside an element.
func isTruncErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "unexpected EOF")
}
