// Package roster holds the fixed list of known scientists
package roster

import (
	"fmt"
	"strconv"
	"strings"
)

var names = []string{"Albert Einstein", "Isaac Newton", "Marie Curie", "Charles Darwin"}

// Names returns the roster in display order
func Names() []string {
	return append([]string(nil), names...)
}

// Len is the number of known scientists
func Len() int {
	return len(names)
}

// Name returns the n-th scientist, 1-based
func Name(n int) (string, error) {
	if n < 1 || n > len(names) {
		return "", fmt.Errorf("number must be in range [1, %d]", len(names))
	}
	return names[n-1], nil
}

// ValidateNumber parses a roster choice, accepting integers in [1, Len()]
func ValidateNumber(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("argument should be a number")
	}
	if _, err := Name(n); err != nil {
		return 0, err
	}
	return n, nil
}

// Menu renders the numbered roster
func Menu() string {
	var b strings.Builder
	for i, name := range names {
		fmt.Fprintf(&b, "%d) %s\n", i+1, name)
	}
	return b.String()
}
