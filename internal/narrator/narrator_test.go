package narrator

import (
	"bytes"
	"strings"
	"testing"
)

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	n := NewConsole(&buf)

	n.Hello()
	n.Wait()
	n.Goodbye()

	out := buf.String()
	for _, want := range []string{
		"Hello, my name is Scientist Seeker 2k23",
		"birth date, date of death, age, and a short article.",
		"Please wait...",
		"Goodbye, my name is Scientist Seeker 2k23",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Hello") > strings.Index(out, "Goodbye") {
		t.Error("greeting must come before farewell")
	}
}

func TestSilent(t *testing.T) {
	var n Narrator = Silent{}
	n.Hello()
	n.Wait()
	n.Goodbye()
}
