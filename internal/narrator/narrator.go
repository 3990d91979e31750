// Package narrator prints the robot's greeting and farewell around a lookup
package narrator

import (
	"fmt"
	"io"
)

// RobotName is how the robot introduces itself
const RobotName = "Scientist Seeker 2k23"

// Narrator speaks at the start, during and at the end of a run
type Narrator interface {
	Hello()
	Wait()
	Goodbye()
}

// Console writes the robot's lines to w
type Console struct {
	w    io.Writer
	name string
}

// NewConsole creates a narrator speaking as RobotName
func NewConsole(w io.Writer) *Console {
	return &Console{w: w, name: RobotName}
}

func (c *Console) Hello() {
	_, _ = fmt.Fprintf(c.w, "\nHello, my name is %s\n\n", c.name)
	_, _ = fmt.Fprintln(c.w, "I am here to help you to find the following information about the scientist: "+
		"birth date, date of death, age, and a short article.")
}

func (c *Console) Wait() {
	_, _ = fmt.Fprint(c.w, "Please wait...\n\n")
}

func (c *Console) Goodbye() {
	_, _ = fmt.Fprintf(c.w, "Goodbye, my name is %s\n", c.name)
}

// Silent says nothing; used for machine-readable output
type Silent struct{}

func (Silent) Hello()   {}
func (Silent) Wait()    {}
func (Silent) Goodbye() {}
