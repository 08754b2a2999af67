package registry

import (
	"bufio"
	"fmt"
	"os"
)

// Unit is the output file of one namespace.
type Unit struct {
	Namespace string
	Module    string // fully qualified D module name
	Path      string

	file   *os.File
	w      *bufio.Writer
	closed bool
}

// Printf writes formatted text to the unit. Write errors are sticky and
// reported by Close.
func (u *Unit) Printf(format string, args ...any) {
	fmt.Fprintf(u.w, format, args...)
}

// Println writes a line to the unit.
func (u *Unit) Println(line string) {
	u.w.WriteString(line)
	u.w.WriteByte('\n')
}

// Comment writes a // comment line.
func (u *Unit) Comment(format string, args ...any) {
	u.w.WriteString("// ")
	fmt.Fprintf(u.w, format, args...)
	u.w.WriteByte('\n')
}

// Write implements io.Writer.
func (u *Unit) Write(p []byte) (int, error) {
	return u.w.Write(p)
}

func (u *Unit) close() error {
	if u.closed {
		return nil
	}
	u.closed = true
	flushErr := u.w.Flush()
	closeErr := u.file.Close()
	if flushErr != nil {
		return fmt.Errorf("writing %s: %w", u.Path, flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("closing %s: %w", u.Path, closeErr)
	}
	return nil
}
