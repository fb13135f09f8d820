package command

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/urfave/cli/v2"
)

// lockedBuffer is a bytes.Buffer safe for the spinner goroutine and
// the logger writing concurrently.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type runResult struct {
	stdout   string
	stderr   string
	err      error
	exitCode int
}

// runApp runs the CLI with args (without the program name) and captures
// output and the exit code instead of exiting.
func runApp(t *testing.T, args ...string) runResult {
	t.Helper()

	var stdout bytes.Buffer
	var stderr lockedBuffer

	res := runResult{}
	app := App()
	app.Writer = &stdout
	app.ErrWriter = &stderr
	app.ExitErrHandler = func(_ *cli.Context, err error) {
		var ec cli.ExitCoder
		if errors.As(err, &ec) {
			res.exitCode = ec.ExitCode()
		} else if err != nil {
			res.exitCode = ExitFailure
		}
	}

	res.err = app.Run(append([]string{"apnsconn-cli"}, args...))
	res.stdout = stdout.String()
	res.stderr = stderr.String()
	return res
}
