package refresh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/evyataryagoni/geolookup/internal/logger"
	"github.com/rs/zerolog"
)

// Runner runs one database update and returns the process exit code
type Runner interface {
	Run(ctx context.Context) (int, error)
}

// Updater invokes the external database updater (geoipupdate or a wrapper script)
//
// The child inherits the process environment, which is where the updater
// finds its account credentials and edition IDs. GEOIPUPDATE_DB_DIR is set to
// the database directory unless the environment already carries it.
type Updater struct {
	command string
	args    []string
	dbDir   string
	timeout time.Duration
	logger  *logger.Logger
}

// NewUpdater creates an updater for command
// A zero timeout lets the updater run as long as it needs.
func NewUpdater(command string, args []string, dbDir string, timeout time.Duration, log *logger.Logger) *Updater {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Updater{
		command: command,
		args:    args,
		dbDir:   dbDir,
		timeout: timeout,
		logger:  log.WithComponent("Updater"),
	}
}

// Run starts the updater and waits for it to exit
// The exit code is -1 when the process could not be started or was killed.
func (u *Updater) Run(ctx context.Context) (int, error) {
	if u.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, u.command, u.args...)
	cmd.Env = u.environ()
	// Grandchildren holding the output pipes open must not block Wait forever
	cmd.WaitDelay = 5 * time.Second

	stdout := newLineLogger(u.logger, zerolog.InfoLevel, "stdout")
	stderr := newLineLogger(u.logger, zerolog.WarnLevel, "stderr")
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	u.logger.Debug().
		Str("command", u.command).
		Strs("args", u.args).
		Str("db_dir", u.dbDir).
		Msg("Starting updater")

	err := cmd.Run()
	stdout.Flush()
	stderr.Flush()

	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return code, fmt.Errorf("updater interrupted: %w", ctxErr)
		}
		return code, fmt.Errorf("updater exited with code %d", code)
	}

	return -1, fmt.Errorf("failed to run updater: %w", err)
}

func (u *Updater) environ() []string {
	env := os.Environ()
	if _, ok := os.LookupEnv("GEOIPUPDATE_DB_DIR"); !ok && u.dbDir != "" {
		env = append(env, "GEOIPUPDATE_DB_DIR="+u.dbDir)
	}
	return env
}

// lineLogger turns a child's output stream into one log event per line
type lineLogger struct {
	mu     sync.Mutex
	logger *logger.Logger
	level  zerolog.Level
	stream string
	buf    bytes.Buffer
}

func newLineLogger(log *logger.Logger, level zerolog.Level, stream string) *lineLogger {
	return &lineLogger{logger: log, level: level, stream: stream}
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf.Write(p)
	for {
		line, err := l.buf.ReadBytes('\n')
		if err != nil {
			// incomplete line, keep it for the next write
			l.buf.Reset()
			l.buf.Write(line)
			break
		}
		l.emit(line[:len(line)-1])
	}
	return len(p), nil
}

// Flush logs a trailing line that had no newline
func (l *lineLogger) Flush() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.buf.Len() > 0 {
		l.emit(l.buf.Bytes())
		l.buf.Reset()
	}
}

func (l *lineLogger) emit(line []byte) {
	line = bytes.TrimRight(line, "\r")
	if len(line) == 0 {
		return
	}
	l.logger.WithLevel(l.level).Str("stream", l.stream).Msg(string(line))
}
