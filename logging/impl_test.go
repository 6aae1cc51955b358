package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"
)

// assertLogMatches checks the level, logger name and message of the next logged line. The time
// is only checked by length and the caller by file name.
func assertLogMatches(t *testing.T, actual *bytes.Buffer, level, name, file, msg string) {
	t.Helper()

	output, err := actual.ReadString('\n')
	test.That(t, err, test.ShouldBeNil)

	parts := strings.Split(strings.TrimSuffix(output, "\n"), "\t")
	test.That(t, len(parts), test.ShouldBeGreaterThanOrEqualTo, 5)
	test.That(t, len(parts[0]), test.ShouldEqual, len("2023-10-30T09:12:09.459-0400"))
	test.That(t, parts[1], test.ShouldEqual, level)
	test.That(t, parts[2], test.ShouldEqual, name)

	actualFilename, _, found := strings.Cut(parts[3], ":")
	test.That(t, found, test.ShouldBeTrue)
	test.That(t, actualFilename, test.ShouldEqual, file)
	test.That(t, parts[4], test.ShouldEqual, msg)
}

func newBufferLogger(name string, level Level) (Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger := &impl{name, NewAtomicLevelAt(level), false, []Appender{NewWriterAppender(buf)}}
	return logger, buf
}

func TestConsoleOutputFormat(t *testing.T) {
	logger, buf := newBufferLogger("impl", DEBUG)

	logger.Info("impl Info log")
	assertLogMatches(t, buf, "INFO", "impl", "logging/impl_test.go", "impl Info log")

	logger.Debugf("impl %s log", "Debugf")
	assertLogMatches(t, buf, "DEBUG", "impl", "logging/impl_test.go", "impl Debugf log")

	logger.Warnw("impl logs something", "key", 5)
	output, err := buf.ReadString('\n')
	test.That(t, err, test.ShouldBeNil)
	test.That(t, output, test.ShouldContainSubstring, "WARN")
	test.That(t, output, test.ShouldContainSubstring, `{"key":5}`)
}

func TestLevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger("filter", WARN)

	logger.Debug("dropped")
	logger.Info("dropped")
	test.That(t, buf.Len(), test.ShouldEqual, 0)

	logger.Error("kept")
	assertLogMatches(t, buf, "ERROR", "filter", "logging/impl_test.go", "kept")

	logger.SetLevel(DEBUG)
	test.That(t, logger.GetLevel(), test.ShouldEqual, DEBUG)
	logger.Debug("now kept")
	assertLogMatches(t, buf, "DEBUG", "filter", "logging/impl_test.go", "now kept")
}

func TestSublogger(t *testing.T) {
	logger, buf := newBufferLogger("odometry", INFO)
	sub := logger.Sublogger("f2f")

	sub.Info("from the sublogger")
	assertLogMatches(t, buf, "INFO", "odometry.f2f", "logging/impl_test.go", "from the sublogger")

	blank := NewBlankLogger("")
	test.That(t, blank.Sublogger("icp").AsZap().Desugar().Name(), test.ShouldEqual, "icp")
}

func TestObservedTestLogger(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.Warnf("Too low 2D features (%d), keeping last key frame...", 3)
	logger.Info("something else")

	test.That(t, logs.FilterMessageSnippet("Too low 2D features").Len(), test.ShouldEqual, 1)
	test.That(t, logs.Len(), test.ShouldEqual, 2)
	test.That(t, logger.Sync(), test.ShouldBeNil)
}

func TestLevelFromString(t *testing.T) {
	for _, tc := range []struct {
		input    string
		expected Level
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"Warning", WARN},
		{"error", ERROR},
	} {
		t.Run(tc.input, func(t *testing.T) {
			level, err := LevelFromString(tc.input)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, level, test.ShouldEqual, tc.expected)
		})
	}

	_, err := LevelFromString("loud")
	test.That(t, err, test.ShouldNotBeNil)

	var level Level
	test.That(t, level.UnmarshalJSON([]byte(`"warn"`)), test.ShouldBeNil)
	test.That(t, level, test.ShouldEqual, WARN)
	out, err := level.MarshalJSON()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(out), test.ShouldEqual, `"warn"`)
}

func TestFileAppender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "odometry.log")
	appender, closer := NewFileAppender(path)
	logger := &impl{"file", NewAtomicLevelAt(INFO), false, []Appender{appender}}

	logger.Infow("written to file", "cycle", 3)
	test.That(t, closer.Close(), test.ShouldBeNil)

	contents, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(contents), test.ShouldContainSubstring, "written to file")
	test.That(t, string(contents), test.ShouldContainSubstring, `{"cycle":3}`)
}
