// Package capture records the ACL traffic exchanged with the controller.
package capture

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Direction byte

const (
	// DirectionIn is data written to the controller.
	DirectionIn = Direction('I')
	// DirectionOut is data received from the controller.
	DirectionOut = Direction('O')
)

func (d Direction) String() string {
	return string(rune(d))
}

// Log writes one entry per ACL frame. A nil *Log discards everything.
type Log struct {
	logger *logrus.Logger
	closer io.Closer
}

func New(w io.Writer) *Log {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors: true,
		FullTimestamp: true,
	})
	return &Log{logger: l}
}

// Open appends to the file at path, creating it if needed.
func Open(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open the capture file '%s'", path)
	}
	l := New(f)
	l.closer = f
	return l, nil
}

func (l *Log) LogData(dir Direction, b []byte) {
	if l == nil {
		return
	}
	l.logger.WithField("dir", dir.String()).Info(Hex(b))
}

func (l *Log) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// Hex renders b as dash separated upper case octets ("0A-FF-01").
func Hex(b []byte) string {
	const digits = "0123456789ABCDEF"
	var sb strings.Builder
	for i, c := range b {
		if i > 0 {
			sb.WriteByte('-')
		}
		sb.WriteByte(digits[c>>4])
		sb.WriteByte(digits[c&0x0F])
	}
	return sb.String()
}
