package identity

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/xaionaro-go/btrelay/hci"
)

// File keys.
const (
	KeyAddress                = "BDAddr"
	KeyDisplayName            = "RemoteName"
	KeyDeviceClass            = "DeviceClass"
	KeyPageScanRepetitionMode = "PageScanRepetitionMode"
	KeyClockOffset            = "ClockOffset"
)

// Decode reads key=value lines. Unknown keys and lines without '=' are ignored.
func Decode(r io.Reader) (Identity, error) {
	var id Identity
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		var err error
		switch key {
		case KeyAddress:
			id.Address, err = hci.ParseAddress(value)
		case KeyDisplayName:
			id.DisplayName = value
		case KeyDeviceClass:
			var v uint64
			v, err = strconv.ParseUint(value, 16, 24)
			id.DeviceClass = uint32(v)
		case KeyPageScanRepetitionMode:
			var v uint64
			v, err = strconv.ParseUint(value, 16, 8)
			id.PageScanRepetitionMode = uint8(v)
		case KeyClockOffset:
			var v uint64
			v, err = strconv.ParseUint(value, 16, 16)
			id.ClockOffset = uint16(v)
		}
		if err != nil {
			return Identity{}, errors.Wrapf(hci.ErrInvalidArgument, "invalid value of '%s': '%s'", key, value)
		}
	}
	if err := scanner.Err(); err != nil {
		return Identity{}, err
	}
	return id, nil
}

// Encode writes id as key=value lines.
func Encode(w io.Writer, id Identity) error {
	_, err := fmt.Fprintf(w, "%s=%s\n%s=%s\n%s=%06X\n%s=%02X\n%s=%04X\n",
		KeyAddress, id.Address.Hex(),
		KeyDisplayName, id.DisplayName,
		KeyDeviceClass, id.DeviceClass,
		KeyPageScanRepetitionMode, id.PageScanRepetitionMode,
		KeyClockOffset, id.ClockOffset,
	)
	return err
}

func Load(path string) (Identity, error) {
	f, err := os.Open(path)
	if err != nil {
		return Identity{}, errors.Wrapf(err, "unable to open the identity file '%s'", path)
	}
	defer f.Close()
	id, err := Decode(f)
	if err != nil {
		return Identity{}, errors.Wrapf(err, "unable to parse '%s'", path)
	}
	return id, nil
}

// Save replaces the file at path with id.
func Save(path string, id Identity) (_err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "unable to create the identity file '%s'", path)
	}
	defer func() {
		if err := f.Close(); err != nil && _err == nil {
			_err = err
		}
	}()
	return Encode(f, id)
}

// Exists reports whether an identity file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
