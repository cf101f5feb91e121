package hci

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrTransportFailure  = errors.New("transport failure")
	ErrProtocolViolation = errors.New("protocol violation")
	ErrTimeout           = errors.New("timeout")
)

// CommandError reports a non-zero status returned by the controller for a command.
type CommandError struct {
	Opcode Opcode
	Status uint8
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("HCI command '%s' returned status 0x%02X", e.Opcode, e.Status)
}
