package hci

import "fmt"

// Group is the 6-bit opcode group field (OGF).
type Group uint8

const (
	GroupLinkControl Group = 0x01
	GroupLinkPolicy  Group = 0x02
	GroupBaseband    Group = 0x03
	GroupInformation Group = 0x04
	GroupStatus      Group = 0x05
	GroupTesting     Group = 0x06
)

// Command is the 10-bit opcode command field (OCF).
type Command uint16

const (
	CommandInquiry                     Command = 0x01
	CommandReset                       Command = 0x03
	CommandCreateConnection            Command = 0x05
	CommandAcceptConnectionRequest     Command = 0x09
	CommandPINCodeRequestReply         Command = 0x0D
	CommandPINCodeRequestNegativeReply Command = 0x0E
	CommandWriteLocalName              Command = 0x13
	CommandRemoteNameRequest           Command = 0x19
	CommandWriteScanEnable             Command = 0x1A
	CommandWriteDeviceClass            Command = 0x24
)

// Opcode is the packed (group << 10) | command identifier of a controller command.
// It is comparable and used as a correlation key.
type Opcode uint16

func NewOpcode(g Group, c Command) Opcode {
	return Opcode(uint16(g&0x3F)<<10 | uint16(c&0x03FF))
}

func (op Opcode) Group() Group     { return Group(uint16(op) >> 10) }
func (op Opcode) Command() Command { return Command(uint16(op) & 0x03FF) }

// Put writes the opcode to b[0:2] in wire order.
func (op Opcode) Put(b []byte) {
	b[0] = byte(op)
	b[1] = byte(op >> 8)
}

// Bytes returns the two wire bytes of the opcode.
func (op Opcode) Bytes() [2]byte {
	var b [2]byte
	op.Put(b[:])
	return b
}

// DecodeOpcode is the inverse of Put: b[0] holds the low 8 bits of the command,
// b[1] holds the group in its upper 6 bits and the top 2 command bits in its lower 2.
func DecodeOpcode(b []byte) Opcode {
	g := Group(b[1] >> 2)
	c := Command(uint16(b[1]&0x03)<<8 | uint16(b[0]))
	return NewOpcode(g, c)
}

func (op Opcode) String() string {
	if name, ok := opName[op]; ok {
		return name
	}
	return fmt.Sprintf("0x%04X", uint16(op))
}

var (
	OpInquiry                 = NewOpcode(GroupLinkControl, CommandInquiry)
	OpCreateConnection        = NewOpcode(GroupLinkControl, CommandCreateConnection)
	OpAcceptConnectionRequest = NewOpcode(GroupLinkControl, CommandAcceptConnectionRequest)
	OpPINCodeReply            = NewOpcode(GroupLinkControl, CommandPINCodeRequestReply)
	OpPINCodeNegativeReply    = NewOpcode(GroupLinkControl, CommandPINCodeRequestNegativeReply)
	OpRemoteNameRequest       = NewOpcode(GroupLinkControl, CommandRemoteNameRequest)
	OpReset                   = NewOpcode(GroupBaseband, CommandReset)
	OpWriteLocalName          = NewOpcode(GroupBaseband, CommandWriteLocalName)
	OpWriteScanEnable         = NewOpcode(GroupBaseband, CommandWriteScanEnable)
	OpWriteDeviceClass        = NewOpcode(GroupBaseband, CommandWriteDeviceClass)
)

var opName = map[Opcode]string{
	OpInquiry:                 "Inquiry",
	OpCreateConnection:        "Create Connection",
	OpAcceptConnectionRequest: "Accept Connection Request",
	OpPINCodeReply:            "PIN Code Request Reply",
	OpPINCodeNegativeReply:    "PIN Code Request Negative Reply",
	OpRemoteNameRequest:       "Remote Name Request",
	OpReset:                   "Reset",
	OpWriteLocalName:          "Write Local Name",
	OpWriteScanEnable:         "Write Scan Enable",
	OpWriteDeviceClass:        "Write Class of Device",
}
