package hci

import "github.com/xaionaro-go/btrelay/hci/util"

// CommandParam is a controller command with its parameters.
type CommandParam interface {
	Opcode() Opcode
	Len() int
	Marshal([]byte)
}

// CommandHeaderLength is opcode(2) | parameter length(1).
const CommandHeaderLength = 3

// MarshalCommand builds the command frame [opcodeLow, opcodeHigh, paramLen, params...].
func MarshalCommand(c CommandParam) []byte {
	b := make([]byte, CommandHeaderLength+c.Len())
	c.Opcode().Put(b)
	b[2] = byte(c.Len())
	c.Marshal(b[CommandHeaderLength:])
	return b
}

// GeneralInquiryAccessCode is the GIAC LAP (0x9E8B33).
const GeneralInquiryAccessCode = 0x9E8B33

type Reset struct{}

func (c Reset) Opcode() Opcode   { return OpReset }
func (c Reset) Len() int         { return 0 }
func (c Reset) Marshal(b []byte) {}

type Inquiry struct {
	LAP           uint32
	InquiryLength uint8 // N x 1.28 s
	NumResponses  uint8 // 0: unlimited
}

func (c Inquiry) Opcode() Opcode { return OpInquiry }
func (c Inquiry) Len() int       { return 5 }
func (c Inquiry) Marshal(b []byte) {
	util.BinaryOrder.PutUint24(b, c.LAP)
	b[3] = c.InquiryLength
	b[4] = c.NumResponses
}

type RemoteNameRequest struct {
	Address                Address
	PageScanRepetitionMode uint8
	ClockOffset            uint16
}

func (c RemoteNameRequest) Opcode() Opcode { return OpRemoteNameRequest }
func (c RemoteNameRequest) Len() int       { return 10 }
func (c RemoteNameRequest) Marshal(b []byte) {
	copy(b[0:6], c.Address[:])
	b[6] = c.PageScanRepetitionMode
	b[7] = 0x00 // reserved
	util.BinaryOrder.PutUint16(b[8:], c.ClockOffset|ClockOffsetValid)
}

// Scan enable values of WriteScanEnable.
const (
	ScanEnablePageOnly       = 0x01
	ScanEnableInquiryAndPage = 0x03
)

type WriteScanEnable struct {
	ScanEnable uint8
}

func (c WriteScanEnable) Opcode() Opcode   { return OpWriteScanEnable }
func (c WriteScanEnable) Len() int         { return 1 }
func (c WriteScanEnable) Marshal(b []byte) { b[0] = c.ScanEnable }

type WriteLocalName struct {
	LocalName string
}

func (c WriteLocalName) Opcode() Opcode   { return OpWriteLocalName }
func (c WriteLocalName) Len() int         { return NameLength }
func (c WriteLocalName) Marshal(b []byte) { PutName(b, c.LocalName) }

type WriteDeviceClass struct {
	DeviceClass uint32
}

func (c WriteDeviceClass) Opcode() Opcode   { return OpWriteDeviceClass }
func (c WriteDeviceClass) Len() int         { return 3 }
func (c WriteDeviceClass) Marshal(b []byte) { util.BinaryOrder.PutUint24(b, c.DeviceClass) }

// RoleSlave asks AcceptConnectionRequest to stay the slave of the link.
const RoleSlave = 0x01

type AcceptConnectionRequest struct {
	Address Address
	Role    uint8
}

func (c AcceptConnectionRequest) Opcode() Opcode { return OpAcceptConnectionRequest }
func (c AcceptConnectionRequest) Len() int       { return 7 }
func (c AcceptConnectionRequest) Marshal(b []byte) {
	copy(b[0:6], c.Address[:])
	b[6] = c.Role
}

// DefaultPacketType allows DM1 and DH1 packets.
const DefaultPacketType = 0x0018

type CreateConnection struct {
	Address                Address
	PacketType             uint16
	PageScanRepetitionMode uint8
	ClockOffset            uint16
	AllowRoleSwitch        uint8
}

func (c CreateConnection) Opcode() Opcode { return OpCreateConnection }
func (c CreateConnection) Len() int       { return 13 }
func (c CreateConnection) Marshal(b []byte) {
	copy(b[0:6], c.Address[:])
	util.BinaryOrder.PutUint16(b[6:], c.PacketType)
	b[8] = c.PageScanRepetitionMode
	b[9] = 0x00 // reserved
	util.BinaryOrder.PutUint16(b[10:], c.ClockOffset|ClockOffsetValid)
	b[12] = c.AllowRoleSwitch
}

// MaxPINLength is the width of the PIN field of a PIN Code Request Reply.
const MaxPINLength = 16

type PINCodeReply struct {
	Address Address
	PIN     string
}

func (c PINCodeReply) Opcode() Opcode { return OpPINCodeReply }
func (c PINCodeReply) Len() int       { return AddressLength + 1 + MaxPINLength }
func (c PINCodeReply) Marshal(b []byte) {
	copy(b[0:6], c.Address[:])
	b[6] = byte(len(c.PIN))
	pin := b[7 : 7+MaxPINLength]
	clear(pin)
	copy(pin, c.PIN)
}

type PINCodeNegativeReply struct {
	Address Address
}

func (c PINCodeNegativeReply) Opcode() Opcode   { return OpPINCodeNegativeReply }
func (c PINCodeNegativeReply) Len() int         { return AddressLength }
func (c PINCodeNegativeReply) Marshal(b []byte) { copy(b, c.Address[:]) }
