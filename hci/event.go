package hci

import "fmt"

// EventCode is the first byte of a controller event frame.
type EventCode uint8

const (
	EventInquiryComplete              EventCode = 0x01
	EventInquiryResult                EventCode = 0x02
	EventConnectionComplete           EventCode = 0x03
	EventConnectionRequest            EventCode = 0x04
	EventDisconnectionComplete        EventCode = 0x05
	EventRemoteNameRequestComplete    EventCode = 0x07
	EventQoSSetupComplete             EventCode = 0x0D
	EventCommandComplete              EventCode = 0x0E
	EventCommandStatus                EventCode = 0x0F
	EventPINCodeRequest               EventCode = 0x16
	EventMaxSlotsChange               EventCode = 0x1B
	EventPageScanRepetitionModeChange EventCode = 0x20
)

var eventName = map[EventCode]string{
	EventInquiryComplete:              "Inquiry Complete",
	EventInquiryResult:                "Inquiry Result",
	EventConnectionComplete:           "Connection Complete",
	EventConnectionRequest:            "Connection Request",
	EventDisconnectionComplete:        "Disconnection Complete",
	EventRemoteNameRequestComplete:    "Remote Name Request Complete",
	EventQoSSetupComplete:             "QoS Setup Complete",
	EventCommandComplete:              "Command Complete",
	EventCommandStatus:                "Command Status",
	EventPINCodeRequest:               "PIN Code Request",
	EventMaxSlotsChange:               "Max Slots Change",
	EventPageScanRepetitionModeChange: "Page Scan Repetition Mode Change",
}

func (c EventCode) String() string {
	if name, ok := eventName[c]; ok {
		return name
	}
	return fmt.Sprintf("Unknown Event 0x%02X", uint8(c))
}

// Byte offsets inside raw event frames: [code, plen, params...].
const (
	// Command Complete: [0x0E, plen, numPkts, opLo, opHi, status, ...]
	CommandCompleteOpcodeOffset = 3
	CommandCompleteStatusOffset = 5

	// Command Status: [0x0F, plen, status, numPkts, opLo, opHi]
	CommandStatusStatusOffset = 2
	CommandStatusOpcodeOffset = 4

	// Inquiry Result: [0x02, plen, numResponses, records...]
	InquiryResultCountOffset   = 2
	InquiryResultRecordsOffset = 3

	// Connection Complete: [0x03, plen, status, handle(2), addr(6), linkType, encMode]
	ConnectionCompleteStatusOffset  = 2
	ConnectionCompleteHandleOffset  = 3
	ConnectionCompleteAddressOffset = 5
	ConnectionCompleteMinLength     = ConnectionCompleteAddressOffset + AddressLength

	// Connection Request: [0x04, plen, addr(6), class(3), linkType]
	ConnectionRequestAddressOffset = 2
	ConnectionRequestClassOffset   = 8
	ConnectionRequestLinkOffset    = 11
	ConnectionRequestMinLength     = 12

	// Remote Name Request Complete: [0x07, plen, status, addr(6), name(248)]
	RemoteNameStatusOffset = 2
	RemoteNameOffset       = 9

	// PIN Code Request: [0x16, plen, addr(6)]
	PINCodeRequestAddressOffset = 2
)
