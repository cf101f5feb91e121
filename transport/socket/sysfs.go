// Package socket opens a Linux HCI controller through the HCI user channel.
package socket

import (
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/xaionaro-go/btrelay/hci"
)

// SysfsClassRoot is where the kernel lists HCI controllers.
var SysfsClassRoot = "/sys/class/bluetooth"

// USBID identifies a USB controller by vendor and product.
type USBID struct {
	Vendor  uint16
	Product uint16
}

// FindDevice returns the index of the first hciN controller whose USB
// device carries the given vendor/product identifiers.
func FindDevice(id USBID) (int, error) {
	entries, err := os.ReadDir(SysfsClassRoot)
	if err != nil {
		return -1, errors.Wrapf(hci.ErrTransportFailure, "unable to list '%s': %v", SysfsClassRoot, err)
	}

	var devIDs []int
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "hci") {
			continue
		}
		devID, err := strconv.Atoi(strings.TrimPrefix(name, "hci"))
		if err != nil {
			continue
		}
		devIDs = append(devIDs, devID)
	}
	sort.Ints(devIDs)

	for _, devID := range devIDs {
		got, err := ReadUSBID(devID)
		if err != nil {
			continue
		}
		if got == id {
			return devID, nil
		}
	}
	return -1, errors.Wrapf(hci.ErrTransportFailure, "no controller with USB ID %04x:%04x", id.Vendor, id.Product)
}

// ReadUSBID reads the identifiers of the USB device behind hciN.
func ReadUSBID(devID int) (USBID, error) {
	// "device" links to the USB interface; the identifiers live on its parent.
	// The path is not cleaned so that ".." is resolved after the symlink.
	base := SysfsClassRoot + "/hci" + strconv.Itoa(devID) + "/device/../"
	vendor, err := readHexFile(base + "idVendor")
	if err != nil {
		return USBID{}, err
	}
	product, err := readHexFile(base + "idProduct")
	if err != nil {
		return USBID{}, err
	}
	return USBID{Vendor: vendor, Product: product}, nil
}

func readHexFile(path string) (uint16, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return ParseHexID(string(b))
}

// ParseHexID parses a 16-bit identifier written in hex, with or without a 0x prefix.
func ParseHexID(s string) (uint16, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, errors.Wrapf(hci.ErrInvalidArgument, "'%s' is not a 16-bit hex identifier", s)
	}
	return uint16(v), nil
}
