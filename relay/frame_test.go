package relay

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/xaionaro-go/btrelay/hci"
)

func TestFrameRoundTrip(t *testing.T) {
	for _, tag := range []Tag{TagIncomingData, TagConnectionComplete, TagConnectionRequest} {
		for _, n := range []int{0, 1, 251} {
			body := make([]byte, n)
			for i := range body {
				body[i] = byte(i * 7)
			}
			b := EncodeFrame(tag, body)
			if len(b) != FrameLengthSize+1+n {
				t.Fatalf("%s/%d: encoded %d bytes", tag, n, len(b))
			}
			gotTag, gotBody, err := ReadFrame(bytes.NewReader(b), DefaultMaxFrameSize)
			if err != nil {
				t.Fatalf("%s/%d: %v", tag, n, err)
			}
			if gotTag != tag || !bytes.Equal(gotBody, body) {
				t.Errorf("%s/%d: got %s [ % X ]", tag, n, gotTag, gotBody)
			}
		}
	}
}

func TestEncodeFrameLayout(t *testing.T) {
	got := EncodeFrame(TagConnectionRequest, []byte{0x04, 0x0A})
	want := []byte{0x03, 0x00, 0x00, 0x00, 'R', 0x04, 0x0A}
	if !bytes.Equal(got, want) {
		t.Errorf("got [ % X ], want [ % X ]", got, want)
	}
}

func TestReadFrameErrors(t *testing.T) {
	_, _, err := ReadFrame(bytes.NewReader([]byte{0x0A, 0x00, 0x00, 0x00, 'I', 0x01}), 0)
	if err != io.ErrUnexpectedEOF {
		t.Errorf("truncated payload: expected io.ErrUnexpectedEOF, got %v", err)
	}

	_, _, err = ReadFrame(bytes.NewReader([]byte{0x0A, 0x00}), 0)
	if err != io.ErrUnexpectedEOF {
		t.Errorf("truncated length: expected io.ErrUnexpectedEOF, got %v", err)
	}

	_, _, err = ReadFrame(bytes.NewReader(nil), 0)
	if err != io.EOF {
		t.Errorf("empty stream: expected io.EOF, got %v", err)
	}

	_, _, err = ReadFrame(bytes.NewReader([]byte{0x00, 0x00, 0x00, 0x00}), 0)
	if !errors.Is(err, hci.ErrProtocolViolation) {
		t.Errorf("zero length: expected ErrProtocolViolation, got %v", err)
	}

	_, _, err = ReadFrame(bytes.NewReader([]byte{0x01, 0x00, 0x00, 0x01}), 1024)
	if !errors.Is(err, hci.ErrProtocolViolation) {
		t.Errorf("oversized: expected ErrProtocolViolation, got %v", err)
	}
}

func TestTagString(t *testing.T) {
	if s := TagIncomingData.String(); s != "'I'" {
		t.Errorf("got %s", s)
	}
	if s := Tag(0x05).String(); s != "0x05" {
		t.Errorf("got %s", s)
	}
}
