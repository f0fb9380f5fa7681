package aprs

import (
	"fmt"
	"regexp"
	"strings"

	"aprsballoon/internal/errs"
)

// Message is a parsed APRS message PDU (":ADDRESSEE:text{msgno").
type Message struct {
	Addressee string
	Text      string
	MsgNo     string // empty if no ack was requested
}

var messageRe = regexp.MustCompile(`^:(.{9}):([^{]{1,67})(?:\{(\w{1,5}))?$`)

// EncodeMessage builds a ":ADDRESSEE:text{msgno" message PDU. msgNo may be
// empty to send an unacknowledged message (spec §4.4: "1-67 char payload,
// optional message number requesting ACK").
func EncodeMessage(addressee, text, msgNo string) (string, error) {
	if len(text) == 0 || len(text) > 67 {
		return "", fmt.Errorf("aprs: message text length %d out of range: %w", len(text), errs.ErrPacketTooLong)
	}
	out := fmt.Sprintf(":%s:%s", padCall(addressee), text)
	if msgNo != "" {
		out += "{" + msgNo
	}
	return out, nil
}

// EncodeAck builds a ":ADDRESSEE:ackMSGNO" acknowledgement.
func EncodeAck(addressee, msgNo string) string {
	return fmt.Sprintf(":%s:ack%s", padCall(addressee), msgNo)
}

// EncodeReject builds a ":ADDRESSEE:rejMSGNO" rejection.
func EncodeReject(addressee, msgNo string) string {
	return fmt.Sprintf(":%s:rej%s", padCall(addressee), msgNo)
}

// ParseMessage parses a message/ack/reject info field. IsAck/IsReject on the
// returned Message's Text distinguish kinds the way the decoder dispatches
// on them; callers normally go through Decode instead of calling this
// directly.
func ParseMessage(info string) (Message, error) {
	m := messageRe.FindStringSubmatch(info)
	if m == nil {
		return Message{}, fmt.Errorf("aprs: not a message PDU: %w", errs.ErrFrameCorrupt)
	}
	return Message{
		Addressee: strings.TrimRight(m[1], " "),
		Text:      m[2],
		MsgNo:     m[3],
	}, nil
}

// IsAck reports whether m is an acknowledgement, returning the acked msgNo.
func (m Message) IsAck() (msgNo string, ok bool) {
	if strings.HasPrefix(m.Text, "ack") {
		return strings.TrimPrefix(m.Text, "ack"), true
	}
	return "", false
}

// IsReject reports whether m is a rejection, returning the rejected msgNo.
func (m Message) IsReject() (msgNo string, ok bool) {
	if strings.HasPrefix(m.Text, "rej") {
		return strings.TrimPrefix(m.Text, "rej"), true
	}
	return "", false
}
