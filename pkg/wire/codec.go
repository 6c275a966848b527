package wire

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/htp1-protocol/htp1-go/pkg/state"
)

// HTP-1 command verbs.
const (
	// CmdGetMSO requests the full state document. No payload.
	CmdGetMSO = "getmso"

	// CmdMSO carries a full state snapshot from the device.
	CmdMSO = "mso"

	// CmdMSOUpdate carries one patch operation or an array of them.
	CmdMSOUpdate = "msoupdate"

	// CmdChangeMSO sends a batch of replace operations to the device.
	CmdChangeMSO = "changemso"
)

// Split separates a text frame into command and payload at the first
// space. A frame without a payload yields an empty payload.
func Split(text string) (cmd, payload string) {
	cmd, payload, _ = strings.Cut(text, " ")
	return cmd, payload
}

// Join builds a text frame from a command and its payload.
func Join(cmd, payload string) string {
	if payload == "" {
		return cmd
	}
	return cmd + " " + payload
}

// EncodeChangeMSO serializes a batch of operations as one outbound
// changemso frame. The JSON is compact; operation order is not
// significant to the device.
func EncodeChangeMSO(ops []state.Op) (string, error) {
	payload, err := json.Marshal(ops)
	if err != nil {
		return "", fmt.Errorf("encode changemso: %w", err)
	}
	return Join(CmdChangeMSO, string(payload)), nil
}
