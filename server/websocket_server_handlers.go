package server

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/vb15s/intel-ipmi-oem/protocol"
)

// SuccessResponse builds a successful command result carrying data.
func SuccessResponse(data json.RawMessage) protocol.CommandResultPayload {
	return protocol.CommandResultPayload{
		Success: true,
		Data:    data,
	}
}

// ErrorResponse builds a failed command result with a formatted message.
func ErrorResponse(code protocol.ErrorCode, format string, args ...interface{}) protocol.CommandResultPayload {
	return protocol.CommandResultPayload{
		Success: false,
		Error: &protocol.Error{
			Code:    code,
			Message: fmt.Sprintf(format, args...),
		},
	}
}

// handleExecuteFromClient handles an execute message from a client. The
// request is run through the command router and the raw response is
// returned, completion code included. A non-zero completion code is a
// completed exchange, not a transport failure, so Success stays true.
func (ws *WebSocketServer) handleExecuteFromClient(msg *protocol.Message) protocol.CommandResultPayload {
	var payload protocol.ExecutePayload
	if err := protocol.ParsePayload(msg, &payload); err != nil {
		return ErrorResponse(protocol.ErrorCodeInvalidRequestFormat, "Error parsing execute payload: %v", err)
	}

	req := protocol.ExecuteToRequest(payload)

	slog.Debug("Executing command from client",
		"netfn", fmt.Sprintf("%02X", byte(req.NetFn)),
		"cmd", fmt.Sprintf("%02X", byte(req.Cmd)),
		"name", ws.router.CommandName(req.NetFn, req.Cmd))

	resp := ws.router.Execute(ws.ctx, req)

	result := protocol.ResponseToResult(resp)
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return ErrorResponse(protocol.ErrorCodeInternalServerError, "Error marshaling execute result: %v", err)
	}

	return SuccessResponse(resultJSON)
}
