package onchain

import "encoding/json"

// subscribeRequest is a logsSubscribe JSON-RPC 2.0 request, scoped to
// the launchpad's program id via the "mentions" filter.
type subscribeRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

func newLogsSubscribeRequest(id int, programID string) subscribeRequest {
	return subscribeRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  "logsSubscribe",
		Params: []interface{}{
			map[string]interface{}{"mentions": []string{programID}},
			map[string]interface{}{"commitment": "confirmed"},
		},
	}
}

// subscribeResponse is the acknowledgment carrying the subscription id.
type subscribeResponse struct {
	ID     int   `json:"id"`
	Result int64 `json:"result"`
}

// logsNotification is one logsNotification push from the RPC node.
type logsNotification struct {
	Method string `json:"method"`
	Params struct {
		Result struct {
			Value struct {
				Signature string `json:"signature"`
				Err       json.RawMessage `json:"err"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
}

func (n logsNotification) isLogsNotification() bool {
	return n.Method == "logsNotification"
}

func (n logsNotification) failed() bool {
	return len(n.Params.Result.Value.Err) > 0 && string(n.Params.Result.Value.Err) != "null"
}
