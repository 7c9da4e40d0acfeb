// Reader is a testing facility to read the output of a http reporter.

package reporter

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/TEENet-io/tokenbridge/agreement"
)

type HttpReader struct {
	baseURL string // e.g. http://127.0.0.1:8080
	client  *http.Client
}

func NewHttpReader(baseURL string) *HttpReader {
	return &HttpReader{
		baseURL: baseURL,
		client:  http.DefaultClient,
	}
}

func (hr *HttpReader) get(path string, query url.Values) (int, string, error) {
	u := hr.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	resp, err := hr.client.Get(u)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", err
	}
	return resp.StatusCode, string(body), nil
}

func chainPath(side agreement.Side, route string) string {
	return "/chains/" + string(side) + route
}

func (hr *HttpReader) GetHello() (int, string, error) {
	return hr.get(ROUTE_HELLO, nil)
}

func (hr *HttpReader) GetMessage(id string) (int, string, error) {
	return hr.get(ROUTE_MESSAGE, url.Values{"id": {id}})
}

func (hr *HttpReader) GetMessages(status string) (int, string, error) {
	return hr.get(ROUTE_MESSAGES, url.Values{"status": {status}})
}

func (hr *HttpReader) GetRequests(recipient string) (int, string, error) {
	return hr.get(ROUTE_REQUESTS, url.Values{"recipient": {recipient}})
}

func (hr *HttpReader) GetSignatures(id string) (int, string, error) {
	return hr.get(ROUTE_SIGNATURES, url.Values{"id": {id}})
}

func (hr *HttpReader) GetBalance(side agreement.Side, address string) (int, string, error) {
	return hr.get(chainPath(side, ROUTE_TOKEN_BALANCE), url.Values{"address": {address}})
}

func (hr *HttpReader) GetSupply(side agreement.Side) (int, string, error) {
	return hr.get(chainPath(side, ROUTE_TOKEN_SUPPLY), nil)
}

func (hr *HttpReader) GetBridge(side agreement.Side) (int, string, error) {
	return hr.get(chainPath(side, ROUTE_BRIDGE), nil)
}

func (hr *HttpReader) GetValidators(side agreement.Side) (int, string, error) {
	return hr.get(chainPath(side, ROUTE_VALIDATORS), nil)
}

func (hr *HttpReader) PostSignature(side agreement.Side, req *SignatureRequest) (int, string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return 0, "", err
	}
	resp, err := hr.client.Post(hr.baseURL+chainPath(side, ROUTE_CHAIN_SIGNATURES), "application/json", bytes.NewReader(payload))
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", err
	}
	return resp.StatusCode, string(body), nil
}
