package rpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

const jsonrpcVersion = "2.0"

// Client is a JSON RPC client (over HTTP(s)) for the external collaborator
// services (asset registry, payment token).
type Client struct {
	url        string
	httpClient *retryablehttp.Client
	timeout    int
	debug      bool
}

type request struct {
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	Id      int64       `json:"id"`
	JsonRpc string      `json:"jsonrpc"`
}

// ErrorCode represents an error code to be used as part of an Error which is
// in turn used in a JSON-RPC Response object.
type ErrorCode int

type Error struct {
	Code    ErrorCode `json:"code,omitempty"`
	Message string    `json:"message,omitempty"`
}

var _, _ error = Error{}, (*Error)(nil)

func (e Error) Error() string {
	return fmt.Sprintf("%d:%s", e.Code, e.Message)
}

type Response struct {
	Id     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *Error          `json:"error"`
}

func (r Response) ResultAs(target interface{}) error {
	return json.Unmarshal(r.Result, target)
}

func (r Response) ResultAsString() string {
	return string(r.Result)
}

func NewClient(url string, timeout int, debug bool) (*Client, error) {
	if len(url) == 0 {
		return nil, errors.New("bad call missing argument host")
	}

	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil
	retryClient.RetryMax = 3

	return &Client{url, retryClient, timeout, debug}, nil
}

// doTimeoutRequest process a HTTP request with timeout
func (c *Client) doTimeoutRequest(timer *time.Timer, req *retryablehttp.Request) (*http.Response, error) {
	type result struct {
		resp *http.Response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := c.httpClient.Do(req)
		done <- result{resp, err}
	}()

	select {
	case r := <-done:
		return r.resp, r.err
	case <-timer.C:
		return nil, errors.New("timeout reading data from server")
	}
}

// Call prepares and executes the request
func (c *Client) Call(method string, params ...interface{}) (*Response, error) {
	rpcR := request{method, params, time.Now().UnixNano(), jsonrpcVersion}
	payloadBuffer := &bytes.Buffer{}
	jsonEncoder := json.NewEncoder(payloadBuffer)
	if err := jsonEncoder.Encode(rpcR); err != nil {
		return nil, err
	}

	zap.L().With(zap.String("request", rpcR.Method), zap.String("params", fmt.Sprintf("%v", params))).Debug("Rpc: Request")
	if c.debug {
		zap.L().With(zap.String("request", payloadBuffer.String())).Debug("Rpc: Request")
	}

	req, err := retryablehttp.NewRequest("POST", c.url, payloadBuffer)
	if err != nil {
		return nil, err
	}

	req.Header.Add("Content-Type", "application/json;charset=utf-8")
	req.Header.Add("Accept", "application/json")

	resp, err := c.doTimeoutRequest(time.NewTimer(time.Duration(c.timeout)*time.Second), req)
	if err != nil {
		zap.L().With(zap.Error(err)).Warn("Rpc: Failure")
		return nil, err
	}
	defer resp.Body.Close()

	data, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if c.debug {
		zap.L().With(zap.String("response", string(data))).Debug("Rpc: Response")
	}

	var rr *Response
	if err = json.Unmarshal(data, &rr); err != nil {
		return nil, err
	}
	if rr.Error != nil {
		return nil, *rr.Error
	}

	return rr, nil
}
