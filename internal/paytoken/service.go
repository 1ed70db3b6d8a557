package paytoken

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ticketmesh/market-engine/internal/rpc"
)

var ErrTransferFailed = errors.New("token transfer failed")

// Service is the narrow view of the fungible payment token. The engine only
// ever moves pre-authorized value between parties; balance bookkeeping stays
// in the token contract.
type Service interface {
	TransferFrom(token string, spender, from, to string, amount *big.Int) error
	Allowance(token string, owner, spender string) (*big.Int, error)
	BalanceOf(token string, owner string) (*big.Int, error)
}

type service struct {
	client *rpc.Client
}

func NewService(client *rpc.Client) Service {
	return service{client}
}

func (s service) TransferFrom(token string, spender, from, to string, amount *big.Int) error {
	resp, err := s.client.Call("TransferFrom", token, spender, from, to, amount.String())
	if err != nil {
		return err
	}

	var ok bool
	if err := resp.ResultAs(&ok); err != nil {
		return err
	}
	if !ok {
		return ErrTransferFailed
	}

	return nil
}

func (s service) Allowance(token string, owner, spender string) (*big.Int, error) {
	resp, err := s.client.Call("Allowance", token, owner, spender)
	if err != nil {
		return nil, err
	}

	return resultAsAmount(resp)
}

func (s service) BalanceOf(token string, owner string) (*big.Int, error) {
	resp, err := s.client.Call("BalanceOf", token, owner)
	if err != nil {
		return nil, err
	}

	return resultAsAmount(resp)
}

func resultAsAmount(resp *rpc.Response) (*big.Int, error) {
	var amountAsString string
	if err := resp.ResultAs(&amountAsString); err != nil {
		return nil, err
	}

	amount, ok := new(big.Int).SetString(amountAsString, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %s", amountAsString)
	}

	return amount, nil
}
