package assetregistry

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ticketmesh/market-engine/internal/rpc"
)

var ErrAssetNotFound = errors.New("asset not found")

// Service is the narrow view of the asset registry (the ticket NFT
// contract) the engine consumes. It owns asset identity, current holder,
// transfer approval and per-asset initial price metadata; the engine never
// reimplements any of that.
type Service interface {
	OwnerOf(contract string, tokenId uint64) (string, error)
	IsApprovedFor(contract string, tokenId uint64, operator string) (bool, error)
	Transfer(contract string, from, to string, tokenId uint64) error
	InitialPrice(contract string, tokenId uint64) (*big.Int, error)
}

type service struct {
	client *rpc.Client
}

func NewService(client *rpc.Client) Service {
	return service{client}
}

func (s service) OwnerOf(contract string, tokenId uint64) (string, error) {
	resp, err := s.client.Call("OwnerOf", contract, tokenId)
	if err != nil {
		return "", err
	}

	var owner string
	if err := resp.ResultAs(&owner); err != nil {
		return "", err
	}

	return owner, nil
}

func (s service) IsApprovedFor(contract string, tokenId uint64, operator string) (bool, error) {
	resp, err := s.client.Call("IsApprovedFor", contract, tokenId, operator)
	if err != nil {
		return false, err
	}

	var approved bool
	if err := resp.ResultAs(&approved); err != nil {
		return false, err
	}

	return approved, nil
}

func (s service) Transfer(contract string, from, to string, tokenId uint64) error {
	_, err := s.client.Call("Transfer", contract, from, to, tokenId)

	return err
}

func (s service) InitialPrice(contract string, tokenId uint64) (*big.Int, error) {
	resp, err := s.client.Call("InitialPrice", contract, tokenId)
	if err != nil {
		return nil, err
	}

	var priceAsString string
	if err := resp.ResultAs(&priceAsString); err != nil {
		return nil, err
	}

	price, ok := new(big.Int).SetString(priceAsString, 10)
	if !ok {
		return nil, fmt.Errorf("invalid initial price: %s", priceAsString)
	}

	return price, nil
}
