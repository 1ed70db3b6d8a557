package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/ticketmesh/market-engine/internal/config"
	"github.com/ticketmesh/market-engine/internal/config/di"
	"github.com/ticketmesh/market-engine/internal/entity"
	"github.com/ticketmesh/market-engine/internal/messenger"
	"github.com/ticketmesh/market-engine/internal/repository"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var (
	container        *di.Container
	actionRepo       repository.MarketActionRepository
	messengerService messenger.MessageService
)

func main() {
	config.Init("cli")

	var err error
	container, err = di.NewContainer()
	if err != nil {
		zap.L().With(zap.Error(err)).Fatal("Failed to build container")
	}
	actionRepo = container.GetActionRepo()
	messengerService = container.GetMessenger()

	app := &cli.App{
		Commands: []*cli.Command{
			{
				Name:   "tokenHistory",
				Usage:  "Show the action history for a token",
				Action: tokenHistory,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "size", Value: 100, Usage: "Page size"},
					&cli.IntFlag{Name: "page", Value: 1, Usage: "Page number"},
				},
			},
			{
				Name:   "auctionHistory",
				Usage:  "Show the action history for an auction",
				Action: auctionHistory,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "size", Value: 100, Usage: "Page size"},
					&cli.IntFlag{Name: "page", Value: 1, Usage: "Page number"},
				},
			},
			{
				Name:   "actions",
				Usage:  "List actions of a given type (listing, sale, bid, settlement, ...)",
				Action: actionsByType,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "size", Value: 100, Usage: "Page size"},
					&cli.IntFlag{Name: "page", Value: 1, Usage: "Page number"},
				},
			},
			{
				Name:   "queueSize",
				Usage:  "Show the pending size of a message queue (market.sale, auction.settlement)",
				Action: queueSize,
			},
			{
				Name:   "bindAssetContract",
				Usage:  "Bind the asset contract on the running daemon as the admin",
				Action: bindAssetContract,
			},
			{
				Name:   "bindPaymentToken",
				Usage:  "Bind the payment token on the running daemon as the admin",
				Action: bindPaymentToken,
			},
			{
				Name:   "cancelItem",
				Usage:  "Cancel a market item on the running daemon as the admin",
				Action: cancelItem,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		zap.L().With(zap.Error(err)).Fatal("Failed to start CLI")
	}
}

func tokenHistory(c *cli.Context) error {
	tokenId, err := strconv.ParseUint(c.Args().First(), 10, 64)
	if err != nil {
		zap.L().Error("No token id provided")
		return nil
	}

	actions, total, err := actionRepo.GetByTokenId(tokenId, c.Int("size"), c.Int("page"))
	if err != nil {
		zap.L().With(zap.Error(err)).Error("Failed to get token actions")
		return err
	}

	zap.S().Infof("Found %d actions for token %d", total, tokenId)
	printActions(actions)

	return nil
}

func auctionHistory(c *cli.Context) error {
	auctionId, err := strconv.ParseUint(c.Args().First(), 10, 64)
	if err != nil {
		zap.L().Error("No auction id provided")
		return nil
	}

	actions, total, err := actionRepo.GetByAuctionId(auctionId, c.Int("size"), c.Int("page"))
	if err != nil {
		zap.L().With(zap.Error(err)).Error("Failed to get auction actions")
		return err
	}

	zap.S().Infof("Found %d actions for auction %d", total, auctionId)
	printActions(actions)

	return nil
}

func actionsByType(c *cli.Context) error {
	actionType := entity.ActionType(strings.ToLower(c.Args().First()))
	if actionType == "" {
		zap.L().Error("No action type provided")
		return nil
	}

	actions, total, err := actionRepo.GetByAction(actionType, c.Int("size"), c.Int("page"))
	if err != nil {
		zap.L().With(zap.Error(err)).Error("Failed to get actions")
		return err
	}

	zap.S().Infof("Found %d %s actions", total, actionType)
	printActions(actions)

	return nil
}

func queueSize(c *cli.Context) error {
	item := messenger.Item(c.Args().First())
	if item == "" {
		zap.L().Error("No queue provided")
		return nil
	}

	size, err := messengerService.GetQueueSize(item)
	if err != nil {
		zap.L().With(zap.Error(err)).Error("Could not get the queue size")
		return err
	}
	zap.S().Infof("Queue %s has %d pending messages", item, *size)

	return nil
}

// Admin operations run against the live daemon: the registries are
// in-process state, so mutations have to go through its API.
func bindAssetContract(c *cli.Context) error {
	address := c.Args().First()
	if address == "" {
		zap.L().Error("No contract address provided")
		return nil
	}

	return adminRequest(http.MethodPost, "/admin/asset-contract", map[string]string{"address": address})
}

func bindPaymentToken(c *cli.Context) error {
	address := c.Args().First()
	if address == "" {
		zap.L().Error("No token address provided")
		return nil
	}

	return adminRequest(http.MethodPost, "/admin/payment-token", map[string]string{"address": address})
}

func cancelItem(c *cli.Context) error {
	itemId, err := strconv.ParseUint(c.Args().First(), 10, 64)
	if err != nil {
		zap.L().Error("No item id provided")
		return nil
	}

	return adminRequest(http.MethodDelete, fmt.Sprintf("/items/%d", itemId), nil)
}

func adminRequest(method, path string, body interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	url := fmt.Sprintf("http://127.0.0.1:%s%s", config.Get().ApiPort, path)
	req, err := retryablehttp.NewRequest(method, url, buf.Bytes())
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Party-Address", config.Get().AdminAddress)

	client := retryablehttp.NewClient()
	client.Logger = nil

	resp, err := client.Do(req)
	if err != nil {
		zap.L().With(zap.Error(err)).Error("Daemon not reachable")
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		zap.S().Errorf("Daemon rejected the request: %s", resp.Status)
		return fmt.Errorf("request failed: %s", resp.Status)
	}

	zap.S().Infof("%s %s: %s", method, path, resp.Status)

	return nil
}

func printActions(actions []entity.MarketAction) {
	for _, action := range actions {
		fmt.Printf("%s token=%d item=%d auction=%d from=%s to=%s cost=%s at=%s\n",
			action.Action, action.TokenId, action.ItemId, action.AuctionId,
			action.From, action.To, action.Cost, action.OccurredAt.Format("2006-01-02 15:04:05"))
	}
}
