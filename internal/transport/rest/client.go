// Package rest 实现交易所 REST 接口客户端
package rest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/tradeview/gotrade/internal/transport"
	"github.com/tradeview/gotrade/pkg/ratelimit"
)

// Client REST 客户端
// 只负责取数据并解码为线格式，失败语义（保留旧档位等）由调用方处理
type Client struct {
	client  *resty.Client
	limiter *ratelimit.TokenBucket
}

// NewClient 创建 REST 客户端
func NewClient(baseURL string) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(30 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(10 * time.Second)

	return &Client{
		client: client,
		// 公开接口的限额是每秒 10 次，留突发余量
		limiter: ratelimit.NewTokenBucket(20, 10),
	}
}

// FetchOrderBookSnapshot 拉取指定交易对的订单簿全量快照
// 返回两条整侧推送（买/卖），与实时推送走同一套线格式
func (c *Client) FetchOrderBookSnapshot(ctx context.Context, instrumentID string) ([]transport.LevelsPush, error) {
	var out []transport.LevelsPush
	if err := c.get(ctx, fmt.Sprintf("/orderbooks/%s", instrumentID), &out); err != nil {
		return nil, errors.Wrapf(err, "拉取 %s 订单簿快照失败", instrumentID)
	}
	return out, nil
}

// FetchOpenOrders 拉取用户当前未完结的订单
func (c *Client) FetchOpenOrders(ctx context.Context) ([]transport.OrderDto, error) {
	var out []transport.OrderDto
	if err := c.get(ctx, "/orders?status=InOrderBook", &out); err != nil {
		return nil, errors.Wrap(err, "拉取未完结订单失败")
	}
	return out, nil
}

// FetchInstruments 拉取交易对参考数据
func (c *Client) FetchInstruments(ctx context.Context) ([]transport.InstrumentDto, error) {
	var out []transport.InstrumentDto
	if err := c.get(ctx, "/assetpairs", &out); err != nil {
		return nil, errors.Wrap(err, "拉取交易对参考数据失败")
	}
	return out, nil
}

// FetchAssets 拉取资产参考数据
func (c *Client) FetchAssets(ctx context.Context) ([]transport.AssetDto, error) {
	var out []transport.AssetDto
	if err := c.get(ctx, "/assets", &out); err != nil {
		return nil, errors.Wrap(err, "拉取资产参考数据失败")
	}
	return out, nil
}

// get 执行 GET 请求并把响应解码到 out，出站前先过速率限制
func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetResult(out).
		Get(endpoint)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return errors.Errorf("GET %s: %s", endpoint, resp.Status())
	}
	return nil
}
