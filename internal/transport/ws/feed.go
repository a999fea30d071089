// Package ws 实现行情/订单事件的 WebSocket 订阅客户端
package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "ws")

const (
	defaultReconnectDelay    = 2 * time.Second
	defaultMaxReconnectDelay = 30 * time.Second
	defaultPingInterval      = 10 * time.Second
	defaultReadTimeout       = 60 * time.Second
	defaultHandshakeTimeout  = 10 * time.Second
	defaultWriteTimeout      = 10 * time.Second
)

// Handler 处理一条主题消息的回调
type Handler func(data json.RawMessage)

// Subscription 一次订阅的句柄
// 取消订阅以句柄为准，同一句柄重复取消是无操作
type Subscription struct {
	ID    string // 句柄 ID（本地生成）
	Topic string

	handler Handler
}

// Config WebSocket 客户端配置
type Config struct {
	ReconnectEnabled     bool
	ReconnectDelay       time.Duration
	MaxReconnectDelay    time.Duration
	MaxReconnectAttempts int
	PingInterval         time.Duration
	ReadTimeout          time.Duration
	HandshakeTimeout     time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		ReconnectEnabled:     true,
		ReconnectDelay:       defaultReconnectDelay,
		MaxReconnectDelay:    defaultMaxReconnectDelay,
		MaxReconnectAttempts: 10,
		PingInterval:         defaultPingInterval,
		ReadTimeout:          defaultReadTimeout,
		HandshakeTimeout:     defaultHandshakeTimeout,
	}
}

// envelope 推送消息的外层格式
type envelope struct {
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

// command 订阅控制帧
type command struct {
	Op    string `json:"op"` // subscribe / unsubscribe
	Topic string `json:"topic"`
}

// Feed 订阅客户端
// 订阅关系记在本地集合里，断线重连后自动恢复
type Feed struct {
	url    string
	config *Config

	conn   *websocket.Conn
	connMu sync.Mutex

	// topic → 句柄 ID → 订阅
	subs  map[string]map[string]*Subscription
	subMu sync.RWMutex

	ctx     context.Context
	cancel  context.CancelFunc
	doneCh  chan struct{}
	running bool
	runMu   sync.Mutex

	reconnectAttempts int
}

// NewFeed 创建订阅客户端
func NewFeed(url string) *Feed {
	return NewFeedWithConfig(url, DefaultConfig())
}

// NewFeedWithConfig 使用自定义配置创建订阅客户端
func NewFeedWithConfig(url string, config *Config) *Feed {
	if config == nil {
		config = DefaultConfig()
	}
	return &Feed{
		url:    url,
		config: config,
		subs:   make(map[string]map[string]*Subscription),
	}
}

// Connect 建立连接并启动读循环
func (f *Feed) Connect(ctx context.Context) error {
	f.runMu.Lock()
	if f.running {
		f.runMu.Unlock()
		return nil
	}
	f.running = true
	f.runMu.Unlock()

	f.ctx, f.cancel = context.WithCancel(ctx)
	f.doneCh = make(chan struct{})

	if err := f.dial(); err != nil {
		f.runMu.Lock()
		f.running = false
		f.runMu.Unlock()
		return err
	}

	// 连接前就登记的订阅在这里统一补发控制帧
	f.resubscribeAll()

	go f.readLoop()
	go f.pingLoop()
	return nil
}

// Close 关闭连接并停止读循环
// 等待读循环退出后才返回，保证不会有迟到的回调复活旧状态
func (f *Feed) Close() error {
	f.runMu.Lock()
	if !f.running {
		f.runMu.Unlock()
		return nil
	}
	f.running = false
	f.runMu.Unlock()

	f.cancel()

	f.connMu.Lock()
	if f.conn != nil {
		f.conn.Close()
		f.conn = nil
	}
	f.connMu.Unlock()

	<-f.doneCh
	return nil
}

// Subscribe 订阅主题
// 同一主题可以挂多个回调；第一个订阅者触发控制帧发送
func (f *Feed) Subscribe(topic string, handler Handler) (*Subscription, error) {
	sub := &Subscription{
		ID:      uuid.NewString(),
		Topic:   topic,
		handler: handler,
	}

	f.subMu.Lock()
	first := len(f.subs[topic]) == 0
	if f.subs[topic] == nil {
		f.subs[topic] = make(map[string]*Subscription)
	}
	f.subs[topic][sub.ID] = sub
	f.subMu.Unlock()

	if first {
		if err := f.send(command{Op: "subscribe", Topic: topic}); err != nil {
			f.subMu.Lock()
			delete(f.subs[topic], sub.ID)
			f.subMu.Unlock()
			return nil, errors.Wrapf(err, "订阅 %s 失败", topic)
		}
	}

	log.Debugf("已订阅 %s (句柄 %s)", topic, sub.ID)
	return sub, nil
}

// Unsubscribe 取消订阅
// 句柄不存在（已取消过）时是无操作；主题最后一个订阅者离开时发送控制帧
func (f *Feed) Unsubscribe(sub *Subscription) error {
	if sub == nil {
		return nil
	}

	f.subMu.Lock()
	handlers, ok := f.subs[sub.Topic]
	if !ok {
		f.subMu.Unlock()
		return nil
	}
	if _, ok := handlers[sub.ID]; !ok {
		f.subMu.Unlock()
		return nil
	}
	delete(handlers, sub.ID)
	last := len(handlers) == 0
	if last {
		delete(f.subs, sub.Topic)
	}
	f.subMu.Unlock()

	if last {
		if err := f.send(command{Op: "unsubscribe", Topic: sub.Topic}); err != nil {
			return errors.Wrapf(err, "取消订阅 %s 失败", sub.Topic)
		}
	}

	log.Debugf("已取消订阅 %s (句柄 %s)", sub.Topic, sub.ID)
	return nil
}

// SubscriptionCount 返回主题当前的订阅者数量（测试用）
func (f *Feed) SubscriptionCount(topic string) int {
	f.subMu.RLock()
	defer f.subMu.RUnlock()
	return len(f.subs[topic])
}

func (f *Feed) dial() error {
	dialer := websocket.Dialer{
		HandshakeTimeout: f.config.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(f.ctx, f.url, nil)
	if err != nil {
		return errors.Wrapf(err, "连接 %s 失败", f.url)
	}

	conn.SetReadDeadline(time.Now().Add(f.config.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(f.config.ReadTimeout))
		return nil
	})

	f.connMu.Lock()
	f.conn = conn
	f.connMu.Unlock()

	f.reconnectAttempts = 0
	log.Infof("WebSocket 已连接: %s", f.url)
	return nil
}

// readLoop 读循环：解码推送并分发给该主题的全部回调
func (f *Feed) readLoop() {
	defer close(f.doneCh)

	for {
		f.connMu.Lock()
		conn := f.conn
		f.connMu.Unlock()
		if conn == nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if f.ctx.Err() != nil {
				return
			}
			log.Warnf("读取消息失败: %v", err)
			if !f.reconnect() {
				return
			}
			continue
		}

		var msg envelope
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Warnf("消息解码失败: %v", err)
			continue
		}

		for _, sub := range f.handlersFor(msg.Topic) {
			sub.handler(msg.Data)
		}
	}
}

// handlersFor 返回主题回调的快照，分发时不持锁
func (f *Feed) handlersFor(topic string) []*Subscription {
	f.subMu.RLock()
	defer f.subMu.RUnlock()

	handlers := f.subs[topic]
	out := make([]*Subscription, 0, len(handlers))
	for _, sub := range handlers {
		out = append(out, sub)
	}
	return out
}

// reconnect 断线重连，成功后重发全部订阅控制帧
func (f *Feed) reconnect() bool {
	if !f.config.ReconnectEnabled {
		return false
	}

	delay := f.config.ReconnectDelay
	for f.reconnectAttempts < f.config.MaxReconnectAttempts {
		if f.ctx.Err() != nil {
			return false
		}
		f.reconnectAttempts++
		log.Infof("第 %d 次重连，%v 后重试", f.reconnectAttempts, delay)

		select {
		case <-f.ctx.Done():
			return false
		case <-time.After(delay):
		}

		if err := f.dial(); err != nil {
			log.Warnf("重连失败: %v", err)
			delay *= 2
			if delay > f.config.MaxReconnectDelay {
				delay = f.config.MaxReconnectDelay
			}
			continue
		}

		f.resubscribeAll()
		return true
	}

	log.Error("重连次数用尽，放弃")
	return false
}

func (f *Feed) resubscribeAll() {
	f.subMu.RLock()
	topics := make([]string, 0, len(f.subs))
	for topic := range f.subs {
		topics = append(topics, topic)
	}
	f.subMu.RUnlock()

	for _, topic := range topics {
		if err := f.send(command{Op: "subscribe", Topic: topic}); err != nil {
			log.Warnf("恢复订阅 %s 失败: %v", topic, err)
		}
	}
}

// pingLoop 心跳循环
func (f *Feed) pingLoop() {
	ticker := time.NewTicker(f.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.ctx.Done():
			return
		case <-ticker.C:
			f.connMu.Lock()
			conn := f.conn
			f.connMu.Unlock()
			if conn == nil {
				continue
			}
			deadline := time.Now().Add(defaultWriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				log.Debugf("发送 ping 失败: %v", err)
			}
		}
	}
}

// send 发送控制帧；未连接时只记录本地状态，等连接建立后统一补发
func (f *Feed) send(cmd command) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()

	if f.conn == nil {
		return nil
	}
	f.conn.SetWriteDeadline(time.Now().Add(defaultWriteTimeout))
	return f.conn.WriteJSON(cmd)
}
