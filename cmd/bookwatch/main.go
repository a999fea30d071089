package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tradeview/gotrade/internal/domain"
	"github.com/tradeview/gotrade/internal/session"
	"github.com/tradeview/gotrade/internal/transport/rest"
	"github.com/tradeview/gotrade/internal/transport/ws"
	"github.com/tradeview/gotrade/pkg/config"
	"github.com/tradeview/gotrade/pkg/logger"
	"github.com/tradeview/gotrade/pkg/shutdown"
)

func main() {
	// .env 可选，用于本地覆盖环境变量
	_ = godotenv.Load()

	var (
		cfgPath    = flag.String("config", "config.yaml", "配置文件路径")
		instrument = flag.String("instrument", "", "启动时选中的交易对（覆盖配置）")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Printf("警告: 无法加载配置文件，使用默认配置: %v", err)
		cfg = config.Default()
	}
	if *instrument != "" {
		cfg.Book.Instrument = *instrument
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("配置无效: %v", err)
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		OutputFile: cfg.Log.OutputFile,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	}); err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Printf("📊 订单簿监控程序\n")
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Printf("交易对: %s\n", cfg.Book.Instrument)
	fmt.Printf("接口: %s\n", cfg.API.BaseURL)
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	restClient := rest.NewClient(cfg.API.BaseURL)
	feed := ws.NewFeed(cfg.API.WSURL)

	fmt.Printf("正在连接 WebSocket...\n")
	if err := feed.Connect(ctx); err != nil {
		log.Fatalf("连接 WebSocket 失败: %v", err)
	}

	sess := session.New(restClient, feed)
	sess.Book.SetLevelsCount(cfg.Book.LevelsCount)

	shutdownMgr := shutdown.NewManager()
	shutdownMgr.OnShutdown(func(_ context.Context) {
		// 先退订再断连，服务端才能看到干净的退订帧
		sess.Close()
		if err := feed.Close(); err != nil {
			logger.Warnf("关闭 WebSocket 失败: %v", err)
		}
	})

	if err := sess.LoadReferenceData(ctx); err != nil {
		log.Fatalf("加载参考数据失败: %v", err)
	}
	if err := sess.LoadOrders(ctx); err != nil {
		log.Printf("警告: 加载订单快照失败: %v", err)
	}
	if err := sess.Start(); err != nil {
		log.Fatalf("建立会话订阅失败: %v", err)
	}
	if err := sess.SelectInstrument(ctx, cfg.Book.Instrument); err != nil {
		log.Fatalf("选中交易对失败: %v", err)
	}

	// 任一侧重绘都重画整个摘要，用信号 channel 合并突发
	redraw := make(chan struct{}, 1)
	notify := func() {
		select {
		case redraw <- struct{}{}:
		default:
		}
	}
	sess.Book.OnLevelsChanged(domain.SideBuy, notify)
	sess.Book.OnLevelsChanged(domain.SideSell, notify)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	fmt.Printf("已就绪，等待行情推送（Ctrl+C 退出）\n\n")
	for {
		select {
		case <-redraw:
			printSummary(sess, cfg.Book.Instrument)
		case sig := <-sigCh:
			fmt.Printf("\n收到信号 %v，退出\n", sig)
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			shutdownMgr.Shutdown(shutdownCtx)
			shutdownCancel()
			return
		}
	}
}

// printSummary 打印两侧头部档位和价差摘要
func printSummary(sess *session.Session, instrumentID string) {
	asks := sess.Book.TopLevels(domain.SideSell)
	bids := sess.Book.TopLevels(domain.SideBuy)

	fmt.Printf("── %s（桶宽 %s）──\n", instrumentID, sess.Book.Span().String())
	n := 5
	if len(asks) < n {
		n = len(asks)
	}
	// 卖盘倒序打印，视觉上最优卖价贴着价差
	for i := n - 1; i >= 0; i-- {
		fmt.Printf("  卖 %-12s %s\n", asks[i].BinStart.String(), asks[i].Volume.String())
	}
	if spread, ok := sess.Book.Spread(); ok {
		rel, _ := sess.Book.SpreadRelative()
		fmt.Printf("  ---- 价差 %s (%.4f%%) ----\n", spread.String(), rel.Float64()*100)
	} else {
		fmt.Printf("  ---- 价差 不可用 ----\n")
	}
	n = 5
	if len(bids) < n {
		n = len(bids)
	}
	for i := 0; i < n; i++ {
		fmt.Printf("  买 %-12s %s\n", bids[i].BinStart.String(), bids[i].Volume.String())
	}
	fmt.Println()
}
