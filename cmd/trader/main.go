package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"futures-trader-go/broker/sim"
	"futures-trader-go/config"
	"futures-trader-go/execution"
	"futures-trader-go/gateway"
	"futures-trader-go/infrastructure/alert"
	"futures-trader-go/infrastructure/logger"
	"futures-trader-go/journal"
	"futures-trader-go/ledger"
	"futures-trader-go/monitor"
	"futures-trader-go/risk"
	"futures-trader-go/session"
	"futures-trader-go/strategy"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	metricsAddr := flag.String("metricsAddr", "", "覆盖配置中的 metrics 监听地址")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	logg, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer logg.Close()

	mon := monitor.New(monitor.DefaultConfig())
	serveMetrics(cfg, *metricsAddr, mon, logg)

	alerts := buildAlerts(cfg, logg)

	var rec execution.Recorder
	var jnl *journal.SQLiteJournal
	if cfg.Journal.Path != "" {
		jnl, err = journal.NewSQLite(cfg.Journal.Path)
		if err != nil {
			log.Fatalf("打开交易日志库失败: %v", err)
		}
		defer jnl.Close()
		rec = jnl
	}

	start, flatten, loc, err := cfg.Session.SessionWindow()
	if err != nil {
		log.Fatalf("解析交易时段失败: %v", err)
	}
	sched, err := session.NewScheduler(start, flatten, loc, nil)
	if err != nil {
		log.Fatalf("创建调度器失败: %v", err)
	}

	gov := risk.NewGovernor(risk.GovernorConfig{
		InitialBalance:   cfg.Account.InitialBalance,
		DailyLossLimit:   cfg.Account.DailyLossLimit,
		TrailingDrawdown: cfg.Account.TrailingDrawdown,
	}, nil, logg)

	// 目前仅接入模拟券商；真实券商通过同一 Port 接口接入
	b := sim.New(cfg.Account.InitialBalance)

	strategies := buildStrategies(cfg, logg)
	var stratMu sync.Mutex
	b.SetFillHandler(func(f ledger.Fill) {
		logg.LogFill("fill", map[string]interface{}{
			"instrument": f.Instrument,
			"quantity":   f.Quantity,
			"price":      f.Price,
		})
		if jnl != nil {
			if err := jnl.RecordFill(f); err != nil {
				logg.LogError(err, map[string]interface{}{"op": "record_fill"})
			}
		}
		stratMu.Lock()
		for _, s := range strategies {
			s.OnTrade(f)
		}
		stratMu.Unlock()
	})

	limits := risk.NewLimitChecker(orderLimits(cfg), b.Book())
	coord, err := execution.New(execution.Config{
		Scheduler: sched,
		Governor:  gov,
		Broker:    b,
		Guards:    []risk.Guard{limits},
		Logger:    logg,
		Monitor:   mon,
		Notifier:  alerts,
		Recorder:  rec,
	})
	if err != nil {
		log.Fatalf("创建协调器失败: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 配置热更新：逐单限额与告警限流间隔即时生效，账户与时段参数需重启
	if reloader, err := config.NewReloader(*cfgPath, 5*time.Second, func(newCfg config.AppConfig) {
		limits.SetLimits(orderLimits(newCfg))
		alerts.SetThrottleInterval(throttleInterval(newCfg))
		logg.Info("config reloaded")
	}); err == nil {
		if err := reloader.Start(ctx); err == nil {
			defer reloader.Close()
		}
	}

	// 行情接入与策略信号
	if len(cfg.Feed.Instruments) > 0 {
		go runFeed(ctx, cfg, b, coord, strategies, &stratMu, logg)
	}

	notifySystemd(ctx)

	// 主轮询：时段开盘、强平检测与风控复查
	go func() {
		ticker := time.NewTicker(cfg.Session.PollInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !coord.SessionActive() && sched.InWindow() && !gov.AccountClosed() {
					if err := coord.StartNewSession(); err != nil {
						logg.LogError(err, map[string]interface{}{"op": "start_session"})
					}
				}
				if err := coord.Monitor(); err != nil {
					logg.LogError(err, map[string]interface{}{"op": "monitor"})
				}
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	cancel()

	// 退出前尽力收盘
	if coord.SessionActive() {
		if err := coord.EndSession(); err != nil {
			logg.LogError(err, map[string]interface{}{"op": "shutdown_end_session"})
		}
	}
	logg.LogSession("trader_exit", nil)
}

func buildStrategies(cfg config.AppConfig, logg *logger.Logger) []strategy.Port {
	var out []strategy.Port
	for _, p := range cfg.Strategies.MeanRevert {
		s, err := strategy.NewMeanRevert(strategy.MeanRevertConfig{
			Instrument: p.Instrument,
			Lookback:   p.Lookback,
			EntryZ:     p.EntryZ,
			ExitZ:      p.ExitZ,
			OrderQty:   p.OrderQty,
			MaxNet:     p.MaxNet,
		})
		if err != nil {
			log.Fatalf("初始化均值回归策略失败: %v", err)
		}
		out = append(out, s)
	}
	for _, p := range cfg.Strategies.TrendFollow {
		s, err := strategy.NewTrendFollow(strategy.TrendFollowConfig{
			Instrument: p.Instrument,
			FastPeriod: p.FastPeriod,
			SlowPeriod: p.SlowPeriod,
			OrderQty:   p.OrderQty,
			MaxNet:     p.MaxNet,
		})
		if err != nil {
			log.Fatalf("初始化趋势跟随策略失败: %v", err)
		}
		out = append(out, s)
	}
	for _, s := range out {
		logg.Info("strategy loaded: " + s.Name())
	}
	return out
}

func orderLimits(cfg config.AppConfig) risk.Limits {
	return risk.Limits{
		SingleMax:        cfg.Limits.SingleMax,
		NetMax:           cfg.Limits.NetMax,
		MaxOpenPositions: cfg.Limits.MaxOpenPositions,
	}
}

func throttleInterval(cfg config.AppConfig) time.Duration {
	if cfg.Alert.ThrottleInterval != "" {
		if d, err := time.ParseDuration(cfg.Alert.ThrottleInterval); err == nil {
			return d
		}
	}
	return time.Minute
}

func buildAlerts(cfg config.AppConfig, logg *logger.Logger) *alert.Manager {
	channels := []alert.Channel{alert.NewLogChannel("log", logg)}
	if cfg.Alert.Console {
		channels = append(channels, alert.NewConsoleChannel("console"))
	}
	if cfg.Alert.SlackWebhook != "" {
		channels = append(channels, alert.NewSlackChannel("slack", cfg.Alert.SlackWebhook))
	}
	return alert.NewManager(channels, throttleInterval(cfg))
}

// runFeed 持续消费行情：推进模拟撮合、喂给策略并提交产生的信号。
// 连接断开后退避重连。
func runFeed(ctx context.Context, cfg config.AppConfig, b *sim.Broker,
	coord *execution.Coordinator, strategies []strategy.Port,
	stratMu *sync.Mutex, logg *logger.Logger) {

	handler := func(t strategy.Tick) {
		b.UpdateMarketPrice(t.Instrument, t.Price)

		stratMu.Lock()
		var signals []strategy.Signal
		for _, s := range strategies {
			s.OnTick(t)
			signals = append(signals, s.Signals()...)
		}
		stratMu.Unlock()

		for _, sig := range signals {
			if _, err := coord.ExecuteOrder(sig.Request()); err != nil {
				logg.LogOrder("signal_rejected", "", map[string]interface{}{
					"instrument": sig.Instrument,
					"reason":     err.Error(),
				})
			}
		}
	}

	for {
		feed := gateway.NewFeed(cfg.Feed.Endpoint, logg)
		for _, inst := range cfg.Feed.Instruments {
			_ = feed.Subscribe(inst)
		}
		if err := feed.Run(ctx, handler); err != nil {
			if ctx.Err() != nil {
				return
			}
			logg.LogError(err, map[string]interface{}{"op": "feed_run"})
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}

// notifySystemd 上报就绪并按需喂看门狗。非 systemd 环境下是无操作。
func notifySystemd(ctx context.Context) {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
			}
		}
	}()
}

func serveMetrics(cfg config.AppConfig, override string, mon *monitor.Monitor, logg *logger.Logger) {
	addr := cfg.Metrics.Listen
	if override != "" {
		addr = override
	}
	if !cfg.Metrics.Enabled && override == "" {
		return
	}
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", mon.Handler())
	go func() {
		logg.Info("metrics listening on " + addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logg.LogError(err, map[string]interface{}{"op": "metrics_listen"})
		}
	}()
}
