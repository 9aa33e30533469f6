package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"GhostRadar/pkg/config"
	"GhostRadar/pkg/database"
	"GhostRadar/pkg/datasource"
	"GhostRadar/pkg/dispatcher"
	"GhostRadar/pkg/engine"
	"GhostRadar/pkg/messaging"
	"GhostRadar/pkg/scheduler"
)

func main() {
	log.Println("启动规则自动化引擎...")

	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v\n", err)
	}

	// 连接数据库
	db, err := database.New(cfg)
	if err != nil {
		log.Fatalf("连接数据库失败: %v\n", err)
	}
	defer db.Close()

	// 连接NATS
	natsClient, err := messaging.NewNATSClient(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("连接NATS失败: %v\n", err)
	}
	defer natsClient.Close()

	// 创建指标数据源适配器
	fetcher := datasource.NewHTTPSource(
		cfg.MetricsProvider.APIKey,
		cfg.MetricsProvider.BaseURL,
		cfg.MetricsProvider.Timeout,
	)

	// 创建动作分发器及各通知通道
	emailSender := dispatcher.NewSMTPSender(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.From)
	discordSender := dispatcher.NewDiscordWebhook(cfg.Discord.WebhookURL, cfg.Engine.WebhookTimeout)
	notifier := dispatcher.NewNATSNotifier(natsClient)
	actionDispatcher := dispatcher.New(cfg.Engine.WebhookTimeout, emailSender, discordSender, notifier)

	// 创建执行协调器
	executor := engine.NewExecutor(db, fetcher, actionDispatcher, cfg.Engine.ActionWorkers)

	// 启动定时调度器
	sched := scheduler.NewScheduler(db, executor, cfg.Engine.TickInterval)
	if err := sched.Start(); err != nil {
		log.Fatalf("启动调度器失败: %v\n", err)
	}
	defer sched.Stop()

	// 启动实时触发监听器
	listener := messaging.NewTriggerListener(natsClient, executor, db, cfg.Engine.RegistryRefresh)
	if err := listener.Start(); err != nil {
		log.Fatalf("启动实时触发监听器失败: %v\n", err)
	}
	defer listener.Stop()

	// 等待中断信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("正在关闭规则自动化引擎...")
}
