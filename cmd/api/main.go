package main

import (
	"log"
	"os"

	"GhostRadar/pkg/api"
	"GhostRadar/pkg/config"
	"GhostRadar/pkg/database"
	"GhostRadar/pkg/datasource"
	"GhostRadar/pkg/dispatcher"
	"GhostRadar/pkg/engine"
	"GhostRadar/pkg/messaging"
)

func main() {
	log.Println("启动API服务...")

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

	// 连接NATS（站内通知通道需要）
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

	// 创建动作分发器，手动触发走与引擎相同的执行路径
	emailSender := dispatcher.NewSMTPSender(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.From)
	discordSender := dispatcher.NewDiscordWebhook(cfg.Discord.WebhookURL, cfg.Engine.WebhookTimeout)
	notifier := dispatcher.NewNATSNotifier(natsClient)
	actionDispatcher := dispatcher.New(cfg.Engine.WebhookTimeout, emailSender, discordSender, notifier)

	// 创建执行协调器
	executor := engine.NewExecutor(db, fetcher, actionDispatcher, cfg.Engine.ActionWorkers)

	// 创建API处理程序
	handlers := api.NewHandlers(db, executor, natsClient)

	// 创建并启动服务器
	server := api.NewServer(cfg.API.Port)
	server.SetupRoutes(handlers)
	server.Start()
}
