package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/stardustagi/HoloServe/imaging"
	"github.com/stardustagi/HoloServe/libs/conf"
	"github.com/stardustagi/HoloServe/libs/logs"
	"github.com/stardustagi/HoloServe/libs/option"
	"github.com/stardustagi/HoloServe/libs/server"
	"github.com/stardustagi/HoloServe/services"
	"github.com/stardustagi/HoloServe/utils"
	"github.com/stardustagi/HoloServe/vlm"
)

type imageConfig struct {
	FetchTimeout int   `json:"fetch_timeout"` // 秒
	MaxBytes     int64 `json:"max_bytes"`
}

type authConfig struct {
	Secret string `json:"secret"`
}

func main() {
	opts := option.NewOptions()
	if err := opts.Parse(); err != nil {
		os.Exit(1)
	}
	conf.Init(opts.ConfigFile)
	if lc := conf.Get("logger"); lc != nil {
		logs.Init(lc)
	}
	logger := logs.GetLogger("main")

	// http 配置段覆盖命令行参数
	httpCfg := server.HttpServerConfig{}
	if raw := conf.Get("http"); raw != nil {
		parsed, err := utils.Bytes2Struct[server.HttpServerConfig](raw)
		if err != nil {
			logger.Fatal("bad http configuration", logs.ErrorInfo(err))
		}
		httpCfg = parsed
		if httpCfg.Port > 0 {
			opts.Http.Port = httpCfg.Port
		}
		if httpCfg.Address != "" {
			opts.Http.Address = httpCfg.Address
		}
		if httpCfg.Path != "" {
			opts.Http.Path = httpCfg.Path
		}
		opts.Http.Cors = opts.Http.Cors || httpCfg.Cors
		opts.Http.RequestLog = opts.Http.RequestLog || httpCfg.RequestLog
	}

	// 推理运行时
	engineCfg := vlm.RuntimeConfig{
		Endpoint: opts.Engine.Endpoint,
		Timeout:  opts.Engine.Timeout,
	}
	if raw := conf.Get("engine"); raw != nil {
		parsed, err := utils.Bytes2Struct[vlm.RuntimeConfig](raw)
		if err != nil {
			logger.Fatal("bad engine configuration", logs.ErrorInfo(err))
		}
		engineCfg = parsed
	}
	engine := vlm.NewRuntimeEngine(engineCfg)

	managerCfg := vlm.ManagerConfig{
		ModelName:    utils.EnvOrDefault("MODEL_NAME", "Hcompany/Holo1.5-7B"),
		QueueDepth:   opts.Engine.QueueDepth,
		QueueTimeout: opts.Engine.QueueTimeout,
	}
	if raw := conf.Get("model"); raw != nil {
		parsed, err := utils.Bytes2Struct[vlm.ManagerConfig](raw)
		if err != nil {
			logger.Fatal("bad model configuration", logs.ErrorInfo(err))
		}
		managerCfg = parsed
	}
	manager := vlm.NewManager(engine, managerCfg)

	imgCfg := imageConfig{}
	if raw := conf.Get("image"); raw != nil {
		parsed, err := utils.Bytes2Struct[imageConfig](raw)
		if err != nil {
			logger.Fatal("bad image configuration", logs.ErrorInfo(err))
		}
		imgCfg = parsed
	}
	resolver := imaging.NewResolver(time.Duration(imgCfg.FetchTimeout)*time.Second, imgCfg.MaxBytes)

	chat := services.NewChatService(manager, resolver)

	authCfg := authConfig{Secret: os.Getenv("API_AUTH_SECRET")}
	if raw := conf.Get("auth"); raw != nil {
		parsed, err := utils.Bytes2Struct[authConfig](raw)
		if err != nil {
			logger.Fatal("bad auth configuration", logs.ErrorInfo(err))
		}
		authCfg = parsed
	}
	if authCfg.Secret == "" {
		authCfg.Secret = httpCfg.AuthSecret
	}

	httpSvc, err := services.NewHttpService(opts, chat, authCfg.Secret)
	if err != nil {
		logger.Fatal("failed to create http service", logs.ErrorInfo(err))
	}
	if httpCfg.BodyLimit != "" {
		httpSvc.Engine().Use(server.BodyLimit(httpCfg.BodyLimit))
	}

	// 模型后台加载; 健康检查在加载完成前报告未就绪
	go func() {
		if err := manager.Load(context.Background()); err != nil {
			logger.Fatal("model load failed, refusing to serve", logs.ErrorInfo(err))
		}
	}()

	go func() {
		<-utils.MakeShutdownCh()
		logger.Info("server shutting...")
		httpSvc.Stop()
		manager.Shutdown()
		logger.Info("server shutdown completed")
		os.Exit(0)
	}()

	if err := httpSvc.Start(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("http server exited", logs.ErrorInfo(err))
	}
}
