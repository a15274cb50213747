package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/stardustagi/HoloServe/codec"
	"github.com/stardustagi/HoloServe/imaging"
	"github.com/stardustagi/HoloServe/libs/conf"
	"github.com/stardustagi/HoloServe/libs/logs"
	"github.com/stardustagi/HoloServe/serverless"
	"github.com/stardustagi/HoloServe/services"
	"github.com/stardustagi/HoloServe/utils"
	"github.com/stardustagi/HoloServe/vlm"
)

// worker 无服务器入口: 从文件或stdin读取一个 {input: {...}} 事件,
// 处理后把 {status, output|error} 写到stdout.
func main() {
	conf.Init("")
	if lc := conf.Get("logger"); lc != nil {
		logs.Init(lc)
	}
	logger := logs.GetLogger("worker")

	raw, err := readEvent()
	if err != nil {
		logger.Fatal("failed to read event", logs.ErrorInfo(err))
	}

	eventCodec := codec.NewJsonCodec()
	event, err := eventCodec.DecodeEvent(raw)
	if err != nil {
		logger.Fatal("failed to decode event", logs.ErrorInfo(err))
	}
	if dump, dumpErr := utils.Struct2Bytes(event); dumpErr == nil {
		logger.Debug("event received", logs.String("event", dump))
	}

	engineCfg := vlm.RuntimeConfig{
		Endpoint: utils.EnvOrDefault("ENGINE_ENDPOINT", "http://127.0.0.1:8001"),
	}
	if rawCfg := conf.Get("engine"); rawCfg != nil {
		parsed, cfgErr := utils.Bytes2Struct[vlm.RuntimeConfig](rawCfg)
		if cfgErr != nil {
			logger.Fatal("bad engine configuration", logs.ErrorInfo(cfgErr))
		}
		engineCfg = parsed
	}
	engine := vlm.NewRuntimeEngine(engineCfg)
	manager := vlm.NewManager(engine, vlm.ManagerConfig{
		ModelName: utils.EnvOrDefault("MODEL_NAME", "Hcompany/Holo1.5-7B"),
	})
	chat := services.NewChatService(manager, imaging.NewResolver(0, 0))
	handler := serverless.NewHandler(chat)

	ctx := context.Background()
	go func() {
		if loadErr := manager.Load(ctx); loadErr != nil {
			logger.Error("model load failed", logs.ErrorInfo(loadErr))
		}
	}()
	if !handler.WaitReady(ctx, 60*time.Second) {
		logger.Fatal("model runtime never became ready")
	}

	result := handler.Handle(ctx, event)
	out, err := eventCodec.EncodeResult(result)
	if err != nil {
		logger.Fatal("failed to encode result", logs.ErrorInfo(err))
	}
	fmt.Println(string(out))

	manager.Shutdown()
	if result.Status != "success" {
		os.Exit(1)
	}
}

func readEvent() ([]byte, error) {
	if len(os.Args) > 1 {
		return os.ReadFile(os.Args[1])
	}
	return io.ReadAll(os.Stdin)
}
