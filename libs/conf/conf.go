package conf

import (
	"encoding/json"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

var config map[string]interface{}

// Init 加载 TOML 配置文件, 路径来自 runConfig 环境变量或参数
func Init(configPath string) {
	// .env 先加载, 提供 HF_TOKEN / HOLO_CACHE_DIR 等环境变量
	_ = godotenv.Load()

	if configPath == "" {
		configPath = os.Getenv("runConfig")
	}
	config = make(map[string]interface{})
	if configPath != "" {
		_, err := toml.DecodeFile(configPath, &config)
		if err != nil {
			panic(err)
		}
	}
	globalInfo, ok := config["global"].(map[string]interface{})
	if !ok {
		globalInfo = map[string]interface{}{}
	}
	// 设置配置的全局变量
	if appName, ok := globalInfo["app_name"].(string); ok {
		os.Setenv("APP_NAME", appName)
	}
	if appVersion, ok := globalInfo["app_version"].(string); ok {
		os.Setenv("APP_VERSION", appVersion)
	}
	if modelName, ok := globalInfo["model_name"].(string); ok {
		os.Setenv("MODEL_NAME", modelName)
	}
}

func Get(key string) []byte {
	if config == nil {
		Init("")
	}
	if value, exists := config[key]; exists {
		bytes, err := json.Marshal(value)
		if err != nil {
			return nil
		}
		return bytes
	}
	return nil
}
