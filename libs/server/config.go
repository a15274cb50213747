package server

type HttpServerConfig struct {
	Port       int    `json:"port" yaml:"port"`               // HTTP服务器端口
	Address    string `json:"address" yaml:"address"`         // HTTP服务器主机名
	Path       string `json:"path" yaml:"path"`               // HTTP服务器路径
	Cors       bool   `json:"cors" yaml:"cors"`               // 是否启用CORS
	RequestLog bool   `json:"request_log" yaml:"request_log"` // 是否启用请求日志
	BodyLimit  string `json:"body_limit" yaml:"body_limit"`   // 请求体大小上限
	AuthSecret string `json:"auth_secret" yaml:"auth_secret"` // 可选的API鉴权密钥
}
